package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
)

func TestBuiltin(t *testing.T) {
	r := Builtin()

	counts := r.Counts()
	for _, k := range model.Kinds {
		if counts[k] != 10 {
			t.Errorf("Counts()[%s] = %d, want 10", k, counts[k])
		}
	}
	if r.Len() != 30 {
		t.Errorf("Len() = %d, want 30", r.Len())
	}

	ids := r.ListIDs(model.KindVideo)
	if ids[0] != "v1" || ids[9] != "v10" {
		t.Errorf("video IDs not in registration order: %v", ids)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := Builtin()

	tests := []struct {
		name    string
		kind    model.Kind
		id      string
		wantObj string
		wantErr bool
	}{
		{"video", model.KindVideo, "v1", "1sb0XpXiCPme3ySx7pMi3HUXFGf2WIxyv", false},
		{"english", model.KindEnglishAudio, "a1", "1zZdYVF7fV-wmZJNX-mx6dKwmYgkXQ4lz", false},
		{"same id other kind", model.KindHindiAudio, "a1", "1t3lKj_6qtWh36-RP_mGj8ky0zgLdcgup", false},
		{"unknown id", model.KindVideo, "v999", "", true},
		{"case sensitive", model.KindVideo, "V1", "", true},
		{"audio id under video", model.KindVideo, "a1", "", true},
		{"unknown kind", model.Kind("podcast"), "v1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := r.Lookup(tt.kind, tt.id)
			if tt.wantErr {
				if !errors.Is(err, repository.ErrMediaNotFound) {
					t.Errorf("Lookup() error = %v, want ErrMediaNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if entry.UpstreamObjectID != tt.wantObj {
				t.Errorf("UpstreamObjectID = %q, want %q", entry.UpstreamObjectID, tt.wantObj)
			}
		})
	}
}

func TestNew_RejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.MediaEntry
		wantErr error
	}{
		{
			name: "duplicate within kind",
			entries: []model.MediaEntry{
				{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "a"},
				{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "b"},
			},
			wantErr: repository.ErrDuplicateMedia,
		},
		{
			name: "empty object",
			entries: []model.MediaEntry{
				{Kind: model.KindVideo, ShortID: "v1"},
			},
			wantErr: model.ErrEmptyObject,
		},
		{
			name: "unknown kind",
			entries: []model.MediaEntry{
				{Kind: model.Kind("podcast"), ShortID: "p1", UpstreamObjectID: "x"},
			},
			wantErr: model.ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_ListIDsReturnsCopy(t *testing.T) {
	r := Builtin()
	ids := r.ListIDs(model.KindEnglishAudio)
	ids[0] = "mutated"

	if got := r.ListIDs(model.KindEnglishAudio)[0]; got != "a1" {
		t.Errorf("registry mutated through ListIDs: first ID = %q", got)
	}
}

func TestRegistry_EntriesCanonicalOrder(t *testing.T) {
	r, err := New([]model.MediaEntry{
		{Kind: model.KindHindiAudio, ShortID: "a1", UpstreamObjectID: "h"},
		{Kind: model.KindVideo, ShortID: "v2", UpstreamObjectID: "x"},
		{Kind: model.KindVideo, ShortID: "v1", UpstreamObjectID: "y"},
		{Kind: model.KindEnglishAudio, ShortID: "a1", UpstreamObjectID: "e"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var got []string
	for _, e := range r.Entries() {
		got = append(got, e.Ref().String())
	}
	want := "video/v2 video/v1 english/a1 hindi/a1"
	if strings.Join(got, " ") != want {
		t.Errorf("Entries() order = %v, want %s", got, want)
	}
}

func TestDecode(t *testing.T) {
	const doc = `
videos:
  - {id: v1, object: obj-v1}
  - {id: v2, object: obj-v2}
englishAudio:
  - {id: a1, object: obj-en-a1}
hindiAudio: []
`
	r, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	entry, err := r.Lookup(model.KindEnglishAudio, "a1")
	if err != nil || entry.UpstreamObjectID != "obj-en-a1" {
		t.Errorf("Lookup(english a1) = %+v, %v", entry, err)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "podcasts:\n  - {id: p1, object: x}\n"},
		{"duplicate id", "videos:\n  - {id: v1, object: a}\n  - {id: v1, object: b}\n"},
		{"missing object", "videos:\n  - {id: v1}\n"},
		{"not yaml", "videos: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.doc)); err == nil {
				t.Error("Decode() error = nil, want error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media.yaml")
	if err := os.WriteFile(path, []byte("videos:\n  - {id: v1, object: obj}\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if r.Counts()[model.KindVideo] != 1 {
		t.Errorf("Counts() = %v", r.Counts())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadFile(missing) error = %v, want ErrNotExist", err)
	}
}

type stubEntryRepository struct {
	entries []model.MediaEntry
	err     error
}

func (s *stubEntryRepository) ListEntries(ctx context.Context) ([]model.MediaEntry, error) {
	return s.entries, s.err
}

func TestFromRepository(t *testing.T) {
	repo := &stubEntryRepository{entries: BuiltinEntries()}
	r, err := FromRepository(context.Background(), repo)
	if err != nil {
		t.Fatalf("FromRepository() error = %v", err)
	}
	if r.Len() != 30 {
		t.Errorf("Len() = %d, want 30", r.Len())
	}

	failing := &stubEntryRepository{err: errors.New("connection refused")}
	if _, err := FromRepository(context.Background(), failing); err == nil {
		t.Error("FromRepository() error = nil, want error")
	}
}
