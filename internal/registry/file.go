package registry

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

// fileEntry is one row of the YAML registry file.
type fileEntry struct {
	ID     string `yaml:"id"`
	Object string `yaml:"object"`
}

// fileLayout mirrors the grouping served by the files endpoint:
//
//	videos:
//	  - {id: v1, object: 1sb0X...}
//	englishAudio:
//	  - {id: a1, object: 1zZdY...}
//	hindiAudio: []
type fileLayout struct {
	Videos       []fileEntry `yaml:"videos"`
	EnglishAudio []fileEntry `yaml:"englishAudio"`
	HindiAudio   []fileEntry `yaml:"hindiAudio"`
}

// LoadFile builds a Registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode builds a Registry from YAML read from r.
func Decode(r io.Reader) (*Registry, error) {
	var layout fileLayout
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&layout); err != nil {
		return nil, fmt.Errorf("decode registry file: %w", err)
	}

	var entries []model.MediaEntry
	add := func(kind model.Kind, rows []fileEntry) {
		for _, row := range rows {
			entries = append(entries, model.MediaEntry{Kind: kind, ShortID: row.ID, UpstreamObjectID: row.Object})
		}
	}
	add(model.KindVideo, layout.Videos)
	add(model.KindEnglishAudio, layout.EnglishAudio)
	add(model.KindHindiAudio, layout.HindiAudio)

	return New(entries)
}
