package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/upstream"
	"github.com/hszk-dev/mediarelay/internal/usecase"
)

// MediaHandlerConfig holds configuration for MediaHandler.
type MediaHandlerConfig struct {
	// CacheMaxAge is advertised in Cache-Control. Content at a short ID is
	// treated as immutable.
	CacheMaxAge time.Duration
	// ETagSecret keys the ETag hash.
	ETagSecret string
}

// DefaultMediaHandlerConfig returns the default configuration.
func DefaultMediaHandlerConfig() MediaHandlerConfig {
	return MediaHandlerConfig{
		CacheMaxAge: 365 * 24 * time.Hour,
	}
}

// MediaHandler relays media bytes from the upstream to the client.
type MediaHandler struct {
	svc          usecase.StreamService
	etags        *ETagger
	cacheControl string
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(svc usecase.StreamService, cfg MediaHandlerConfig) *MediaHandler {
	return &MediaHandler{
		svc:          svc,
		etags:        NewETagger(cfg.ETagSecret),
		cacheControl: fmt.Sprintf("public, max-age=%d, immutable", int64(cfg.CacheMaxAge/time.Second)),
	}
}

// Video handles GET and HEAD /video/{id}
func (h *MediaHandler) Video(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, model.KindVideo, chi.URLParam(r, "id"))
}

// Audio handles GET and HEAD /audio/{lang}/{id}
func (h *MediaHandler) Audio(w http.ResponseWriter, r *http.Request) {
	lang, id := chi.URLParam(r, "lang"), chi.URLParam(r, "id")
	kind, err := model.ParseAudioLang(lang)
	if err != nil {
		JSON(w, http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("%s audio %s not found", lang, id),
			Kind:  lang,
			ID:    id,
		})
		return
	}
	h.serve(w, r, kind, id)
}

func (h *MediaHandler) serve(w http.ResponseWriter, r *http.Request, kind model.Kind, id string) {
	entry, err := h.svc.Lookup(kind, id)
	if err != nil {
		writeNotFound(w, kind, id)
		return
	}

	etag := h.etags.ETag(entry.UpstreamObjectID)
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", h.cacheControl)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if r.Method == http.MethodHead {
		resp, err := h.svc.Head(r.Context(), entry)
		if err != nil {
			writeStreamError(w, kind, err)
			return
		}
		h.writeHeaders(w, kind, resp, etag, false)
		w.WriteHeader(http.StatusOK)
		return
	}

	stream, err := h.svc.Open(r.Context(), entry, r.Header.Get("Range"))
	if err != nil {
		writeStreamError(w, kind, err)
		return
	}
	defer stream.Close()

	partial := stream.Partial()
	h.writeHeaders(w, kind, stream.Upstream(), etag, partial)
	if partial {
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if _, err := stream.Pipe(r.Context(), w); err != nil && errors.Is(err, usecase.ErrStreamFault) {
		// Headers are committed; the only honest signal left is a broken connection.
		panic(http.ErrAbortHandler)
	}
}

func (h *MediaHandler) writeHeaders(w http.ResponseWriter, kind model.Kind, resp *upstream.Response, etag string, partial bool) {
	hdr := w.Header()

	contentType := resp.ContentType
	if contentType == "" {
		contentType = kind.FallbackContentType()
	}
	hdr.Set("Content-Type", contentType)
	hdr.Set("Accept-Ranges", "bytes")
	hdr.Set("Cache-Control", h.cacheControl)
	hdr.Set("ETag", etag)
	if resp.LastModified != "" {
		hdr.Set("Last-Modified", resp.LastModified)
	}
	if partial {
		hdr.Set("Content-Range", resp.ContentRange)
	}
	if resp.ContentLength >= 0 {
		hdr.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
}

func writeNotFound(w http.ResponseWriter, kind model.Kind, id string) {
	JSON(w, http.StatusNotFound, ErrorResponse{
		Error: fmt.Sprintf("%s %s not found", kind.Label(), id),
		Kind:  kind.Segment(),
		ID:    id,
	})
}

// writeStreamError translates a failure that happened before any response
// byte was written. It is the only place upstream failures become statuses.
func writeStreamError(w http.ResponseWriter, kind model.Kind, err error) {
	noun := kind.Noun()
	title := "Video"
	if kind.IsAudio() {
		title = "Audio"
	}

	ue, ok := upstream.AsError(err)
	if !ok {
		Error(w, http.StatusBadGateway, "Failed to fetch "+noun, "Upstream object could not be addressed")
		return
	}

	switch ue.Kind {
	case upstream.KindTimeout:
		Error(w, http.StatusRequestTimeout, title+" loading timeout", "The upstream store did not respond in time")
	case upstream.KindTooLarge:
		Error(w, http.StatusBadGateway, title+" exceeds size limit", "The upstream object is larger than this relay serves")
	case upstream.KindRejected:
		switch ue.StatusCode {
		case http.StatusNotFound:
			Error(w, http.StatusNotFound, title+" file not found upstream", "The upstream object does not exist")
		case http.StatusForbidden:
			Error(w, http.StatusForbidden, "Access denied to "+noun+" file",
				"The upstream object must be publicly readable (anyone with the link can view)")
		case http.StatusRequestedRangeNotSatisfiable:
			Error(w, http.StatusRequestedRangeNotSatisfiable, "Range not satisfiable", "")
		default:
			status := ue.StatusCode
			if status < 400 || status > 599 {
				status = http.StatusBadGateway
			}
			Error(w, status, "Failed to fetch "+noun, ue.StatusText)
		}
	default:
		Error(w, http.StatusBadGateway, "Failed to fetch "+noun, "The upstream store is unreachable")
	}
}
