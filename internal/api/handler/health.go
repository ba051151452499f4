package handler

import (
	"net/http"
	"time"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

// MediaCounter reports how many media are registered per kind.
type MediaCounter interface {
	Counts() map[model.Kind]int
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Media     map[string]int `json:"media"`
}

// Health answers process liveness without touching the upstream.
func Health(counter MediaCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		media := make(map[string]int, len(model.Kinds))
		for kind, n := range counter.Counts() {
			media[kind.CollectionKey()] = n
		}
		JSON(w, http.StatusOK, HealthResponse{
			Status:    "OK",
			Message:   "media relay is running",
			Timestamp: time.Now().UTC(),
			Media:     media,
		})
	}
}
