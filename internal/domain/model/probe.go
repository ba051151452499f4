package model

import "time"

// Probe outcome labels.
const (
	ProbeOK    = "OK"
	ProbeError = "ERROR"
)

// Overall health labels.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// ProbeResult is the outcome of one upstream HEAD check.
type ProbeResult struct {
	Kind          Kind      `json:"kind"`
	ID            string    `json:"id"`
	Accessible    bool      `json:"accessible"`
	Status        string    `json:"status"`
	StatusCode    int       `json:"statusCode,omitempty"`
	ContentLength *int64    `json:"size,omitempty"`
	ContentType   string    `json:"type,omitempty"`
	LastModified  string    `json:"lastModified,omitempty"`
	Error         string    `json:"error,omitempty"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// Ref returns the media the result describes.
func (p ProbeResult) Ref() MediaRef {
	return MediaRef{Kind: p.Kind, ShortID: p.ID}
}

// HealthReport aggregates a fixed sample of probes.
// Status is "degraded" iff at least one sampled probe failed.
type HealthReport struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Media     map[string]int    `json:"media"`
	Tests     map[string]string `json:"tests"`
}

// KindSummary counts probes for a single kind.
type KindSummary struct {
	Total   int `json:"total"`
	Working int `json:"working"`
}

// SweepSummary carries the running totals of a full sweep.
type SweepSummary struct {
	TotalVideos   int                    `json:"totalVideos"`
	WorkingVideos int                    `json:"workingVideos"`
	TotalAudio    int                    `json:"totalAudio"`
	WorkingAudio  int                    `json:"workingAudio"`
	ByKind        map[string]KindSummary `json:"byKind"`
}

// SweepReport holds per-ID probe results in registry order.
type SweepReport struct {
	Videos       []ProbeResult `json:"videos"`
	EnglishAudio []ProbeResult `json:"englishAudio"`
	HindiAudio   []ProbeResult `json:"hindiAudio"`
	Summary      SweepSummary  `json:"summary"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt"`
}

// NewSweepReport returns an empty report with zeroed per-kind counters.
func NewSweepReport() *SweepReport {
	byKind := make(map[string]KindSummary, len(Kinds))
	for _, k := range Kinds {
		byKind[k.CollectionKey()] = KindSummary{}
	}
	return &SweepReport{
		Videos:       []ProbeResult{},
		EnglishAudio: []ProbeResult{},
		HindiAudio:   []ProbeResult{},
		Summary:      SweepSummary{ByKind: byKind},
		StartedAt:    time.Now(),
	}
}

// Add appends a result and updates the running totals.
func (r *SweepReport) Add(result ProbeResult) {
	switch result.Kind {
	case KindVideo:
		r.Videos = append(r.Videos, result)
		r.Summary.TotalVideos++
		if result.Accessible {
			r.Summary.WorkingVideos++
		}
	case KindEnglishAudio, KindHindiAudio:
		if result.Kind == KindEnglishAudio {
			r.EnglishAudio = append(r.EnglishAudio, result)
		} else {
			r.HindiAudio = append(r.HindiAudio, result)
		}
		r.Summary.TotalAudio++
		if result.Accessible {
			r.Summary.WorkingAudio++
		}
	default:
		return
	}

	key := result.Kind.CollectionKey()
	ks := r.Summary.ByKind[key]
	ks.Total++
	if result.Accessible {
		ks.Working++
	}
	r.Summary.ByKind[key] = ks
}

// Results returns the results for one kind.
func (r *SweepReport) Results(kind Kind) []ProbeResult {
	switch kind {
	case KindVideo:
		return r.Videos
	case KindEnglishAudio:
		return r.EnglishAudio
	case KindHindiAudio:
		return r.HindiAudio
	default:
		return nil
	}
}
