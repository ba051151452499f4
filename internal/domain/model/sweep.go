package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SweepStatus represents the processing state of an asynchronous full sweep.
type SweepStatus string

const (
	SweepPending   SweepStatus = "PENDING"
	SweepRunning   SweepStatus = "RUNNING"
	SweepCompleted SweepStatus = "COMPLETED"
	SweepFailed    SweepStatus = "FAILED"
)

// Valid status transitions:
// PENDING -> RUNNING -> COMPLETED
//       \          \-> FAILED
//        \-> FAILED (could not be enqueued)
var validSweepTransitions = map[SweepStatus][]SweepStatus{
	SweepPending:   {SweepRunning, SweepFailed},
	SweepRunning:   {SweepCompleted, SweepFailed},
	SweepCompleted: {},
	SweepFailed:    {},
}

var ErrInvalidTransition = errors.New("invalid status transition")

func (s SweepStatus) IsValid() bool {
	switch s {
	case SweepPending, SweepRunning, SweepCompleted, SweepFailed:
		return true
	default:
		return false
	}
}

func (s SweepStatus) CanTransitionTo(next SweepStatus) bool {
	allowed, exists := validSweepTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s SweepStatus) String() string {
	return string(s)
}

// Sweep is a stored run of the full accessibility sweep.
type Sweep struct {
	ID        uuid.UUID
	Status    SweepStatus
	Report    *SweepReport
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSweep creates a Sweep in PENDING status.
func NewSweep() *Sweep {
	now := time.Now()
	return &Sweep{
		ID:        uuid.New(),
		Status:    SweepPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the sweep status.
func (s *Sweep) TransitionTo(next SweepStatus) error {
	if !next.IsValid() || !s.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	s.Status = next
	s.UpdatedAt = time.Now()
	return nil
}

// Complete stores the report and moves the sweep to COMPLETED.
func (s *Sweep) Complete(report *SweepReport) error {
	if err := s.TransitionTo(SweepCompleted); err != nil {
		return err
	}
	s.Report = report
	return nil
}

// Fail records the failure reason and moves the sweep to FAILED.
func (s *Sweep) Fail(reason string) error {
	if err := s.TransitionTo(SweepFailed); err != nil {
		return err
	}
	s.Error = reason
	return nil
}

// IsFinished returns true once the sweep reached a terminal status.
func (s *Sweep) IsFinished() bool {
	return s.Status == SweepCompleted || s.Status == SweepFailed
}
