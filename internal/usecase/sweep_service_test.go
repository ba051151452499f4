package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
)

func TestSweepService_RequestSweep(t *testing.T) {
	t.Run("creates pending sweep and publishes task", func(t *testing.T) {
		var created *model.Sweep
		var published repository.SweepTask
		repo := &mockSweepRepository{
			createFn: func(ctx context.Context, sweep *model.Sweep) error {
				created = sweep
				return nil
			},
		}
		queue := &mockMessageQueue{
			publishSweepTaskFn: func(ctx context.Context, task repository.SweepTask) error {
				published = task
				return nil
			},
		}

		svc := NewSweepService(repo, queue, &mockDiagnosticsService{}, DefaultSweepServiceConfig())
		sweep, err := svc.RequestSweep(context.Background())
		if err != nil {
			t.Fatalf("RequestSweep() error = %v", err)
		}

		if sweep.Status != model.SweepPending {
			t.Errorf("Status = %v, want PENDING", sweep.Status)
		}
		if created == nil || created.ID != sweep.ID {
			t.Error("sweep not persisted")
		}
		if published.SweepID != sweep.ID || published.RetryCount != 0 {
			t.Errorf("published = %+v", published)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		repo := &mockSweepRepository{
			createFn: func(ctx context.Context, sweep *model.Sweep) error { return errors.New("db down") },
		}
		queue := &mockMessageQueue{
			publishSweepTaskFn: func(ctx context.Context, task repository.SweepTask) error {
				t.Error("published despite create failure")
				return nil
			},
		}

		svc := NewSweepService(repo, queue, &mockDiagnosticsService{}, DefaultSweepServiceConfig())
		if _, err := svc.RequestSweep(context.Background()); err == nil {
			t.Error("RequestSweep() expected error")
		}
	})

	t.Run("publish failure marks sweep failed", func(t *testing.T) {
		var updated *model.Sweep
		repo := &mockSweepRepository{
			updateFn: func(ctx context.Context, sweep *model.Sweep) error {
				updated = sweep
				return nil
			},
		}
		queue := &mockMessageQueue{
			publishSweepTaskFn: func(ctx context.Context, task repository.SweepTask) error {
				return errors.New("broker unavailable")
			},
		}

		svc := NewSweepService(repo, queue, &mockDiagnosticsService{}, DefaultSweepServiceConfig())
		if _, err := svc.RequestSweep(context.Background()); err == nil {
			t.Fatal("RequestSweep() expected error")
		}
		if updated == nil || updated.Status != model.SweepFailed {
			t.Errorf("updated = %+v, want FAILED", updated)
		}
	})
}

func TestSweepService_ProcessTask(t *testing.T) {
	newSweepIn := func(status model.SweepStatus) *model.Sweep {
		s := model.NewSweep()
		s.Status = status
		return s
	}

	tests := []struct {
		name          string
		sweep         *model.Sweep
		retryCount    int
		getErr        error
		updateErr     error
		wantErr       bool
		wantStatuses  []model.SweepStatus
		wantCheckAll  bool
		wantReportSet bool
	}{
		{
			name:          "pending sweep runs to completion",
			sweep:         newSweepIn(model.SweepPending),
			wantStatuses:  []model.SweepStatus{model.SweepRunning, model.SweepCompleted},
			wantCheckAll:  true,
			wantReportSet: true,
		},
		{
			name:          "retried running sweep completes",
			sweep:         newSweepIn(model.SweepRunning),
			retryCount:    1,
			wantStatuses:  []model.SweepStatus{model.SweepCompleted},
			wantCheckAll:  true,
			wantReportSet: true,
		},
		{
			name:  "finished sweep is skipped",
			sweep: newSweepIn(model.SweepCompleted),
		},
		{
			name:   "unknown sweep is dropped",
			getErr: repository.ErrSweepNotFound,
		},
		{
			name:    "transient get error retries",
			getErr:  errors.New("db down"),
			wantErr: true,
		},
		{
			name:         "update error retries",
			sweep:        newSweepIn(model.SweepPending),
			updateErr:    errors.New("db down"),
			wantErr:      true,
			wantStatuses: []model.SweepStatus{model.SweepRunning},
		},
		{
			name:         "max retries marks failed",
			sweep:        newSweepIn(model.SweepRunning),
			retryCount:   DefaultMaxRetries,
			wantStatuses: []model.SweepStatus{model.SweepFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var statuses []model.SweepStatus
			var final *model.Sweep
			id := uuid.New()
			if tt.sweep != nil {
				tt.sweep.ID = id
			}

			repo := &mockSweepRepository{
				getByIDFn: func(ctx context.Context, gotID uuid.UUID) (*model.Sweep, error) {
					if gotID != id {
						t.Errorf("GetByID(%v), want %v", gotID, id)
					}
					if tt.getErr != nil {
						return nil, tt.getErr
					}
					return tt.sweep, nil
				},
				updateFn: func(ctx context.Context, sweep *model.Sweep) error {
					statuses = append(statuses, sweep.Status)
					final = sweep
					return tt.updateErr
				},
			}
			checkAllCalled := false
			diag := &mockDiagnosticsService{
				checkAllFn: func(ctx context.Context) *model.SweepReport {
					checkAllCalled = true
					r := model.NewSweepReport()
					r.Add(model.ProbeResult{Kind: model.KindVideo, ID: "v1", Accessible: true, Status: model.ProbeOK})
					return r
				},
			}

			svc := NewSweepService(repo, &mockMessageQueue{}, diag, DefaultSweepServiceConfig())
			err := svc.ProcessTask(context.Background(), repository.SweepTask{SweepID: id, RetryCount: tt.retryCount})

			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(statuses) != len(tt.wantStatuses) {
				t.Fatalf("updates = %v, want %v", statuses, tt.wantStatuses)
			}
			for i := range statuses {
				if statuses[i] != tt.wantStatuses[i] {
					t.Errorf("update[%d] = %v, want %v", i, statuses[i], tt.wantStatuses[i])
				}
			}
			if checkAllCalled != tt.wantCheckAll {
				t.Errorf("CheckAll called = %v, want %v", checkAllCalled, tt.wantCheckAll)
			}
			if tt.wantReportSet && (final == nil || final.Report == nil || final.Report.Summary.WorkingVideos != 1) {
				t.Errorf("report not stored: %+v", final)
			}
		})
	}
}

func TestSweepService_GetSweep(t *testing.T) {
	repo := &mockSweepRepository{}
	svc := NewSweepService(repo, &mockMessageQueue{}, &mockDiagnosticsService{}, DefaultSweepServiceConfig())

	if _, err := svc.GetSweep(context.Background(), uuid.New()); !errors.Is(err, repository.ErrSweepNotFound) {
		t.Errorf("GetSweep() error = %v, want ErrSweepNotFound", err)
	}
}
