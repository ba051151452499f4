package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/domain/repository"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/metrics"
)

// SweepRepository implements repository.SweepRepository using PostgreSQL.
// The report is stored as a jsonb document.
type SweepRepository struct {
	db DBTX
}

// NewSweepRepository creates a new SweepRepository instance.
func NewSweepRepository(db DBTX) *SweepRepository {
	return &SweepRepository{db: db}
}

// Create persists a new sweep.
func (r *SweepRepository) Create(ctx context.Context, sweep *model.Sweep) error {
	const query = `
		INSERT INTO sweeps (id, status, report, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	report, err := encodeReport(sweep.Report)
	if err != nil {
		return err
	}

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableSweeps).Inc()

	_, err = r.db.Exec(ctx, query,
		sweep.ID,
		sweep.Status.String(),
		report,
		nullString(sweep.Error),
		sweep.CreatedAt,
		sweep.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep: %w", err)
	}

	return nil
}

// GetByID retrieves a sweep by its unique identifier.
func (r *SweepRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Sweep, error) {
	const query = `
		SELECT id, status, report, error, created_at, updated_at
		FROM sweeps
		WHERE id = $1
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableSweeps).Inc()

	var (
		sweep  model.Sweep
		status string
		report []byte
		errMsg *string
	)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&sweep.ID,
		&status,
		&report,
		&errMsg,
		&sweep.CreatedAt,
		&sweep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrSweepNotFound
		}
		return nil, fmt.Errorf("failed to get sweep by ID: %w", err)
	}

	sweep.Status = model.SweepStatus(status)
	if errMsg != nil {
		sweep.Error = *errMsg
	}
	if len(report) > 0 {
		var rep model.SweepReport
		if err := json.Unmarshal(report, &rep); err != nil {
			return nil, fmt.Errorf("failed to decode sweep report: %w", err)
		}
		sweep.Report = &rep
	}

	return &sweep, nil
}

// Update persists status, report and error of an existing sweep.
func (r *SweepRepository) Update(ctx context.Context, sweep *model.Sweep) error {
	const query = `
		UPDATE sweeps
		SET status = $2, report = $3, error = $4, updated_at = $5
		WHERE id = $1
	`

	report, err := encodeReport(sweep.Report)
	if err != nil {
		return err
	}

	sweep.UpdatedAt = time.Now()

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableSweeps).Inc()

	tag, err := r.db.Exec(ctx, query,
		sweep.ID,
		sweep.Status.String(),
		report,
		nullString(sweep.Error),
		sweep.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update sweep: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrSweepNotFound
	}

	return nil
}

// encodeReport returns nil for a missing report so the column stays NULL.
func encodeReport(report *model.SweepReport) ([]byte, error) {
	if report == nil {
		return nil, nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sweep report: %w", err)
	}
	return data, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that SweepRepository implements repository.SweepRepository.
var _ repository.SweepRepository = (*SweepRepository)(nil)
