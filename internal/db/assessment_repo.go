package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"fishwatch/internal/reasoning"
	"fishwatch/internal/types"
)

const assessmentColumns = `id::text, verdict, confidence, ocean, country, reasons,
	latitude, longitude, speed, proximity, assessed_at`

// AssessmentRepository stores completed assessments for the history API.
type AssessmentRepository struct {
	db DBTX
}

// NewAssessmentRepository creates a repository backed by a pool or transaction.
func NewAssessmentRepository(db DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Insert stores a. The ID is assigned by the caller.
func (r *AssessmentRepository) Insert(ctx context.Context, a *types.Assessment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO assessments
		 (id, verdict, confidence, ocean, country, reasons,
		  latitude, longitude, speed, proximity, assessed_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID,
		string(a.Verdict),
		a.Confidence,
		a.Ocean,
		a.Country,
		reasonsOrEmpty(a.Reasons),
		a.Observation.Latitude,
		a.Observation.Longitude,
		a.Observation.Speed,
		a.Observation.Proximity,
		a.AssessedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert assessment", err)
	}
	return nil
}

// GetByID returns one assessment or a not_found_assessment error.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*types.Assessment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+assessmentColumns+`
		 FROM assessments
		 WHERE id = $1::uuid`,
		id,
	)

	a, err := scanAssessment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundAssessment, "assessment not found", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load assessment", err)
	}
	return a, nil
}

// ListRecent returns up to limit assessments, newest first.
func (r *AssessmentRepository) ListRecent(ctx context.Context, limit int) ([]*types.Assessment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+assessmentColumns+`
		 FROM assessments
		 ORDER BY assessed_at DESC, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list assessments", err)
	}
	defer rows.Close()

	out := make([]*types.Assessment, 0, limit)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan assessment", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate assessments", err)
	}
	return out, nil
}

// scanAssessment reads one row in assessmentColumns order. The joined
// Reasoning string is rebuilt from the stored reasons.
func scanAssessment(row pgx.Row) (*types.Assessment, error) {
	var (
		a       types.Assessment
		verdict string
	)
	if err := row.Scan(
		&a.ID,
		&verdict,
		&a.Confidence,
		&a.Ocean,
		&a.Country,
		&a.Reasons,
		&a.Observation.Latitude,
		&a.Observation.Longitude,
		&a.Observation.Speed,
		&a.Observation.Proximity,
		&a.AssessedAt,
	); err != nil {
		return nil, err
	}

	a.Verdict = types.VerdictLabel(verdict)
	a.Reasoning = reasoning.Join(a.Reasons)
	a.AssessedAt = a.AssessedAt.UTC()
	return &a, nil
}

func reasonsOrEmpty(reasons []string) []string {
	if reasons == nil {
		return []string{}
	}
	return reasons
}

// DeleteBefore removes assessments recorded before cutoff and returns how many
// rows were deleted.
func (r *AssessmentRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM assessments WHERE assessed_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to prune assessments", err)
	}
	return tag.RowsAffected(), nil
}

// CountBefore reports how many assessments DeleteBefore would remove.
func (r *AssessmentRepository) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM assessments WHERE assessed_at < $1`,
		cutoff,
	).Scan(&n)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count assessments", err)
	}
	return n, nil
}
