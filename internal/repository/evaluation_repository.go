package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

const evaluationColumns = `
	id, proposal_id, vehicle, status, requested_by, evaluated_value, appraised_by,
	appraised_at, rejection_reason, responded_at, created_at, updated_at`

type evaluationRow struct {
	ID              uuid.UUID           `db:"id"`
	ProposalID      uuid.UUID           `db:"proposal_id"`
	Vehicle         types.JSONText      `db:"vehicle"`
	Status          string              `db:"status"`
	RequestedBy     uuid.UUID           `db:"requested_by"`
	EvaluatedValue  decimal.NullDecimal `db:"evaluated_value"`
	AppraisedBy     uuid.NullUUID       `db:"appraised_by"`
	AppraisedAt     sql.NullTime        `db:"appraised_at"`
	RejectionReason string              `db:"rejection_reason"`
	RespondedAt     sql.NullTime        `db:"responded_at"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

func newEvaluationRow(e *models.Evaluation) (*evaluationRow, error) {
	vehicle, err := nullJSON(e.Vehicle, false)
	if err != nil {
		return nil, err
	}
	row := &evaluationRow{
		ID:              e.ID,
		ProposalID:      e.ProposalID,
		Vehicle:         vehicle.JSONText,
		Status:          string(e.Status),
		RequestedBy:     e.RequestedBy,
		AppraisedBy:     nullUUID(e.AppraisedBy),
		AppraisedAt:     nullTime(e.AppraisedAt),
		RejectionReason: e.RejectionReason,
		RespondedAt:     nullTime(e.RespondedAt),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.EvaluatedValue != nil {
		row.EvaluatedValue = decimal.NullDecimal{Decimal: e.EvaluatedValue.Amount(), Valid: true}
	}
	return row, nil
}

func (r *evaluationRow) toModel() (*models.Evaluation, error) {
	e := &models.Evaluation{
		ID:              r.ID,
		ProposalID:      r.ProposalID,
		Status:          models.EvaluationStatus(r.Status),
		RequestedBy:     r.RequestedBy,
		AppraisedBy:     uuidPtr(r.AppraisedBy),
		AppraisedAt:     timePtr(r.AppraisedAt),
		RejectionReason: r.RejectionReason,
		RespondedAt:     timePtr(r.RespondedAt),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if err := r.Vehicle.Unmarshal(&e.Vehicle); err != nil {
		return nil, errors.Wrap(err, "failed to decode evaluation vehicle")
	}
	if r.EvaluatedValue.Valid {
		value, err := models.NewMoney(r.EvaluatedValue.Decimal)
		if err != nil {
			return nil, err
		}
		e.EvaluatedValue = &value
	}
	return e, nil
}

// evaluationRepository is the PostgreSQL implementation of EvaluationRepository
type evaluationRepository struct {
	q sqlx.ExtContext
}

// NewEvaluationRepository creates an EvaluationRepository bound to the pool
func NewEvaluationRepository(db *sqlx.DB) EvaluationRepository {
	return &evaluationRepository{q: db}
}

// Add inserts an evaluation
func (r *evaluationRepository) Add(ctx context.Context, evaluation *models.Evaluation) error {
	row, err := newEvaluationRow(evaluation)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO evaluations (` + evaluationColumns + `)
		VALUES (
			:id, :proposal_id, :vehicle, :status, :requested_by, :evaluated_value, :appraised_by,
			:appraised_at, :rejection_reason, :responded_at, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, row); err != nil {
		return translateError(errors.Wrap(err, "failed to create evaluation"))
	}
	return nil
}

// Update replaces the stored evaluation
func (r *evaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	row, err := newEvaluationRow(evaluation)
	if err != nil {
		return err
	}
	query := `
		UPDATE evaluations
		SET status = :status, evaluated_value = :evaluated_value, appraised_by = :appraised_by,
			appraised_at = :appraised_at, rejection_reason = :rejection_reason,
			responded_at = :responded_at, updated_at = :updated_at
		WHERE id = :id
	`
	bound, args, err := r.q.BindNamed(query, row)
	if err != nil {
		return errors.Wrap(err, "failed to bind evaluation update")
	}
	return execOne(ctx, r.q, "evaluation", evaluation.ID.String(), bound, args...)
}

// GetByID retrieves an evaluation by its ID
func (r *evaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error) {
	var row evaluationRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "evaluation", id.String(), "get")
	}
	return row.toModel()
}

// ListByProposal returns a proposal's evaluations, newest first
func (r *evaluationRepository) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*models.Evaluation, error) {
	var rows []evaluationRow
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE proposal_id = $1 ORDER BY created_at DESC, id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, proposalID); err != nil {
		return nil, errors.Wrap(err, "failed to list evaluations")
	}

	evaluations := make([]*models.Evaluation, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, e)
	}
	return evaluations, nil
}
