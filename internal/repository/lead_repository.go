package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

const leadColumns = `
	id, name, email, phone, source, status, score, sales_person_id,
	interest, qualification, last_interaction_at, created_at, updated_at`

// leadRow is the flat database shape of a lead
type leadRow struct {
	ID                uuid.UUID          `db:"id"`
	Name              string             `db:"name"`
	Email             string             `db:"email"`
	Phone             string             `db:"phone"`
	Source            string             `db:"source"`
	Status            string             `db:"status"`
	Score             sql.NullString     `db:"score"`
	SalesPersonID     uuid.UUID          `db:"sales_person_id"`
	Interest          types.NullJSONText `db:"interest"`
	Qualification     types.NullJSONText `db:"qualification"`
	LastInteractionAt sql.NullTime       `db:"last_interaction_at"`
	CreatedAt         time.Time          `db:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at"`
}

func newLeadRow(l *models.Lead) (*leadRow, error) {
	row := &leadRow{
		ID:            l.ID,
		Name:          l.Name,
		Email:         l.Email.String(),
		Phone:         l.Phone.String(),
		Source:        string(l.Source),
		Status:        string(l.Status),
		Score:         sql.NullString{String: string(l.Score()), Valid: l.Score() != models.ScoreUnset},
		SalesPersonID: l.SalesPersonID,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
	var err error
	if row.Interest, err = nullJSON(l.Interest, l.Interest == nil); err != nil {
		return nil, err
	}
	if row.Qualification, err = nullJSON(l.Qualification, l.Qualification == nil); err != nil {
		return nil, err
	}
	if l.LastInteractionAt != nil {
		row.LastInteractionAt = sql.NullTime{Time: *l.LastInteractionAt, Valid: true}
	}
	return row, nil
}

func (r *leadRow) toModel() (*models.Lead, error) {
	lead := &models.Lead{
		ID:            r.ID,
		Name:          r.Name,
		Email:         models.Email(r.Email),
		Phone:         models.Phone(r.Phone),
		Source:        models.LeadSource(r.Source),
		Status:        models.LeadStatus(r.Status),
		SalesPersonID: r.SalesPersonID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Score.Valid {
		lead.RestoreScore(models.Score(r.Score.String))
	}
	if r.Interest.Valid {
		lead.Interest = &models.Interest{}
		if err := r.Interest.Unmarshal(lead.Interest); err != nil {
			return nil, errors.Wrap(err, "failed to decode lead interest")
		}
	}
	if r.Qualification.Valid {
		lead.Qualification = &models.Qualification{}
		if err := r.Qualification.Unmarshal(lead.Qualification); err != nil {
			return nil, errors.Wrap(err, "failed to decode lead qualification")
		}
	}
	if r.LastInteractionAt.Valid {
		at := r.LastInteractionAt.Time
		lead.LastInteractionAt = &at
	}
	return lead, nil
}

func nullJSON(v interface{}, isNil bool) (types.NullJSONText, error) {
	if isNil {
		return types.NullJSONText{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return types.NullJSONText{}, errors.Wrap(err, "failed to encode json column")
	}
	return types.NullJSONText{JSONText: types.JSONText(data), Valid: true}, nil
}

// leadRepository is the PostgreSQL implementation of LeadRepository
type leadRepository struct {
	q sqlx.ExtContext
}

// NewLeadRepository creates a LeadRepository bound to the pool
func NewLeadRepository(db *sqlx.DB) LeadRepository {
	return &leadRepository{q: db}
}

// Add inserts a new lead
func (r *leadRepository) Add(ctx context.Context, lead *models.Lead) error {
	row, err := newLeadRow(lead)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES (
			:id, :name, :email, :phone, :source, :status, :score, :sales_person_id,
			:interest, :qualification, :last_interaction_at, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, row); err != nil {
		return translateError(errors.Wrap(err, "failed to create lead"))
	}
	return nil
}

// Update replaces the stored lead
func (r *leadRepository) Update(ctx context.Context, lead *models.Lead) error {
	row, err := newLeadRow(lead)
	if err != nil {
		return err
	}

	query := `
		UPDATE leads
		SET name = :name, email = :email, phone = :phone, source = :source,
			status = :status, score = :score, sales_person_id = :sales_person_id,
			interest = :interest, qualification = :qualification,
			last_interaction_at = :last_interaction_at, updated_at = :updated_at
		WHERE id = :id
	`
	bound, args, err := r.q.BindNamed(query, row)
	if err != nil {
		return errors.Wrap(err, "failed to bind lead update")
	}
	return execOne(ctx, r.q, "lead", lead.ID.String(), bound, args...)
}

// GetByID retrieves a lead by its ID
func (r *leadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var row leadRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "lead", id.String(), "get")
	}
	return row.toModel()
}

func (r *leadRepository) whereClause(filter LeadFilter) *whereBuilder {
	w := &whereBuilder{}
	if len(filter.Statuses) > 0 {
		w.add("status = ANY(?)", pq.Array(stringValues(filter.Statuses)))
	}
	if len(filter.Scores) > 0 {
		w.add("score = ANY(?)", pq.Array(stringValues(filter.Scores)))
	}
	if filter.SalesPersonID != nil {
		w.add("sales_person_id = ?", *filter.SalesPersonID)
	}
	if filter.CreatedFrom != nil {
		w.add("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		w.add("created_at < ?", *filter.CreatedTo)
	}
	if filter.NoInteractionSince != nil {
		w.add("(last_interaction_at IS NULL OR last_interaction_at < ?)", *filter.NoInteractionSince)
	}
	return w
}

// List returns the leads matching the filter
func (r *leadRepository) List(ctx context.Context, filter LeadFilter) ([]*models.Lead, error) {
	w := r.whereClause(filter)

	order := " ORDER BY created_at DESC, id"
	if filter.OrderBy == LeadOrderHottest {
		order = ` ORDER BY CASE score
			WHEN 'Diamond' THEN 4 WHEN 'Gold' THEN 3 WHEN 'Silver' THEN 2 WHEN 'Bronze' THEN 1 ELSE 0
		END DESC, created_at DESC, id`
	}
	query := `SELECT ` + leadColumns + ` FROM leads` + w.where() + order + w.paging(filter.Limit, filter.Offset)

	var rows []leadRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "failed to list leads")
	}

	leads := make([]*models.Lead, 0, len(rows))
	for i := range rows {
		lead, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// Count returns how many leads match the filter
func (r *leadRepository) Count(ctx context.Context, filter LeadFilter) (int, error) {
	w := r.whereClause(filter)
	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, `SELECT COUNT(*) FROM leads`+w.where(), w.args...); err != nil {
		return 0, errors.Wrap(err, "failed to count leads")
	}
	return count, nil
}

// CountByStatus returns counts of leads grouped by status
func (r *leadRepository) CountByStatus(ctx context.Context, salesPersonID *uuid.UUID) (map[models.LeadStatus]int, error) {
	w := &whereBuilder{}
	if salesPersonID != nil {
		w.add("sales_person_id = ?", *salesPersonID)
	}
	query := `SELECT status, COUNT(*) AS count FROM leads` + w.where() + ` GROUP BY status`

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "failed to query lead counts")
	}

	counts := make(map[models.LeadStatus]int, len(rows))
	for _, row := range rows {
		counts[models.LeadStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// AddInteraction records an interaction
func (r *leadRepository) AddInteraction(ctx context.Context, interaction *models.Interaction) error {
	query := `
		INSERT INTO lead_interactions (id, lead_id, type, description, occurred_at, registered_at)
		VALUES (:id, :lead_id, :type, :description, :occurred_at, :registered_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, interaction); err != nil {
		return translateError(errors.Wrap(err, "failed to create interaction"))
	}
	return nil
}

// ListInteractions returns a lead's interactions, newest first
func (r *leadRepository) ListInteractions(ctx context.Context, leadID uuid.UUID) ([]*models.Interaction, error) {
	query := `
		SELECT id, lead_id, type, description, occurred_at, registered_at
		FROM lead_interactions
		WHERE lead_id = $1
		ORDER BY occurred_at DESC, registered_at DESC
	`
	interactions := []*models.Interaction{}
	if err := sqlx.SelectContext(ctx, r.q, &interactions, query, leadID); err != nil {
		return nil, errors.Wrap(err, "failed to list interactions")
	}
	return interactions, nil
}
