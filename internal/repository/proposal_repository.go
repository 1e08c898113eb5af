package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

const proposalColumns = `
	id, lead_id, sales_person_id, status, vehicle, vehicle_price, payment,
	discount, discount_reason, discount_approved_by,
	pending_discount, pending_discount_reason, discount_requested_by,
	trade_in_value, lost_reason, closed_by, closed_at, created_at, updated_at`

type proposalRow struct {
	ID                    uuid.UUID           `db:"id"`
	LeadID                uuid.UUID           `db:"lead_id"`
	SalesPersonID         uuid.UUID           `db:"sales_person_id"`
	Status                string              `db:"status"`
	Vehicle               types.JSONText      `db:"vehicle"`
	VehiclePrice          models.Money        `db:"vehicle_price"`
	Payment               types.JSONText      `db:"payment"`
	Discount              models.Money        `db:"discount"`
	DiscountReason        string              `db:"discount_reason"`
	DiscountApprovedBy    uuid.NullUUID       `db:"discount_approved_by"`
	PendingDiscount       decimal.NullDecimal `db:"pending_discount"`
	PendingDiscountReason string              `db:"pending_discount_reason"`
	DiscountRequestedBy   uuid.NullUUID       `db:"discount_requested_by"`
	TradeInValue          models.Money        `db:"trade_in_value"`
	LostReason            string              `db:"lost_reason"`
	ClosedBy              uuid.NullUUID       `db:"closed_by"`
	ClosedAt              sql.NullTime        `db:"closed_at"`
	CreatedAt             time.Time           `db:"created_at"`
	UpdatedAt             time.Time           `db:"updated_at"`
}

type lineItemRow struct {
	ID          uuid.UUID    `db:"id"`
	ProposalID  uuid.UUID    `db:"proposal_id"`
	Position    int          `db:"position"`
	Description string       `db:"description"`
	Price       models.Money `db:"price"`
}

func newProposalRow(p *models.Proposal) (*proposalRow, error) {
	vehicle, err := nullJSON(p.Vehicle, false)
	if err != nil {
		return nil, err
	}
	payment, err := nullJSON(p.Payment, false)
	if err != nil {
		return nil, err
	}
	row := &proposalRow{
		ID:                    p.ID,
		LeadID:                p.LeadID,
		SalesPersonID:         p.SalesPersonID,
		Status:                string(p.Status),
		Vehicle:               vehicle.JSONText,
		VehiclePrice:          p.VehiclePrice,
		Payment:               payment.JSONText,
		Discount:              p.Discount,
		DiscountReason:        p.DiscountReason,
		DiscountApprovedBy:    nullUUID(p.DiscountApprovedBy),
		PendingDiscountReason: p.PendingDiscountReason,
		DiscountRequestedBy:   nullUUID(p.DiscountRequestedBy),
		TradeInValue:          p.TradeInValue,
		LostReason:            p.LostReason,
		ClosedBy:              nullUUID(p.ClosedBy),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
	if p.PendingDiscount != nil {
		row.PendingDiscount = decimal.NullDecimal{Decimal: p.PendingDiscount.Amount(), Valid: true}
	}
	if p.ClosedAt != nil {
		row.ClosedAt = sql.NullTime{Time: *p.ClosedAt, Valid: true}
	}
	return row, nil
}

func (r *proposalRow) toModel(items []lineItemRow) (*models.Proposal, error) {
	p := &models.Proposal{
		ID:                    r.ID,
		LeadID:                r.LeadID,
		SalesPersonID:         r.SalesPersonID,
		Status:                models.ProposalStatus(r.Status),
		VehiclePrice:          r.VehiclePrice,
		Items:                 make([]models.LineItem, 0, len(items)),
		Discount:              r.Discount,
		DiscountReason:        r.DiscountReason,
		DiscountApprovedBy:    uuidPtr(r.DiscountApprovedBy),
		PendingDiscountReason: r.PendingDiscountReason,
		DiscountRequestedBy:   uuidPtr(r.DiscountRequestedBy),
		TradeInValue:          r.TradeInValue,
		LostReason:            r.LostReason,
		ClosedBy:              uuidPtr(r.ClosedBy),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
	if err := r.Vehicle.Unmarshal(&p.Vehicle); err != nil {
		return nil, errors.Wrap(err, "failed to decode proposal vehicle")
	}
	if err := r.Payment.Unmarshal(&p.Payment); err != nil {
		return nil, errors.Wrap(err, "failed to decode proposal payment")
	}
	if r.PendingDiscount.Valid {
		pending, err := models.NewMoney(r.PendingDiscount.Decimal)
		if err != nil {
			return nil, err
		}
		p.PendingDiscount = &pending
	}
	if r.ClosedAt.Valid {
		at := r.ClosedAt.Time
		p.ClosedAt = &at
	}
	for _, item := range items {
		p.Items = append(p.Items, models.LineItem{ID: item.ID, Description: item.Description, Price: item.Price})
	}
	return p, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

// proposalRepository is the PostgreSQL implementation of ProposalRepository
type proposalRepository struct {
	q sqlx.ExtContext
}

// NewProposalRepository creates a ProposalRepository bound to the pool
func NewProposalRepository(db *sqlx.DB) ProposalRepository {
	return &proposalRepository{q: db}
}

// Add inserts a proposal and its line items
func (r *proposalRepository) Add(ctx context.Context, proposal *models.Proposal) error {
	row, err := newProposalRow(proposal)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO proposals (` + proposalColumns + `)
		VALUES (
			:id, :lead_id, :sales_person_id, :status, :vehicle, :vehicle_price, :payment,
			:discount, :discount_reason, :discount_approved_by,
			:pending_discount, :pending_discount_reason, :discount_requested_by,
			:trade_in_value, :lost_reason, :closed_by, :closed_at, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, row); err != nil {
		return translateError(errors.Wrap(err, "failed to create proposal"))
	}
	return r.replaceItems(ctx, proposal)
}

// Update replaces the stored proposal and its line items
func (r *proposalRepository) Update(ctx context.Context, proposal *models.Proposal) error {
	row, err := newProposalRow(proposal)
	if err != nil {
		return err
	}

	query := `
		UPDATE proposals
		SET status = :status, vehicle = :vehicle, vehicle_price = :vehicle_price, payment = :payment,
			discount = :discount, discount_reason = :discount_reason,
			discount_approved_by = :discount_approved_by, pending_discount = :pending_discount,
			pending_discount_reason = :pending_discount_reason,
			discount_requested_by = :discount_requested_by, trade_in_value = :trade_in_value,
			lost_reason = :lost_reason, closed_by = :closed_by, closed_at = :closed_at,
			updated_at = :updated_at
		WHERE id = :id
	`
	bound, args, err := r.q.BindNamed(query, row)
	if err != nil {
		return errors.Wrap(err, "failed to bind proposal update")
	}
	if err := execOne(ctx, r.q, "proposal", proposal.ID.String(), bound, args...); err != nil {
		return err
	}
	return r.replaceItems(ctx, proposal)
}

func (r *proposalRepository) replaceItems(ctx context.Context, proposal *models.Proposal) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM proposal_items WHERE proposal_id = $1`, proposal.ID); err != nil {
		return errors.Wrap(err, "failed to clear proposal items")
	}
	for i, item := range proposal.Items {
		row := lineItemRow{
			ID:          item.ID,
			ProposalID:  proposal.ID,
			Position:    i,
			Description: item.Description,
			Price:       item.Price,
		}
		query := `
			INSERT INTO proposal_items (id, proposal_id, position, description, price)
			VALUES (:id, :proposal_id, :position, :description, :price)
		`
		if _, err := sqlx.NamedExecContext(ctx, r.q, query, row); err != nil {
			return errors.Wrap(err, "failed to create proposal item")
		}
	}
	return nil
}

func (r *proposalRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var row proposalRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, id); err != nil {
		return nil, notFoundOr(err, "proposal", id.String(), "get")
	}

	items, err := r.itemsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return row.toModel(items[id])
}

// GetByID retrieves a proposal by its ID
func (r *proposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves a proposal with a row lock
func (r *proposalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return r.get(ctx, id, true)
}

func (r *proposalRepository) itemsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]lineItemRow, error) {
	grouped := make(map[uuid.UUID][]lineItemRow, len(ids))
	if len(ids) == 0 {
		return grouped, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var rows []lineItemRow
	query := `
		SELECT id, proposal_id, position, description, price
		FROM proposal_items
		WHERE proposal_id = ANY($1::uuid[])
		ORDER BY proposal_id, position
	`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, pq.Array(keys)); err != nil {
		return nil, errors.Wrap(err, "failed to load proposal items")
	}
	for _, row := range rows {
		grouped[row.ProposalID] = append(grouped[row.ProposalID], row)
	}
	return grouped, nil
}

func (r *proposalRepository) whereClause(filter ProposalFilter) *whereBuilder {
	w := &whereBuilder{}
	if len(filter.Statuses) > 0 {
		w.add("status = ANY(?)", pq.Array(stringValues(filter.Statuses)))
	}
	if filter.LeadID != nil {
		w.add("lead_id = ?", *filter.LeadID)
	}
	if filter.SalesPersonID != nil {
		w.add("sales_person_id = ?", *filter.SalesPersonID)
	}
	return w
}

// List returns the proposals matching the filter
func (r *proposalRepository) List(ctx context.Context, filter ProposalFilter) ([]*models.Proposal, error) {
	w := r.whereClause(filter)

	order := " ORDER BY created_at DESC, id"
	if filter.OrderBy == ProposalOrderStalest {
		order = " ORDER BY updated_at ASC, id"
	}
	query := `SELECT ` + proposalColumns + ` FROM proposals` + w.where() + order + w.paging(filter.Limit, filter.Offset)

	var rows []proposalRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "failed to list proposals")
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	proposals := make([]*models.Proposal, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toModel(items[rows[i].ID])
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// Count returns how many proposals match the filter
func (r *proposalRepository) Count(ctx context.Context, filter ProposalFilter) (int, error) {
	w := r.whereClause(filter)
	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, `SELECT COUNT(*) FROM proposals`+w.where(), w.args...); err != nil {
		return 0, errors.Wrap(err, "failed to count proposals")
	}
	return count, nil
}
