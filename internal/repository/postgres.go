package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/queue"
)

// Postgres error codes the adapters translate
const (
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"
)

// postgresUnitOfWork implements UnitOfWork over a sqlx connection pool
type postgresUnitOfWork struct {
	db *sqlx.DB
}

// NewPostgresUnitOfWork creates a UnitOfWork backed by PostgreSQL
func NewPostgresUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &postgresUnitOfWork{db: db}
}

// Store returns repositories bound to the pool
func (u *postgresUnitOfWork) Store() Store {
	return &postgresStore{q: u.db}
}

// WithinTx runs fn inside a database transaction
func (u *postgresUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	// releases the connection when fn panics; a no-op after Commit
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &postgresStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateError(errors.Wrap(err, "failed to commit transaction"))
	}
	return nil
}

// postgresStore binds every repository to the same connection or transaction
type postgresStore struct {
	q sqlx.ExtContext
}

func (s *postgresStore) Leads() LeadRepository             { return &leadRepository{q: s.q} }
func (s *postgresStore) Proposals() ProposalRepository     { return &proposalRepository{q: s.q} }
func (s *postgresStore) TestDrives() TestDriveRepository   { return &testDriveRepository{q: s.q} }
func (s *postgresStore) Evaluations() EvaluationRepository { return &evaluationRepository{q: s.q} }
func (s *postgresStore) Events() EventRecorder             { return &outboxRecorder{q: s.q} }

// outboxRecorder writes domain events to outbox_events on the caller's connection
type outboxRecorder struct {
	q sqlx.ExtContext
}

// Record stores the event as a pending outbox row
func (r *outboxRecorder) Record(ctx context.Context, event models.DomainEvent) error {
	record, err := models.NewOutboxEvent(event)
	if err != nil {
		return err
	}
	return queue.Insert(ctx, r.q, record)
}

// translateError maps constraint violations onto domain errors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgExclusionViolation:
			return models.NewDomainError(models.DomainCodeVehicleUnavailable, "vehicle already booked in the requested window")
		case pgForeignKeyViolation:
			return models.NewValidationError(pqErr.Column, models.ValidationReasonUnrecognizedValue, "referenced entity does not exist")
		}
	}
	return err
}

// execOne runs a statement that must touch exactly one row
func execOne(ctx context.Context, q sqlx.ExecerContext, entity, id, query string, args ...interface{}) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(errors.Wrapf(err, "failed to update %s", entity))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}

	if rowsAffected == 0 {
		return models.NewNotFoundError(entity, id)
	}
	return nil
}

// whereBuilder accumulates AND-ed conditions with positional placeholders
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// add appends a condition; every "?" in expr is bound to the next argument
func (w *whereBuilder) add(expr string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		expr = strings.Replace(expr, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, expr)
}

func (w *whereBuilder) where() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// paging renders LIMIT/OFFSET, appending their arguments
func (w *whereBuilder) paging(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		w.args = append(w.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(w.args))
	}
	if offset > 0 {
		w.args = append(w.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(w.args))
	}
	return b.String()
}

func notFoundOr(err error, entity, id, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFoundError(entity, id)
	}
	return errors.Wrapf(err, "failed to %s %s", action, entity)
}
