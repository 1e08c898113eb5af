package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

const evaluationEngine = "evaluation"

// EvaluationService runs the trade-in appraisal workflow
type EvaluationService struct {
	base
}

// NewEvaluationService creates an EvaluationService
func NewEvaluationService(uow repository.UnitOfWork, opts ...Option) *EvaluationService {
	return &EvaluationService{base: newBase(uow, opts)}
}

// Request opens an evaluation of the customer's used vehicle and parks the proposal until the
// customer answers
func (s *EvaluationService) Request(ctx context.Context, proposalID uuid.UUID, vehicle models.UsedVehicle, requestedBy uuid.UUID) (evaluation *models.Evaluation, err error) {
	ctx, finish := s.begin(ctx, evaluationEngine, "request", idAttr("proposal.id", proposalID))
	defer finish(&err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		proposal, err := tx.Proposals().GetByIDForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}

		now := s.clock()
		evaluation, err = models.NewEvaluation(uuid.New(), proposal.ID, vehicle, requestedBy, now)
		if err != nil {
			return err
		}

		before := proposal.Status
		if err := proposal.BeginEvaluation(now); err != nil {
			return err
		}
		if err := tx.Evaluations().Add(ctx, evaluation); err != nil {
			return err
		}
		if err := tx.Proposals().Update(ctx, proposal); err != nil {
			return err
		}
		logTransition(ctx, proposalEngine, proposal.ID, before, proposal.Status)

		return tx.Events().Record(ctx, models.EvaluationRequested{
			EventMeta:    models.NewEventMeta(requestedBy, now),
			EvaluationID: evaluation.ID,
			ProposalID:   proposal.ID,
			Vehicle:      evaluation.Vehicle,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(logger.WithEntityID(ctx, evaluation.ID), "Trade-in evaluation requested", "proposal_id", proposalID.String(), "plate", string(evaluation.Vehicle.Plate))
	return evaluation, nil
}

// Get returns an evaluation by id
func (s *EvaluationService) Get(ctx context.Context, id uuid.UUID) (evaluation *models.Evaluation, err error) {
	ctx, finish := s.begin(ctx, evaluationEngine, "get", idAttr("evaluation.id", id))
	defer finish(&err)

	return s.uow.Store().Evaluations().GetByID(ctx, id)
}

// ListByProposal returns the evaluations of a proposal, newest first
func (s *EvaluationService) ListByProposal(ctx context.Context, proposalID uuid.UUID) (evaluations []*models.Evaluation, err error) {
	ctx, finish := s.begin(ctx, evaluationEngine, "list", idAttr("proposal.id", proposalID))
	defer finish(&err)

	store := s.uow.Store()
	if _, err := store.Proposals().GetByID(ctx, proposalID); err != nil {
		return nil, err
	}
	return store.Evaluations().ListByProposal(ctx, proposalID)
}

// RegisterAppraisal stores the value supplied by the appraisal team
func (s *EvaluationService) RegisterAppraisal(ctx context.Context, id uuid.UUID, value models.Money, appraisedBy uuid.UUID) (evaluation *models.Evaluation, err error) {
	ctx, finish := s.begin(ctx, evaluationEngine, "register_appraisal", idAttr("evaluation.id", id))
	defer finish(&err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		evaluation, err = tx.Evaluations().GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := evaluation.Status
		if err := evaluation.RegisterAppraisal(value, appraisedBy, s.clock()); err != nil {
			return err
		}
		if err := tx.Evaluations().Update(ctx, evaluation); err != nil {
			return err
		}
		logTransition(ctx, evaluationEngine, evaluation.ID, before, evaluation.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evaluation, nil
}

// RegisterCustomerResponse records the customer's answer. On acceptance the evaluated value
// becomes the proposal's trade-in value in the same transaction.
func (s *EvaluationService) RegisterCustomerResponse(ctx context.Context, id uuid.UUID, accepted bool, rejectionReason string, actorID uuid.UUID) (evaluation *models.Evaluation, err error) {
	ctx, finish := s.begin(ctx, evaluationEngine, "register_response", idAttr("evaluation.id", id))
	defer finish(&err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		evaluation, err = tx.Evaluations().GetByID(ctx, id)
		if err != nil {
			return err
		}
		proposal, err := tx.Proposals().GetByIDForUpdate(ctx, evaluation.ProposalID)
		if err != nil {
			return err
		}

		now := s.clock()
		evaluationBefore := evaluation.Status
		value, err := evaluation.RegisterCustomerResponse(accepted, rejectionReason, now)
		if err != nil {
			return err
		}

		proposalBefore := proposal.Status
		if err := s.applyResponse(ctx, tx, evaluation, proposal, value, actorID, now); err != nil {
			return err
		}

		if err := tx.Evaluations().Update(ctx, evaluation); err != nil {
			return err
		}
		if err := tx.Proposals().Update(ctx, proposal); err != nil {
			return err
		}
		logTransition(ctx, evaluationEngine, evaluation.ID, evaluationBefore, evaluation.Status)
		logTransition(ctx, proposalEngine, proposal.ID, proposalBefore, proposal.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evaluation, nil
}

func (s *EvaluationService) applyResponse(ctx context.Context, tx repository.Store, evaluation *models.Evaluation, proposal *models.Proposal, value models.Money, actorID uuid.UUID, now time.Time) error {
	if evaluation.Status == models.EvaluationStatusAccepted {
		if err := proposal.SetTradeInValue(value, now); err != nil {
			return err
		}
		if err := tx.Events().Record(ctx, models.TradeInAccepted{
			EventMeta:    models.NewEventMeta(actorID, now),
			EvaluationID: evaluation.ID,
			ProposalID:   proposal.ID,
			Value:        value,
		}); err != nil {
			return err
		}
	}
	proposal.ResumeNegotiation(now)
	return nil
}
