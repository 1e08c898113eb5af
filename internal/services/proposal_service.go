package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

const proposalEngine = "proposal"

// CreateProposalInput carries the terms of a new proposal
type CreateProposalInput struct {
	LeadID        uuid.UUID           `json:"leadId"`
	SalesPersonID uuid.UUID           `json:"salesPersonId"`
	Vehicle       models.VehicleTerms `json:"vehicle"`
	VehiclePrice  models.Money        `json:"vehiclePrice"`
	Payment       models.PaymentTerms `json:"payment"`
}

// ProposalService runs pricing, discounts and closing of proposals
type ProposalService struct {
	base
}

// NewProposalService creates a ProposalService
func NewProposalService(uow repository.UnitOfWork, opts ...Option) *ProposalService {
	return &ProposalService{base: newBase(uow, opts)}
}

// Create opens a proposal for an existing lead and moves the lead to ProposalSent
func (s *ProposalService) Create(ctx context.Context, in CreateProposalInput) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "create", idAttr("lead.id", in.LeadID))
	defer finish(&err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		lead, err := tx.Leads().GetByID(ctx, in.LeadID)
		if err != nil {
			return err
		}

		now := s.clock()
		proposal, err = models.NewProposal(uuid.New(), lead.ID, in.SalesPersonID, in.Vehicle, in.VehiclePrice, in.Payment, now)
		if err != nil {
			return err
		}
		if in.SalesPersonID == uuid.Nil {
			proposal.SalesPersonID = lead.SalesPersonID
		}
		if err := tx.Proposals().Add(ctx, proposal); err != nil {
			return err
		}
		return s.moveLead(ctx, tx, lead, models.LeadStatusProposalSent, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(logger.WithEntityID(ctx, proposal.ID), "Proposal created", "lead_id", proposal.LeadID.String(), "total", proposal.Total().String())
	return proposal, nil
}

// moveLead changes the lead status as a side effect of a proposal operation
func (s *ProposalService) moveLead(ctx context.Context, tx repository.Store, lead *models.Lead, status models.LeadStatus, now time.Time) error {
	old, err := lead.ChangeStatus(status, now)
	if err != nil {
		return err
	}
	if err := tx.Leads().Update(ctx, lead); err != nil {
		return err
	}
	logTransition(ctx, leadEngine, lead.ID, old, status)
	return nil
}

// Get returns a proposal by id
func (s *ProposalService) Get(ctx context.Context, id uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "get", idAttr("proposal.id", id))
	defer finish(&err)

	return s.uow.Store().Proposals().GetByID(ctx, id)
}

// List returns one page of proposals matching the filter
func (s *ProposalService) List(ctx context.Context, filter repository.ProposalFilter) (page *Page[*models.Proposal], err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "list")
	defer finish(&err)

	filter.Limit, filter.Offset = clampPaging(filter.Limit, filter.Offset)
	repo := s.uow.Store().Proposals()

	proposals, err := repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[*models.Proposal]{Items: proposals, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// mutate locks a proposal, applies fn and stores the result in one transaction.
// fn may use tx for side effects on other entities.
func (s *ProposalService) mutate(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx repository.Store, p *models.Proposal, now time.Time) error) (*models.Proposal, error) {
	var out *models.Proposal
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		proposal, err := tx.Proposals().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before := proposal.Status
		if err := fn(ctx, tx, proposal, s.clock()); err != nil {
			return err
		}
		if err := tx.Proposals().Update(ctx, proposal); err != nil {
			return err
		}
		logTransition(ctx, proposalEngine, proposal.ID, before, proposal.Status)
		out = proposal
		return nil
	})
	return out, err
}

// AddItem adds a priced line item
func (s *ProposalService) AddItem(ctx context.Context, id uuid.UUID, description string, price models.Money) (item *models.LineItem, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "add_item", idAttr("proposal.id", id))
	defer finish(&err)

	_, err = s.mutate(ctx, id, func(_ context.Context, _ repository.Store, p *models.Proposal, now time.Time) error {
		var err error
		item, err = p.AddItem(uuid.New(), description, price, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem removes a line item
func (s *ProposalService) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "remove_item", idAttr("proposal.id", id), idAttr("item.id", itemID))
	defer finish(&err)

	return s.mutate(ctx, id, func(_ context.Context, _ repository.Store, p *models.Proposal, now time.Time) error {
		return p.RemoveItem(itemID, now)
	})
}

// ApplyDiscount grants a discount or, above the threshold, asks a manager for approval
func (s *ProposalService) ApplyDiscount(ctx context.Context, id uuid.UUID, amount models.Money, reason string, requestedBy uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "apply_discount", idAttr("proposal.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(ctx context.Context, tx repository.Store, p *models.Proposal, now time.Time) error {
		needsApproval, err := p.ApplyDiscount(amount, reason, requestedBy, now)
		if err != nil || !needsApproval {
			return err
		}
		return s.requestApproval(ctx, tx, p, requestedBy, now)
	})
}

// requestApproval records the pending discount for the managers
func (s *ProposalService) requestApproval(ctx context.Context, tx repository.Store, p *models.Proposal, actor uuid.UUID, now time.Time) error {
	logger.Info(ctx, "Discount awaiting manager approval", "proposal_id", p.ID.String(), "amount", p.PendingDiscount.String())
	return tx.Events().Record(ctx, models.DiscountApprovalRequested{
		EventMeta:     models.NewEventMeta(actor, now),
		ProposalID:    p.ID,
		SalesPersonID: p.SalesPersonID,
		Amount:        *p.PendingDiscount,
		VehiclePrice:  p.VehiclePrice,
		Reason:        p.PendingDiscountReason,
	})
}

// ApproveDiscount makes the pending discount final
func (s *ProposalService) ApproveDiscount(ctx context.Context, id, managerID uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "approve_discount", idAttr("proposal.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(_ context.Context, _ repository.Store, p *models.Proposal, now time.Time) error {
		return p.ApproveDiscount(managerID, now)
	})
}

// RejectDiscount drops the pending discount. A granted discount that no longer fits under the
// threshold goes back to the managers.
func (s *ProposalService) RejectDiscount(ctx context.Context, id, managerID uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "reject_discount", idAttr("proposal.id", id))
	defer finish(&err)

	proposal, err = s.mutate(ctx, id, func(ctx context.Context, tx repository.Store, p *models.Proposal, now time.Time) error {
		requeued, err := p.RejectDiscount(now)
		if err != nil || !requeued {
			return err
		}
		return s.requestApproval(ctx, tx, p, *p.DiscountRequestedBy, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(logger.WithActorID(ctx, managerID), "Discount rejected", "proposal_id", id.String())
	return proposal, nil
}

// Close completes the sale, converts the lead and records SaleClosed for the order subsystem
func (s *ProposalService) Close(ctx context.Context, id, salesPersonID uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "close", idAttr("proposal.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(ctx context.Context, tx repository.Store, p *models.Proposal, now time.Time) error {
		if err := p.Close(salesPersonID, now); err != nil {
			return err
		}

		lead, err := tx.Leads().GetByID(ctx, p.LeadID)
		if err != nil {
			return err
		}
		if err := s.moveLead(ctx, tx, lead, models.LeadStatusConverted, now); err != nil {
			return err
		}

		return tx.Events().Record(ctx, models.SaleClosed{
			EventMeta:     models.NewEventMeta(salesPersonID, now),
			ProposalID:    p.ID,
			LeadID:        p.LeadID,
			SalesPersonID: salesPersonID,
			Vehicle:       p.Vehicle,
			VehiclePrice:  p.VehiclePrice,
			Discount:      p.Discount,
			TradeInValue:  p.TradeInValue,
			TotalValue:    p.Total(),
			PaymentMethod: p.Payment.Method,
		})
	})
}

// MarkLost ends the negotiation without a sale
func (s *ProposalService) MarkLost(ctx context.Context, id uuid.UUID, reason string, by uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "mark_lost", idAttr("proposal.id", id))
	defer finish(&err)

	proposal, err = s.mutate(ctx, id, func(_ context.Context, _ repository.Store, p *models.Proposal, now time.Time) error {
		return p.MarkLost(reason, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(logger.WithActorID(ctx, by), "Proposal lost", "proposal_id", id.String(), "reason", proposal.LostReason)
	return proposal, nil
}

// UpdateVehicleInfo replaces the vehicle terms and price. A price drop that pushes an
// unapproved discount over the threshold asks the managers for approval on behalf of by.
func (s *ProposalService) UpdateVehicleInfo(ctx context.Context, id uuid.UUID, vehicle models.VehicleTerms, price models.Money, by uuid.UUID) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "update_vehicle", idAttr("proposal.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(ctx context.Context, tx repository.Store, p *models.Proposal, now time.Time) error {
		needsApproval, err := p.UpdateVehicleInfo(vehicle, price, by, now)
		if err != nil || !needsApproval {
			return err
		}
		return s.requestApproval(ctx, tx, p, by, now)
	})
}

// UpdatePaymentInfo replaces the payment terms
func (s *ProposalService) UpdatePaymentInfo(ctx context.Context, id uuid.UUID, payment models.PaymentTerms) (proposal *models.Proposal, err error) {
	ctx, finish := s.begin(ctx, proposalEngine, "update_payment", idAttr("proposal.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(_ context.Context, _ repository.Store, p *models.Proposal, now time.Time) error {
		return p.UpdatePaymentInfo(payment, now)
	})
}
