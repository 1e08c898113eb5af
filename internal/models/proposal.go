package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountApprovalThreshold is the largest discount-to-price ratio a sales person may apply
// without manager approval. The comparison is inclusive: exactly 5% applies immediately.
var DiscountApprovalThreshold = decimal.RequireFromString("0.05")

const maxInstallments = 120

// LineItem is an extra priced item on a proposal (accessories, services, fees)
type LineItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	Price       Money     `json:"price" db:"price"`
}

// PaymentTerms describes how the customer will pay
type PaymentTerms struct {
	Method       PaymentMethod `json:"method"`
	DownPayment  *Money        `json:"downPayment,omitempty"`
	Installments *int          `json:"installments,omitempty"`
}

// Normalized validates the payment terms
func (p PaymentTerms) Normalized() (PaymentTerms, error) {
	out := p
	method, err := ParsePaymentMethod(string(p.Method))
	if err != nil {
		return PaymentTerms{}, err
	}
	out.Method = method

	if p.Installments != nil && (*p.Installments < 1 || *p.Installments > maxInstallments) {
		return PaymentTerms{}, NewValidationError("installments", ValidationReasonOutOfRange, "installments must be between 1 and 120")
	}
	if method == PaymentMethodCash && p.Installments != nil && *p.Installments > 1 {
		return PaymentTerms{}, NewValidationError("installments", ValidationReasonOutOfRange, "cash payments are not split into installments")
	}
	return out, nil
}

// Proposal is a priced offer for one vehicle tied to one lead
type Proposal struct {
	ID            uuid.UUID      `json:"id"`
	LeadID        uuid.UUID      `json:"leadId"`
	SalesPersonID uuid.UUID      `json:"salesPersonId"`
	Status        ProposalStatus `json:"status"`
	Vehicle       VehicleTerms   `json:"vehicle"`
	VehiclePrice  Money          `json:"vehiclePrice"`
	Items         []LineItem     `json:"items"`
	Payment       PaymentTerms   `json:"payment"`

	Discount           Money      `json:"discount"`
	DiscountReason     string     `json:"discountReason,omitempty"`
	DiscountApprovedBy *uuid.UUID `json:"discountApprovedBy,omitempty"`

	// Pending discount awaiting a manager decision. The amount is cumulative and replaces
	// Discount on approval.
	PendingDiscount       *Money     `json:"pendingDiscount,omitempty"`
	PendingDiscountReason string     `json:"pendingDiscountReason,omitempty"`
	DiscountRequestedBy   *uuid.UUID `json:"discountRequestedBy,omitempty"`

	TradeInValue Money `json:"tradeInValue"`

	LostReason string     `json:"lostReason,omitempty"`
	ClosedBy   *uuid.UUID `json:"closedBy,omitempty"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// NewProposal creates a proposal in AwaitingCustomer
func NewProposal(id, leadID, salesPersonID uuid.UUID, vehicle VehicleTerms, price Money, payment PaymentTerms, now time.Time) (*Proposal, error) {
	terms, err := vehicle.Normalized()
	if err != nil {
		return nil, err
	}
	if price.IsZero() {
		return nil, NewValidationError("vehiclePrice", ValidationReasonOutOfRange, "vehicle price must be greater than zero")
	}
	pay, err := payment.Normalized()
	if err != nil {
		return nil, err
	}
	if pay.DownPayment != nil && pay.DownPayment.Cmp(price) > 0 {
		return nil, NewValidationError("downPayment", ValidationReasonOutOfRange, "down payment exceeds vehicle price")
	}

	return &Proposal{
		ID:            id,
		LeadID:        leadID,
		SalesPersonID: salesPersonID,
		Status:        ProposalStatusAwaitingCustomer,
		Vehicle:       terms,
		VehiclePrice:  price,
		Items:         []LineItem{},
		Payment:       pay,
		Discount:      ZeroMoney,
		TradeInValue:  ZeroMoney,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// computeTotal returns price + items - discount - tradeIn, failing when it would go negative
func computeTotal(price Money, items []LineItem, discount, tradeIn Money) (Money, error) {
	gross := price
	for _, item := range items {
		gross = gross.Add(item.Price)
	}
	total, err := gross.Sub(discount.Add(tradeIn))
	if err != nil {
		return ZeroMoney, NewDomainError(DomainCodeNegativeTotal,
			"total would be negative: gross %s, discount %s, trade-in %s", gross, discount, tradeIn)
	}
	return total, nil
}

// Total returns the current total value
func (p *Proposal) Total() Money {
	total, err := computeTotal(p.VehiclePrice, p.Items, p.Discount, p.TradeInValue)
	if err != nil {
		return ZeroMoney
	}
	return total
}

// ItemsTotal returns the sum of the extra line items
func (p *Proposal) ItemsTotal() Money {
	sum := ZeroMoney
	for _, item := range p.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}

func (p *Proposal) ensureEditable() error {
	if p.Status.IsTerminal() {
		return NewDomainError(DomainCodeProposalLocked, "proposal %s is %s", p.ID, p.Status)
	}
	return nil
}

// touchNegotiation moves a proposal out of AwaitingCustomer once terms start changing
func (p *Proposal) touchNegotiation(now time.Time) {
	if p.Status == ProposalStatusAwaitingCustomer {
		p.Status = ProposalStatusInNegotiation
	}
	p.UpdatedAt = now
}

// AddItem appends a line item
func (p *Proposal) AddItem(id uuid.UUID, description string, price Money, now time.Time) (*LineItem, error) {
	if err := p.ensureEditable(); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, NewValidationError("description", ValidationReasonMissingRequiredField, "")
	}
	if price.IsZero() {
		return nil, NewValidationError("price", ValidationReasonOutOfRange, "item price must be greater than zero")
	}
	item := LineItem{ID: id, Description: description, Price: price}
	p.Items = append(p.Items, item)
	p.touchNegotiation(now)
	return &item, nil
}

// RemoveItem deletes the line item with the given id
func (p *Proposal) RemoveItem(itemID uuid.UUID, now time.Time) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	idx := -1
	for i, item := range p.Items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NewNotFoundError("line item", itemID.String())
	}

	remaining := make([]LineItem, 0, len(p.Items)-1)
	remaining = append(remaining, p.Items[:idx]...)
	remaining = append(remaining, p.Items[idx+1:]...)
	if _, err := computeTotal(p.VehiclePrice, remaining, p.Discount, p.TradeInValue); err != nil {
		return err
	}
	p.Items = remaining
	p.touchNegotiation(now)
	return nil
}

// ApplyDiscount adds amount to the discount granted so far. When the cumulative discount
// exceeds DiscountApprovalThreshold of the vehicle price it is held pending and the proposal
// waits for a manager. The returned flag reports whether approval is required.
func (p *Proposal) ApplyDiscount(amount Money, reason string, requestedBy uuid.UUID, now time.Time) (bool, error) {
	if err := p.ensureEditable(); err != nil {
		return false, err
	}
	if p.Status == ProposalStatusAwaitingDiscountApproval {
		return false, NewDomainError(DomainCodeDiscountPendingApproval, "proposal %s already has a discount awaiting approval", p.ID)
	}
	if amount.IsZero() {
		return false, NewValidationError("amount", ValidationReasonOutOfRange, "discount must be greater than zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false, NewValidationError("reason", ValidationReasonMissingRequiredField, "a reason is required for discounts")
	}

	cumulative := p.Discount.Add(amount)
	if _, err := computeTotal(p.VehiclePrice, p.Items, cumulative, p.TradeInValue); err != nil {
		return false, err
	}

	if cumulative.Ratio(p.VehiclePrice).GreaterThan(DiscountApprovalThreshold) {
		p.requestApproval(cumulative, reason, requestedBy)
		p.UpdatedAt = now
		return true, nil
	}

	p.Discount = cumulative
	p.DiscountReason = reason
	p.UpdatedAt = now
	return false, nil
}

// ApproveDiscount makes the pending discount final and records the approver
func (p *Proposal) ApproveDiscount(managerID uuid.UUID, now time.Time) error {
	if p.Status != ProposalStatusAwaitingDiscountApproval || p.PendingDiscount == nil {
		return NewDomainError(DomainCodeInvalidTransition, "proposal %s has no discount awaiting approval (status %s)", p.ID, p.Status)
	}
	if _, err := computeTotal(p.VehiclePrice, p.Items, *p.PendingDiscount, p.TradeInValue); err != nil {
		return err
	}
	approver := managerID
	p.Discount = *p.PendingDiscount
	p.DiscountReason = p.PendingDiscountReason
	p.DiscountApprovedBy = &approver
	p.clearPendingDiscount()
	p.Status = ProposalStatusApproved
	p.UpdatedAt = now
	return nil
}

// RejectDiscount drops the pending discount and returns the proposal to negotiation.
// The previously granted discount stays in place. When that discount itself no longer fits
// under the threshold it is queued for approval instead, and the returned flag is true. A
// rejected review of the granted discount removes it.
func (p *Proposal) RejectDiscount(now time.Time) (bool, error) {
	if p.Status != ProposalStatusAwaitingDiscountApproval {
		return false, NewDomainError(DomainCodeInvalidTransition, "proposal %s has no discount awaiting approval (status %s)", p.ID, p.Status)
	}
	requester := p.DiscountRequestedBy
	reviewedGranted := p.PendingDiscount != nil && p.PendingDiscount.Equal(p.Discount)
	p.clearPendingDiscount()
	p.UpdatedAt = now

	if p.exceedsUnapproved() {
		if reviewedGranted {
			p.Discount = ZeroMoney
			p.DiscountReason = ""
		} else {
			if requester == nil {
				owner := p.SalesPersonID
				requester = &owner
			}
			p.requestApproval(p.Discount, p.DiscountReason, *requester)
			return true, nil
		}
	}
	p.Status = ProposalStatusInNegotiation
	return false, nil
}

// exceedsUnapproved reports whether the applied discount is over the threshold without a
// manager having approved it
func (p *Proposal) exceedsUnapproved() bool {
	return p.DiscountApprovedBy == nil && p.Discount.Ratio(p.VehiclePrice).GreaterThan(DiscountApprovalThreshold)
}

func (p *Proposal) requestApproval(amount Money, reason string, requestedBy uuid.UUID) {
	pending := amount
	requester := requestedBy
	p.PendingDiscount = &pending
	p.PendingDiscountReason = reason
	p.DiscountRequestedBy = &requester
	p.Status = ProposalStatusAwaitingDiscountApproval
}

func (p *Proposal) clearPendingDiscount() {
	p.PendingDiscount = nil
	p.PendingDiscountReason = ""
	p.DiscountRequestedBy = nil
}

// UpdateVehicleInfo replaces the vehicle terms and price. An unapproved discount that no
// longer fits under the threshold is sent to a manager on behalf of requestedBy; the
// returned flag reports whether that happened. The discount stays applied meanwhile and
// Close is refused until a manager decides.
func (p *Proposal) UpdateVehicleInfo(vehicle VehicleTerms, price Money, requestedBy uuid.UUID, now time.Time) (bool, error) {
	if err := p.ensureEditable(); err != nil {
		return false, err
	}
	terms, err := vehicle.Normalized()
	if err != nil {
		return false, err
	}
	if price.IsZero() {
		return false, NewValidationError("vehiclePrice", ValidationReasonOutOfRange, "vehicle price must be greater than zero")
	}
	if _, err := computeTotal(price, p.Items, p.Discount, p.TradeInValue); err != nil {
		return false, err
	}

	p.Vehicle = terms
	p.VehiclePrice = price
	p.touchNegotiation(now)

	// a pending request already covers the cumulative amount
	if p.Status != ProposalStatusAwaitingDiscountApproval && p.exceedsUnapproved() {
		p.requestApproval(p.Discount, p.DiscountReason, requestedBy)
		return true, nil
	}
	return false, nil
}

// UpdatePaymentInfo replaces the payment terms
func (p *Proposal) UpdatePaymentInfo(payment PaymentTerms, now time.Time) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	pay, err := payment.Normalized()
	if err != nil {
		return err
	}
	if pay.DownPayment != nil && pay.DownPayment.Cmp(p.VehiclePrice) > 0 {
		return NewValidationError("downPayment", ValidationReasonOutOfRange, "down payment exceeds vehicle price")
	}
	p.Payment = pay
	p.touchNegotiation(now)
	return nil
}

// BeginEvaluation marks the proposal as waiting for a trade-in appraisal. A proposal waiting
// for discount approval keeps that status so the approval gate is not bypassed.
func (p *Proposal) BeginEvaluation(now time.Time) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	if p.Status != ProposalStatusAwaitingDiscountApproval {
		p.Status = ProposalStatusAwaitingUsedVehicleEvaluation
	}
	p.UpdatedAt = now
	return nil
}

// ResumeNegotiation returns a proposal waiting on an appraisal to negotiation
func (p *Proposal) ResumeNegotiation(now time.Time) {
	if p.Status == ProposalStatusAwaitingUsedVehicleEvaluation {
		p.Status = ProposalStatusInNegotiation
		p.UpdatedAt = now
	}
}

// SetTradeInValue applies the value of an accepted trade-in evaluation
func (p *Proposal) SetTradeInValue(value Money, now time.Time) error {
	if err := p.ensureEditable(); err != nil {
		return err
	}
	if _, err := computeTotal(p.VehiclePrice, p.Items, p.Discount, value); err != nil {
		return err
	}
	p.TradeInValue = value
	p.UpdatedAt = now
	return nil
}

// Close completes the sale
func (p *Proposal) Close(salesPersonID uuid.UUID, now time.Time) error {
	switch p.Status {
	case ProposalStatusClosed, ProposalStatusLost:
		return NewDomainError(DomainCodeInvalidTransition, "proposal %s is already %s", p.ID, p.Status)
	case ProposalStatusAwaitingDiscountApproval:
		return NewDomainError(DomainCodeDiscountPendingApproval, "proposal %s has a discount awaiting approval", p.ID)
	}
	if _, err := computeTotal(p.VehiclePrice, p.Items, p.Discount, p.TradeInValue); err != nil {
		return err
	}
	closer := salesPersonID
	closedAt := now
	p.Status = ProposalStatusClosed
	p.ClosedBy = &closer
	p.ClosedAt = &closedAt
	p.UpdatedAt = now
	return nil
}

// MarkLost ends the negotiation without a sale
func (p *Proposal) MarkLost(reason string, now time.Time) error {
	if p.Status.IsTerminal() {
		return NewDomainError(DomainCodeInvalidTransition, "proposal %s is already %s", p.ID, p.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", ValidationReasonMissingRequiredField, "")
	}
	p.clearPendingDiscount()
	p.Status = ProposalStatusLost
	p.LostReason = reason
	p.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of the proposal
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.Items = append([]LineItem(nil), p.Items...)
	c.Vehicle = p.Vehicle
	if p.Vehicle.VehicleID != nil {
		id := *p.Vehicle.VehicleID
		c.Vehicle.VehicleID = &id
	}
	if p.Payment.DownPayment != nil {
		dp := *p.Payment.DownPayment
		c.Payment.DownPayment = &dp
	}
	if p.Payment.Installments != nil {
		n := *p.Payment.Installments
		c.Payment.Installments = &n
	}
	c.DiscountApprovedBy = cloneUUID(p.DiscountApprovedBy)
	c.DiscountRequestedBy = cloneUUID(p.DiscountRequestedBy)
	c.ClosedBy = cloneUUID(p.ClosedBy)
	if p.PendingDiscount != nil {
		pending := *p.PendingDiscount
		c.PendingDiscount = &pending
	}
	if p.ClosedAt != nil {
		at := *p.ClosedAt
		c.ClosedAt = &at
	}
	return &c
}

// MarshalJSON adds the computed total
func (p *Proposal) MarshalJSON() ([]byte, error) {
	type proposalAlias Proposal
	return json.Marshal(struct {
		*proposalAlias
		Total Money `json:"total"`
	}{
		proposalAlias: (*proposalAlias)(p),
		Total:         p.Total(),
	})
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
