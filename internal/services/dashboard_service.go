package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

const (
	dashboardEngine = "dashboard"

	dashboardListSize = 5
	hotLeadQuietSpell = 24 * time.Hour
)

var (
	hotScores = []models.Score{models.ScoreDiamond, models.ScoreGold}

	// leads that can still be worked
	openLeadStatuses = []models.LeadStatus{
		models.LeadStatusNew,
		models.LeadStatusInContact,
		models.LeadStatusInNegotiation,
		models.LeadStatusTestDriveScheduled,
		models.LeadStatusProposalSent,
	}

	// proposals waiting for the sales person to act
	actionableProposalStatuses = []models.ProposalStatus{
		models.ProposalStatusAwaitingCustomer,
		models.ProposalStatusInNegotiation,
		models.ProposalStatusApproved,
	}

	// bookings that occupy the day's agenda
	agendaTestDriveStatuses = []models.TestDriveStatus{
		models.TestDriveStatusScheduled,
		models.TestDriveStatusCompleted,
		models.TestDriveStatusNoShow,
	}
)

// Dashboard is a point-in-time summary of the sales funnel
type Dashboard struct {
	SalesPersonID        *uuid.UUID         `json:"salesPersonId,omitempty"`
	NewLeads             int                `json:"newLeads"`
	ProposalsNegotiating int                `json:"proposalsInNegotiation"`
	TestDrivesToday      int                `json:"testDrivesToday"`
	ConversionRate       float64            `json:"conversionRate"`
	HotLeads             []*models.Lead     `json:"hotLeads"`
	PendingProposals     []*models.Proposal `json:"pendingProposals"`
	GeneratedAt          time.Time          `json:"generatedAt"`
}

// SnapshotCache stores rendered dashboards for a short time
type SnapshotCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
}

// DashboardService aggregates the other engines' state. It never writes.
type DashboardService struct {
	base
	location *time.Location
	cache    SnapshotCache
}

// NewDashboardService creates a DashboardService. Days and months are computed in loc; a nil
// loc means UTC. A nil cache disables snapshot caching.
func NewDashboardService(uow repository.UnitOfWork, loc *time.Location, cache SnapshotCache, opts ...Option) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{base: newBase(uow, opts), location: loc, cache: cache}
}

func dashboardKey(salesPersonID *uuid.UUID) string {
	if salesPersonID == nil {
		return "dashboard:all"
	}
	return fmt.Sprintf("dashboard:%s", salesPersonID)
}

// Get returns the dashboard, optionally scoped to one sales person
func (s *DashboardService) Get(ctx context.Context, salesPersonID *uuid.UUID) (dashboard *Dashboard, err error) {
	ctx, finish := s.begin(ctx, dashboardEngine, "get")
	defer finish(&err)

	key := dashboardKey(salesPersonID)
	if s.cache != nil {
		var cached Dashboard
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.Warn(ctx, "Dashboard cache read failed", "key", key, "error", err.Error())
		}
		s.metrics.ObserveCache(hit)
		if hit {
			return &cached, nil
		}
	}

	dashboard, err = s.compute(ctx, salesPersonID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, dashboard); err != nil {
			logger.Warn(ctx, "Dashboard cache write failed", "key", key, "error", err.Error())
		}
	}
	return dashboard, nil
}

func (s *DashboardService) compute(ctx context.Context, salesPersonID *uuid.UUID) (*Dashboard, error) {
	now := s.clock()
	local := now.In(s.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.location)
	monthEnd := monthStart.AddDate(0, 1, 0)
	quietSince := now.Add(-hotLeadQuietSpell)

	store := s.uow.Store()
	d := &Dashboard{SalesPersonID: salesPersonID, GeneratedAt: now}

	var monthLeads, monthConverted int
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		d.NewLeads, err = store.Leads().Count(gctx, repository.LeadFilter{
			Statuses:      []models.LeadStatus{models.LeadStatusNew},
			SalesPersonID: salesPersonID,
		})
		return err
	})
	g.Go(func() error {
		var err error
		d.ProposalsNegotiating, err = store.Proposals().Count(gctx, repository.ProposalFilter{
			Statuses:      []models.ProposalStatus{models.ProposalStatusInNegotiation},
			SalesPersonID: salesPersonID,
		})
		return err
	})
	g.Go(func() error {
		var err error
		d.TestDrivesToday, err = store.TestDrives().Count(gctx, repository.TestDriveFilter{
			Statuses:      agendaTestDriveStatuses,
			SalesPersonID: salesPersonID,
			ScheduledFrom: &dayStart,
			ScheduledTo:   &dayEnd,
		})
		return err
	})
	g.Go(func() error {
		var err error
		monthLeads, err = store.Leads().Count(gctx, repository.LeadFilter{
			SalesPersonID: salesPersonID,
			CreatedFrom:   &monthStart,
			CreatedTo:     &monthEnd,
		})
		return err
	})
	g.Go(func() error {
		var err error
		monthConverted, err = store.Leads().Count(gctx, repository.LeadFilter{
			Statuses:      []models.LeadStatus{models.LeadStatusConverted},
			SalesPersonID: salesPersonID,
			CreatedFrom:   &monthStart,
			CreatedTo:     &monthEnd,
		})
		return err
	})
	g.Go(func() error {
		var err error
		d.HotLeads, err = store.Leads().List(gctx, repository.LeadFilter{
			Statuses:           openLeadStatuses,
			Scores:             hotScores,
			SalesPersonID:      salesPersonID,
			NoInteractionSince: &quietSince,
			OrderBy:            repository.LeadOrderHottest,
			Limit:              dashboardListSize,
		})
		return err
	})
	g.Go(func() error {
		var err error
		d.PendingProposals, err = store.Proposals().List(gctx, repository.ProposalFilter{
			Statuses:      actionableProposalStatuses,
			SalesPersonID: salesPersonID,
			OrderBy:       repository.ProposalOrderStalest,
			Limit:         dashboardListSize,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.ConversionRate = ConversionRate(monthConverted, monthLeads)
	if d.HotLeads == nil {
		d.HotLeads = []*models.Lead{}
	}
	if d.PendingProposals == nil {
		d.PendingProposals = []*models.Proposal{}
	}
	return d, nil
}

// ConversionRate returns converted/total as a percentage rounded to one decimal, or 0 when
// total is zero
func ConversionRate(converted, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(converted)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(total)))
	return rate.Round(1).InexactFloat64()
}
