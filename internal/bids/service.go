package bids

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/internal/loads"
	dbpkg "github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/lock"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/metrics"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

const maxNotesLength = 2000

type service struct {
	repo     Repository
	loads    loads.CarrierAssigner
	tx       txRunner
	locks    locker
	notifier notifier
	logg     *logger.Logger
	metrics  bidMetrics
	now      func() time.Time
}

// Option customises optional collaborators.
type Option func(*service)

func WithMetrics(m bidMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService wires the bid ledger. Every write on a load is serialised by
// locks under lock.LoadKey.
func NewService(repo Repository, assigner loads.CarrierAssigner, tx txRunner, locks locker, notifier notifier, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if assigner == nil {
		return nil, fmt.Errorf("carrier assigner required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locks == nil {
		return nil, fmt.Errorf("locker required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		repo:     repo,
		loads:    assigner,
		tx:       tx,
		locks:    locks,
		notifier: notifier,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) SubmitBid(ctx context.Context, input SubmitBidInput, actor types.Actor) (*models.Bid, error) {
	bid, load, err := s.submit(ctx, input, actor)
	s.record("submit", err)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"load_id":    bid.LoadID.String(),
		"bid_id":     bid.ID.String(),
		"carrier_id": bid.CarrierID.String(),
		"amount":     bid.BidAmount.StringFixed(2),
	}), "bid submitted")

	s.notifier.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventBidSubmitted,
		AggregateType: enums.AggregateBid,
		AggregateID:   bid.ID,
		Actor:         outbox.ActorFrom(actor),
		OccurredAt:    bid.SubmittedAt,
		Data: payloads.BidSubmittedEvent{
			Notice: payloads.Notice{
				Recipients: []payloads.Recipient{{Role: enums.ActorRoleDispatcher}},
				Type:       enums.NotificationTypeBidAlert,
				EntityType: enums.AggregateLoad,
				EntityID:   load.ID,
				Title:      "New bid received",
				Message:    fmt.Sprintf("New bid of $%s on %s.", bid.BidAmount.StringFixed(2), load.LoadNumber),
			},
			BidID:      bid.ID,
			LoadID:     load.ID,
			LoadNumber: load.LoadNumber,
			CarrierID:  bid.CarrierID,
			Amount:     bid.BidAmount,
		},
	})
	return bid, nil
}

func (s *service) submit(ctx context.Context, input SubmitBidInput, actor types.Actor) (*models.Bid, *models.Load, error) {
	carrierID, err := resolveCarrier(input.CarrierID, actor)
	if err != nil {
		return nil, nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive").
			WithDetails(map[string]string{"amount": input.Amount.String()})
	}
	notes := strings.TrimSpace(input.Notes)
	if len(notes) > maxNotesLength {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "notes too long")
	}

	var (
		bid  *models.Bid
		load *models.Load
	)
	err = s.locks.WithLock(ctx, lock.LoadKey(input.LoadID), func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			current, err := s.loads.LoadForBidding(ctx, tx, input.LoadID)
			if err != nil {
				return err
			}
			if current.HasCarrier() {
				return alreadyAssigned(current.ID)
			}
			if current.Status != enums.LoadStatusPosted {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "load is not open for bidding").
					WithDetails(map[string]any{"status": current.Status})
			}

			candidate := &models.Bid{
				LoadID:      current.ID,
				CarrierID:   carrierID,
				BidAmount:   input.Amount.Round(2),
				Status:      enums.BidStatusPending,
				SubmittedBy: actor.UserRef(),
				SubmittedAt: s.now(),
			}
			if notes != "" {
				candidate.Notes = &notes
			}
			if err := s.repo.WithTx(tx).Create(ctx, candidate); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
			}
			bid = candidate
			load = current
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return bid, load, nil
}

// AcceptBid accepts bidID, assigns its carrier to the load and rejects every
// other pending bid, all in one transaction under the load lock.
func (s *service) AcceptBid(ctx context.Context, loadID, bidID uuid.UUID, actor types.Actor) (*AcceptResult, error) {
	result, err := s.accept(ctx, loadID, bidID, actor)
	s.record("accept", err)
	if err != nil {
		return nil, err
	}

	bid := result.Bid
	load := result.Load
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"load_id":       load.ID.String(),
		"bid_id":        bid.ID.String(),
		"carrier_id":    bid.CarrierID.String(),
		"rate":          bid.BidAmount.StringFixed(2),
		"rejected_bids": len(result.RejectedBidIDs),
	}), "bid accepted")

	carrierID := bid.CarrierID
	customerID := load.CustomerID
	s.notifier.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventBidAccepted,
		AggregateType: enums.AggregateLoad,
		AggregateID:   load.ID,
		Actor:         outbox.ActorFrom(actor),
		OccurredAt:    *bid.DecidedAt,
		Data: payloads.BidAcceptedEvent{
			Notice: payloads.Notice{
				Recipients: []payloads.Recipient{
					{Role: enums.ActorRoleCarrier, CompanyID: &carrierID},
					{Role: enums.ActorRoleShipper, CompanyID: &customerID},
				},
				Type:       enums.NotificationTypeAssignmentAlert,
				EntityType: enums.AggregateLoad,
				EntityID:   load.ID,
				Title:      "Bid accepted",
				Message:    fmt.Sprintf("Bid of $%s on %s was accepted. Confirm the rate to proceed.", bid.BidAmount.StringFixed(2), load.LoadNumber),
			},
			BidID:          bid.ID,
			LoadID:         load.ID,
			LoadNumber:     load.LoadNumber,
			CarrierID:      carrierID,
			CarrierRate:    bid.BidAmount,
			RejectedBidIDs: result.RejectedBidIDs,
		},
	})
	return result, nil
}

func (s *service) accept(ctx context.Context, loadID, bidID uuid.UUID, actor types.Actor) (*AcceptResult, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may accept bids")
	}

	var result AcceptResult
	err := s.locks.WithLock(ctx, lock.LoadKey(loadID), func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			bid, err := repo.FindByID(ctx, bidID)
			if err != nil {
				return mapBidErr(err)
			}
			if bid.LoadID != loadID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found on load")
			}
			load, err := s.loads.LoadForBidding(ctx, tx, loadID)
			if err != nil {
				return err
			}

			switch bid.Status {
			case enums.BidStatusAccepted:
				return alreadyAssigned(loadID)
			case enums.BidStatusRejected:
				accepted, err := repo.HasAccepted(ctx, loadID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accepted bid lookup")
				}
				if accepted || load.HasCarrier() {
					return alreadyAssigned(loadID)
				}
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "bid was already rejected")
			}
			if load.HasCarrier() {
				return alreadyAssigned(loadID)
			}
			if load.Status != enums.LoadStatusPosted {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "load is not open for bidding").
					WithDetails(map[string]any{"status": load.Status})
			}

			now := s.now()
			ok, err := repo.MarkAccepted(ctx, bid.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept bid")
			}
			if !ok {
				return alreadyAssigned(loadID)
			}
			assigned, err := s.loads.AssignCarrierInTx(ctx, tx, loadID, bid.CarrierID, bid.BidAmount)
			if err != nil {
				return err
			}
			rejected, err := repo.RejectPendingSiblings(ctx, loadID, bid.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject sibling bids")
			}

			bid.Status = enums.BidStatusAccepted
			bid.DecidedAt = &now
			bid.UpdatedAt = now
			result = AcceptResult{Bid: bid, Load: assigned, RejectedBidIDs: make([]uuid.UUID, 0, len(rejected))}
			for _, sibling := range rejected {
				result.RejectedBidIDs = append(result.RejectedBidIDs, sibling.ID)
			}
			return nil
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, alreadyAssigned(loadID)
		}
		return nil, err
	}
	return &result, nil
}

func (s *service) RejectBid(ctx context.Context, bidID uuid.UUID, actor types.Actor) (*models.Bid, error) {
	bid, err := s.reject(ctx, bidID, actor)
	s.record("reject", err)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"load_id":    bid.LoadID.String(),
		"bid_id":     bid.ID.String(),
		"carrier_id": bid.CarrierID.String(),
	}), "bid rejected")
	return bid, nil
}

func (s *service) reject(ctx context.Context, bidID uuid.UUID, actor types.Actor) (*models.Bid, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may reject bids")
	}
	existing, err := s.repo.FindByID(ctx, bidID)
	if err != nil {
		return nil, mapBidErr(err)
	}

	var bid *models.Bid
	err = s.locks.WithLock(ctx, lock.LoadKey(existing.LoadID), func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			current, err := repo.FindByID(ctx, bidID)
			if err != nil {
				return mapBidErr(err)
			}
			if current.Status != enums.BidStatusPending {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending bids can be rejected").
					WithDetails(map[string]any{"status": current.Status})
			}
			now := s.now()
			ok, err := repo.MarkRejected(ctx, current.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject bid")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only pending bids can be rejected")
			}
			current.Status = enums.BidStatusRejected
			current.DecidedAt = &now
			current.UpdatedAt = now
			bid = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// ListBids returns a load's bids oldest first. Carriers only see their own.
func (s *service) ListBids(ctx context.Context, loadID uuid.UUID, actor types.Actor) ([]models.Bid, error) {
	var carrierFilter *uuid.UUID
	switch {
	case actor.IsStaff():
	case actor.Role == enums.ActorRoleCarrier && actor.CompanyID != nil:
		carrierFilter = actor.CompanyID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "role may not view bids")
	}
	rows, err := s.repo.ListByLoad(ctx, loadID, carrierFilter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}
	if rows == nil {
		rows = []models.Bid{}
	}
	return rows, nil
}

// LatestPendingBid is the carrier's authoritative open offer for display.
func (s *service) LatestPendingBid(ctx context.Context, loadID, carrierID uuid.UUID) (*models.Bid, error) {
	bid, err := s.repo.LatestPending(ctx, loadID, carrierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending bid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "latest pending bid")
	}
	return bid, nil
}

func (s *service) record(action string, err error) {
	if s.metrics != nil {
		s.metrics.Bid(action, metrics.Result(err))
	}
}

func resolveCarrier(requested *uuid.UUID, actor types.Actor) (uuid.UUID, error) {
	switch {
	case actor.Role == enums.ActorRoleCarrier:
		if actor.CompanyID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier company required")
		}
		if requested != nil && *requested != *actor.CompanyID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carriers may only bid for themselves")
		}
		return *actor.CompanyID, nil
	case actor.IsStaff():
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier id required")
		}
		return *requested, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "role may not submit bids")
}

func alreadyAssigned(loadID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyAssigned, "load already has an accepted bid").
		WithDetails(map[string]any{"load_id": loadID})
}

func mapBidErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bid lookup")
}
