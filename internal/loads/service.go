package loads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/freightdispatch-backend/pkg/db"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/lock"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/metrics"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/freightdispatch-backend/pkg/pagination"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

const loadNumberAttempts = 3

type service struct {
	repo      Repository
	tx        txRunner
	notifier  notifier
	logg      *logger.Logger
	metrics   transitionMetrics
	readiness ReadinessChecker
	geocoder  Geocoder
	locks     locker
	now       func() time.Time
}

// Option customises optional collaborators.
type Option func(*service)

// WithMetrics records transition outcomes.
func WithMetrics(m transitionMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithReadinessChecker runs the invoice precondition check on delivery.
func WithReadinessChecker(c ReadinessChecker) Option {
	return func(s *service) { s.readiness = c }
}

// WithGeocoder geocodes new loads right after creation.
func WithGeocoder(g Geocoder) Option {
	return func(s *service) { s.geocoder = g }
}

// WithLocker serialises carrier overrides with the bid ledger. Pass the same
// locker the ledger uses.
func WithLocker(l locker) Option {
	return func(s *service) {
		if l != nil {
			s.locks = l
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService wires the load lifecycle.
func NewService(repo Repository, tx txRunner, notifier notifier, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loads repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		repo:     repo,
		tx:       tx,
		notifier: notifier,
		logg:     logg,
		locks:    lock.NewLocal(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) CreateLoad(ctx context.Context, input CreateLoadInput, actor types.Actor) (*models.Load, error) {
	customerID, err := resolveCustomer(input.CustomerID, actor)
	if err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.now()
	status := enums.LoadStatusDraft
	if input.Post {
		status = enums.LoadStatusPosted
	}
	load := &models.Load{
		Status:              status,
		CustomerID:          customerID,
		PickupAddress:       strings.TrimSpace(input.PickupAddress),
		DeliveryAddress:     strings.TrimSpace(input.DeliveryAddress),
		PickupWindowStart:   input.PickupWindowStart,
		PickupWindowEnd:     input.PickupWindowEnd,
		DeliveryWindowStart: input.DeliveryWindowStart,
		DeliveryWindowEnd:   input.DeliveryWindowEnd,
		Commodity:           strings.TrimSpace(input.Commodity),
		EquipmentType:       input.EquipmentType,
		WeightLbs:           input.WeightLbs,
		CreatedBy:           actor.UserRef(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if input.CustomerRate != nil {
		load.CustomerRate = decimal.NewNullDecimal(*input.CustomerRate)
	}

	for attempt := 0; ; attempt++ {
		load.ID = uuid.Nil
		load.LoadNumber = NewLoadNumber(now)
		err = s.repo.Create(ctx, load)
		if err == nil {
			break
		}
		// load_number is the only natural key on insert
		if dbpkg.IsUniqueViolation(err, "") && attempt+1 < loadNumberAttempts {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create load")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"load_id":     load.ID.String(),
		"load_number": load.LoadNumber,
		"status":      load.Status,
	})
	s.logg.Info(logCtx, "load created")

	if s.geocoder != nil {
		if _, err := s.geocoder.GeocodeLoad(ctx, load.ID); err != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "geocode on create failed")
		} else if refreshed, err := s.repo.FindByID(ctx, load.ID); err == nil {
			load = refreshed
		}
	}
	return load, nil
}

func (s *service) GetLoad(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Load, error) {
	load, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadErr(err, "load lookup")
	}
	if !canView(actor, load) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "load not found")
	}
	return load, nil
}

func (s *service) ListLoads(ctx context.Context, input ListLoadsInput, actor types.Actor) (*LoadList, error) {
	filter := ListFilter{Status: input.Status, CarrierID: input.CarrierID}
	switch actor.Role {
	case enums.ActorRoleDispatcher, enums.ActorRoleAdmin, enums.ActorRoleSystem:
	case enums.ActorRoleCarrier:
		if actor.CompanyID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "carrier company required")
		}
		filter.CarrierID = nil
		filter.VisibleToCarrier = actor.CompanyID
		if input.CarrierID != nil {
			filter.CarrierID = actor.CompanyID
		}
	case enums.ActorRoleShipper:
		if actor.CompanyID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "shipper company required")
		}
		filter.CustomerID = actor.CompanyID
	case enums.ActorRoleDriver:
		driverID := actor.UserID
		filter.DriverID = &driverID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "role may not list loads")
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, cursor, pagination.LimitWithBuffer(input.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loads")
	}
	items, next := pagination.Page(rows, input.Limit, func(l models.Load) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	if items == nil {
		items = []models.Load{}
	}
	return &LoadList{Items: items, NextCursor: next}, nil
}

// AssignCarrier is the dispatcher override; bid acceptance goes through
// AssignCarrierInTx instead. Bids the override supersedes are rejected in the
// same transaction, under the same load lock the ledger takes.
func (s *service) AssignCarrier(ctx context.Context, input AssignCarrierInput, actor types.Actor) (*models.Load, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may assign carriers")
	}
	if input.CarrierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier id required")
	}
	if !input.Rate.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier rate must be positive")
	}

	var (
		load       *models.Load
		previous   uuid.UUID
		superseded int64
	)
	err := s.locks.WithLock(ctx, lock.LoadKey(input.LoadID), func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			current, err := repo.FindByIDForUpdate(ctx, input.LoadID)
			if err != nil {
				return mapLoadErr(err, "load lookup")
			}
			if current.Status != enums.LoadStatusPosted && current.Status != enums.LoadStatusPendingPickup {
				return invalidTransition(current.Status, enums.LoadStatusPendingPickup)
			}
			previous = carrierOf(current)

			now := s.now()
			ok, err := repo.ReassignCarrier(ctx, current.ID, input.CarrierID, input.Rate, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign carrier")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "load changed while assigning carrier")
			}
			superseded, err = repo.SupersedeBids(ctx, current.ID, input.CarrierID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject superseded bids")
			}

			carrierID := input.CarrierID
			current.CarrierID = &carrierID
			current.CarrierRate = decimal.NewNullDecimal(input.Rate)
			current.RateConfirmed = false
			current.RateConfirmedAt = nil
			current.Status = enums.LoadStatusPendingPickup
			current.UpdatedAt = now
			load = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"load_id":       load.ID.String(),
		"carrier_id":    input.CarrierID.String(),
		"rate":          input.Rate.StringFixed(2),
		"rejected_bids": superseded,
	}
	if previous != uuid.Nil {
		fields["previous_carrier_id"] = previous.String()
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "carrier assigned by dispatcher")
	return load, nil
}

// LoadForBidding reads and row-locks a load inside the bid ledger's
// transaction.
func (s *service) LoadForBidding(ctx context.Context, tx *gorm.DB, loadID uuid.UUID) (*models.Load, error) {
	load, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, loadID)
	if err != nil {
		return nil, mapLoadErr(err, "load lookup")
	}
	return load, nil
}

// AssignCarrierInTx claims the load for carrierID at rate. It returns
// AlreadyAssigned when the load is no longer an open posted load.
func (s *service) AssignCarrierInTx(ctx context.Context, tx *gorm.DB, loadID, carrierID uuid.UUID, rate decimal.Decimal) (*models.Load, error) {
	repo := s.repo.WithTx(tx)
	ok, err := repo.AssignCarrierIfUnassigned(ctx, loadID, carrierID, rate, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign carrier")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyAssigned, "load already has a carrier").
			WithDetails(map[string]any{"load_id": loadID})
	}
	load, err := repo.FindByID(ctx, loadID)
	if err != nil {
		return nil, mapLoadErr(err, "load reload")
	}
	return load, nil
}

func (s *service) ConfirmRate(ctx context.Context, loadID uuid.UUID, actor types.Actor) (*models.Load, error) {
	if actor.Role != enums.ActorRoleCarrier || actor.CompanyID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only the assigned carrier may confirm the rate")
	}

	var load *models.Load
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, loadID)
		if err != nil {
			return mapLoadErr(err, "load lookup")
		}
		if !current.HasCarrier() || !actor.ActsFor(*current.CarrierID) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the assigned carrier may confirm the rate")
		}
		if !current.CarrierRate.Valid {
			return pkgerrors.New(pkgerrors.CodeValidation, "no carrier rate to confirm")
		}
		if current.RateConfirmed {
			return pkgerrors.New(pkgerrors.CodeConflict, "rate already confirmed")
		}
		if current.Status != enums.LoadStatusPendingPickup {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "rate can only be confirmed before pickup").
				WithDetails(map[string]any{"status": current.Status})
		}

		now := s.now()
		ok, err := repo.ConfirmRate(ctx, current.ID, *current.CarrierID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm rate")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "rate already confirmed")
		}
		current.RateConfirmed = true
		current.RateConfirmedAt = &now
		current.UpdatedAt = now
		load = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"load_id":    load.ID.String(),
		"carrier_id": load.CarrierID.String(),
	}), "carrier rate confirmed")

	s.notifier.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventRateConfirmed,
		AggregateType: enums.AggregateLoad,
		AggregateID:   load.ID,
		Actor:         outbox.ActorFrom(actor),
		OccurredAt:    *load.RateConfirmedAt,
		Data: payloads.RateConfirmedEvent{
			Notice: payloads.Notice{
				Recipients: []payloads.Recipient{{Role: enums.ActorRoleDispatcher}},
				Type:       enums.NotificationTypeAssignmentAlert,
				EntityType: enums.AggregateLoad,
				EntityID:   load.ID,
				Title:      "Rate confirmed",
				Message:    fmt.Sprintf("Carrier confirmed $%s on %s.", load.CarrierRate.Decimal.StringFixed(2), load.LoadNumber),
			},
			LoadID:      load.ID,
			LoadNumber:  load.LoadNumber,
			CarrierID:   *load.CarrierID,
			CarrierRate: load.CarrierRate.Decimal,
		},
	})
	return load, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput, actor types.Actor) (*TransitionResult, error) {
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown load status").
			WithDetails(map[string]any{"status": input.To})
	}

	var result TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		load, err := repo.FindByIDForUpdate(ctx, input.LoadID)
		if err != nil {
			return mapLoadErr(err, "load lookup")
		}
		if err := authorizeTransition(actor, load, input.To); err != nil {
			return err
		}

		result = TransitionResult{Load: load, From: load.Status, To: input.To}
		if load.Status == enums.LoadStatusDelivered && input.To == enums.LoadStatusDelivered {
			return nil
		}
		if !CanTransition(load.Status, input.To) {
			return invalidTransition(load.Status, input.To)
		}
		if input.To.IsActiveTransport() && load.HasCarrier() && !load.RateConfirmed {
			return pkgerrors.New(pkgerrors.CodeRateNotConfirmed, "rate must be confirmed before the load can move").
				WithDetails(map[string]any{"load_id": load.ID, "to": input.To})
		}
		if input.To == enums.LoadStatusPendingPickup && !load.HasCarrier() && load.DriverID == nil {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "assign a carrier or driver before pickup").
				WithDetails(map[string]any{"from": load.Status, "to": input.To})
		}

		now := s.now()
		updates := map[string]any{"status": input.To, "updated_at": now}
		for column, value := range statusTimestamps(input.To, now) {
			updates[column] = value
		}
		ok, err := repo.UpdateStatus(ctx, load.ID, load.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update load status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "load status changed concurrently")
		}
		applyStatus(load, input.To, now)
		result.Changed = true
		return nil
	})
	if s.metrics != nil {
		s.metrics.Transition(input.To.String(), metrics.Result(err))
	}
	if err != nil {
		return nil, err
	}

	load := result.Load
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"load_id":     load.ID.String(),
		"from_status": result.From,
		"to_status":   result.To,
		"actor_role":  actor.Role,
	})
	if !result.Changed {
		s.logg.Info(logCtx, "load already delivered")
		return &result, nil
	}
	s.logg.Info(logCtx, "load status changed")

	if result.To == enums.LoadStatusDelivered && s.readiness != nil {
		ready := true
		if err := s.readiness.CheckReadiness(load); err != nil {
			ready = false
			s.logg.Warn(s.logg.WithField(logCtx, "reason", err.Error()), "delivered load not ready for invoicing")
		} else {
			s.logg.Info(logCtx, "delivered load ready for invoicing")
		}
		result.InvoiceReady = &ready
	}
	s.crossCheckTracking(ctx, logCtx, load)

	s.notifier.Notify(ctx, outbox.DomainEvent{
		EventType:     enums.EventLoadStatusChanged,
		AggregateType: enums.AggregateLoad,
		AggregateID:   load.ID,
		Actor:         outbox.ActorFrom(actor),
		OccurredAt:    load.UpdatedAt,
		Data: payloads.LoadStatusChangedEvent{
			Notice:     statusNotice(load, result.From),
			LoadID:     load.ID,
			LoadNumber: load.LoadNumber,
			From:       result.From,
			To:         result.To,
			ChangedAt:  load.UpdatedAt,
		},
	})
	return &result, nil
}

func (s *service) AssignDriver(ctx context.Context, loadID, driverID uuid.UUID, actor types.Actor) (*models.Load, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "only dispatchers may assign drivers")
	}
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}

	var load *models.Load
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, loadID)
		if err != nil {
			return mapLoadErr(err, "load lookup")
		}
		driver, err := repo.FindDriver(ctx, driverID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "driver lookup")
		}
		if !driver.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "driver is inactive")
		}
		if current.HasCarrier() && (driver.CarrierID == nil || *driver.CarrierID != *current.CarrierID) {
			return pkgerrors.New(pkgerrors.CodeValidation, "driver does not belong to the assigned carrier")
		}

		now := s.now()
		ok, err := repo.AssignDriver(ctx, current.ID, driverID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign driver")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "driver cannot be assigned in this status").
				WithDetails(map[string]any{"status": current.Status})
		}
		current.DriverID = &driverID
		current.UpdatedAt = now
		load = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"load_id":   load.ID.String(),
		"driver_id": driverID.String(),
	}), "driver assigned")
	return load, nil
}

func (s *service) SoftDelete(ctx context.Context, loadID uuid.UUID, actor types.Actor) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		load, err := repo.FindByIDForUpdate(ctx, loadID)
		if err != nil {
			return mapLoadErr(err, "load lookup")
		}
		if !actor.IsStaff() && !(actor.Role == enums.ActorRoleShipper && actor.ActsFor(load.CustomerID)) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not delete this load")
		}
		switch load.Status {
		case enums.LoadStatusDraft, enums.LoadStatusPosted, enums.LoadStatusCancelled:
		default:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only draft, posted or cancelled loads can be deleted").
				WithDetails(map[string]any{"status": load.Status})
		}
		if err := repo.SoftDelete(ctx, load.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete load")
		}
		s.logg.Info(s.logg.WithField(ctx, "load_id", load.ID.String()), "load deleted")
		return nil
	})
}

// crossCheckTracking compares the new load status with the live tracking
// row. Disagreement is logged; tracking never blocks the lifecycle.
func (s *service) crossCheckTracking(ctx, logCtx context.Context, load *models.Load) {
	expected := expectedTracking(load.Status)
	if len(expected) == 0 {
		return
	}
	tracking, err := s.repo.FindTracking(ctx, load.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "tracking cross-check failed")
		}
		return
	}
	for _, status := range expected {
		if tracking.Status == status {
			return
		}
	}
	s.logg.Warn(s.logg.WithField(logCtx, "tracking_status", tracking.Status), "load status disagrees with tracking")
}

func statusNotice(load *models.Load, from enums.LoadStatus) payloads.Notice {
	recipients := []payloads.Recipient{{Role: enums.ActorRoleDispatcher}}
	customerID := load.CustomerID
	recipients = append(recipients, payloads.Recipient{Role: enums.ActorRoleShipper, CompanyID: &customerID})
	if load.HasCarrier() {
		carrierID := *load.CarrierID
		recipients = append(recipients, payloads.Recipient{Role: enums.ActorRoleCarrier, CompanyID: &carrierID})
	}
	return payloads.Notice{
		Recipients: recipients,
		Type:       enums.NotificationTypeLoadAlert,
		EntityType: enums.AggregateLoad,
		EntityID:   load.ID,
		Title:      "Load " + strings.ReplaceAll(load.Status.String(), "_", " "),
		Message:    fmt.Sprintf("%s moved from %s to %s.", load.LoadNumber, from, load.Status),
	}
}

func resolveCustomer(requested *uuid.UUID, actor types.Actor) (uuid.UUID, error) {
	switch {
	case actor.IsStaff():
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
		}
		return *requested, nil
	case actor.Role == enums.ActorRoleShipper:
		if actor.CompanyID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "shipper company required")
		}
		if requested != nil && *requested != *actor.CompanyID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "shippers may only create their own loads")
		}
		return *actor.CompanyID, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "role may not create loads")
}

func validateCreate(input CreateLoadInput) error {
	details := map[string]string{}
	if strings.TrimSpace(input.PickupAddress) == "" {
		details["pickup_address"] = "required"
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		details["delivery_address"] = "required"
	}
	if input.EquipmentType != "" && !input.EquipmentType.IsValid() {
		details["equipment_type"] = "unknown equipment type"
	}
	if input.WeightLbs != nil && *input.WeightLbs <= 0 {
		details["weight_lbs"] = "must be positive"
	}
	if input.CustomerRate != nil && input.CustomerRate.IsNegative() {
		details["customer_rate"] = "must not be negative"
	}
	if windowInverted(input.PickupWindowStart, input.PickupWindowEnd) {
		details["pickup_window"] = "start must not be after end"
	}
	if windowInverted(input.DeliveryWindowStart, input.DeliveryWindowEnd) {
		details["delivery_window"] = "start must not be after end"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid load").WithDetails(details)
	}
	return nil
}

func windowInverted(start, end *time.Time) bool {
	return start != nil && end != nil && start.After(*end)
}

// NewLoadNumber formats LD-YYYYMMDD-XXXXXX with a random suffix.
func NewLoadNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("LD-%s-%s", at.UTC().Format("20060102"), suffix)
}

func invalidTransition(from, to enums.LoadStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move load from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to, "allowed": NextStatuses(from)})
}

func mapLoadErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "load not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
