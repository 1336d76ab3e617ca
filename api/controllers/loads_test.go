package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/freightdispatch-backend/internal/loads"
	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

type stubLoadService struct {
	createInput     loads.CreateLoadInput
	listInput       loads.ListLoadsInput
	transitionInput loads.TransitionInput
	actor           types.Actor
	load            *models.Load
	err             error
}

func (s *stubLoadService) CreateLoad(_ context.Context, input loads.CreateLoadInput, actor types.Actor) (*models.Load, error) {
	s.createInput, s.actor = input, actor
	return s.load, s.err
}

func (s *stubLoadService) GetLoad(_ context.Context, _ uuid.UUID, actor types.Actor) (*models.Load, error) {
	s.actor = actor
	return s.load, s.err
}

func (s *stubLoadService) ListLoads(_ context.Context, input loads.ListLoadsInput, actor types.Actor) (*loads.LoadList, error) {
	s.listInput, s.actor = input, actor
	if s.err != nil {
		return nil, s.err
	}
	return &loads.LoadList{Items: []models.Load{*s.load}}, nil
}

func (s *stubLoadService) AssignCarrier(_ context.Context, _ loads.AssignCarrierInput, _ types.Actor) (*models.Load, error) {
	return s.load, s.err
}

func (s *stubLoadService) ConfirmRate(_ context.Context, _ uuid.UUID, _ types.Actor) (*models.Load, error) {
	return s.load, s.err
}

func (s *stubLoadService) Transition(_ context.Context, input loads.TransitionInput, _ types.Actor) (*loads.TransitionResult, error) {
	s.transitionInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &loads.TransitionResult{Load: s.load, From: enums.LoadStatusInTransit, To: input.To, Changed: true}, nil
}

func (s *stubLoadService) AssignDriver(_ context.Context, _, _ uuid.UUID, _ types.Actor) (*models.Load, error) {
	return s.load, s.err
}

func (s *stubLoadService) SoftDelete(_ context.Context, _ uuid.UUID, _ types.Actor) error {
	return s.err
}

func (s *stubLoadService) LoadForBidding(context.Context, *gorm.DB, uuid.UUID) (*models.Load, error) {
	return s.load, s.err
}

func (s *stubLoadService) AssignCarrierInTx(context.Context, *gorm.DB, uuid.UUID, uuid.UUID, decimal.Decimal) (*models.Load, error) {
	return s.load, s.err
}

func sampleLoad() *models.Load {
	return &models.Load{
		ID:              uuid.New(),
		LoadNumber:      "LD-20260302-ABC123",
		Status:          enums.LoadStatusDraft,
		PickupAddress:   "100 Main St, Dallas, TX",
		DeliveryAddress: "200 Elm St, Houston, TX",
	}
}

func TestCreateLoadSuccess(t *testing.T) {
	load := sampleLoad()
	svc := &stubLoadService{load: load}
	actor := dispatcherActor()
	body := map[string]any{
		"pickup_address":   "  100 Main St, Dallas, TX ",
		"delivery_address": "200 Elm St, Houston, TX",
		"equipment_type":   " Dry_Van ",
		"customer_rate":    "1850.00",
	}
	rec := httptest.NewRecorder()
	CreateLoad(svc, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads", body, &actor, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createInput.PickupAddress != "100 Main St, Dallas, TX" {
		t.Fatalf("pickup address not sanitized: %q", svc.createInput.PickupAddress)
	}
	if svc.createInput.EquipmentType != enums.EquipmentDryVan {
		t.Fatalf("unexpected equipment %q", svc.createInput.EquipmentType)
	}
	if svc.createInput.CustomerRate == nil || !svc.createInput.CustomerRate.Equal(decimal.RequireFromString("1850")) {
		t.Fatalf("customer rate not passed through: %v", svc.createInput.CustomerRate)
	}
	if svc.actor.UserID != actor.UserID {
		t.Fatalf("actor not forwarded")
	}
	var envelope struct {
		Data models.Load `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != load.ID {
		t.Fatalf("unexpected load id %s", envelope.Data.ID)
	}
}

func TestCreateLoadRejectsMissingAddress(t *testing.T) {
	svc := &stubLoadService{load: sampleLoad()}
	actor := dispatcherActor()
	rec := httptest.NewRecorder()
	CreateLoad(svc, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads", map[string]any{
		"delivery_address": "200 Elm St, Houston, TX",
	}, &actor, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %q", env.Error.Code)
	}
}

func TestCreateLoadRequiresActor(t *testing.T) {
	svc := &stubLoadService{load: sampleLoad()}
	rec := httptest.NewRecorder()
	CreateLoad(svc, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads", map[string]any{}, nil, nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestListLoadsParsesFilters(t *testing.T) {
	svc := &stubLoadService{load: sampleLoad()}
	actor := dispatcherActor()
	carrier := uuid.New()
	rec := httptest.NewRecorder()
	target := "/api/v1/loads?status=posted&limit=10&cursor=abc&carrier_id=" + carrier.String()
	ListLoads(svc, testLogger())(rec, newRequest(t, http.MethodGet, target, nil, &actor, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.listInput.Status == nil || *svc.listInput.Status != enums.LoadStatusPosted {
		t.Fatalf("status filter not parsed")
	}
	if svc.listInput.CarrierID == nil || *svc.listInput.CarrierID != carrier {
		t.Fatalf("carrier filter not parsed")
	}
	if svc.listInput.Limit != 10 || svc.listInput.Cursor != "abc" {
		t.Fatalf("unexpected paging %+v", svc.listInput)
	}

	rec = httptest.NewRecorder()
	ListLoads(svc, testLogger())(rec, newRequest(t, http.MethodGet, "/api/v1/loads?status=lost", nil, &actor, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", rec.Code)
	}
}

func TestTransitionLoad(t *testing.T) {
	load := sampleLoad()
	svc := &stubLoadService{load: load}
	actor := dispatcherActor()
	params := map[string]string{"loadId": load.ID.String()}

	rec := httptest.NewRecorder()
	TransitionLoad(svc, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads/x/transition",
		map[string]string{"status": "delivered"}, &actor, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.transitionInput.LoadID != load.ID || svc.transitionInput.To != enums.LoadStatusDelivered {
		t.Fatalf("unexpected transition input %+v", svc.transitionInput)
	}

	svc.err = pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move from draft to delivered")
	rec = httptest.NewRecorder()
	TransitionLoad(svc, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads/x/transition",
		map[string]string{"status": "delivered"}, &actor, params))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %q", env.Error.Code)
	}
}

func TestGetLoadRejectsBadID(t *testing.T) {
	svc := &stubLoadService{load: sampleLoad()}
	actor := dispatcherActor()
	rec := httptest.NewRecorder()
	GetLoad(svc, testLogger())(rec, newRequest(t, http.MethodGet, "/api/v1/loads/nope", nil, &actor, map[string]string{"loadId": "nope"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
