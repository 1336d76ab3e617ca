package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freightdispatch-backend/api/responses"
	"github.com/angelmondragon/freightdispatch-backend/api/validators"
	"github.com/angelmondragon/freightdispatch-backend/internal/loads"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

type createLoadRequest struct {
	CustomerID          *uuid.UUID       `json:"customer_id"`
	PickupAddress       string           `json:"pickup_address" validate:"required,max=500"`
	DeliveryAddress     string           `json:"delivery_address" validate:"required,max=500"`
	PickupWindowStart   *time.Time       `json:"pickup_window_start"`
	PickupWindowEnd     *time.Time       `json:"pickup_window_end"`
	DeliveryWindowStart *time.Time       `json:"delivery_window_start"`
	DeliveryWindowEnd   *time.Time       `json:"delivery_window_end"`
	Commodity           string           `json:"commodity" validate:"max=200"`
	EquipmentType       string           `json:"equipment_type"`
	WeightLbs           *int             `json:"weight_lbs" validate:"omitempty,min=1"`
	CustomerRate        *decimal.Decimal `json:"customer_rate"`
	Post                bool             `json:"post"`
}

type assignCarrierRequest struct {
	CarrierID uuid.UUID       `json:"carrier_id" validate:"required"`
	Rate      decimal.Decimal `json:"rate"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type assignDriverRequest struct {
	DriverID uuid.UUID `json:"driver_id" validate:"required"`
}

// CreateLoad opens a new load in draft, or posted when requested.
func CreateLoad(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createLoadRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		equipment := enums.EquipmentType(strings.ToLower(strings.TrimSpace(req.EquipmentType)))
		load, err := svc.CreateLoad(r.Context(), loads.CreateLoadInput{
			CustomerID:          req.CustomerID,
			PickupAddress:       validators.SanitizeString(req.PickupAddress, 500),
			DeliveryAddress:     validators.SanitizeString(req.DeliveryAddress, 500),
			PickupWindowStart:   req.PickupWindowStart,
			PickupWindowEnd:     req.PickupWindowEnd,
			DeliveryWindowStart: req.DeliveryWindowStart,
			DeliveryWindowEnd:   req.DeliveryWindowEnd,
			Commodity:           validators.SanitizeString(req.Commodity, 200),
			EquipmentType:       equipment,
			WeightLbs:           req.WeightLbs,
			CustomerRate:        req.CustomerRate,
			Post:                req.Post,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, load)
	}
}

func GetLoad(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loadID, err := validators.ParseUUIDParam(r, "loadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		load, err := svc.GetLoad(r.Context(), loadID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, load)
	}
}

// ListLoads returns a page of loads visible to the caller.
func ListLoads(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		carrierID, err := validators.ParseOptionalUUIDQuery(r, "carrier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := loads.ListLoadsInput{
			CarrierID: carrierID,
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseLoadStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		page, err := svc.ListLoads(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AssignCarrier is the dispatcher override that sets or replaces the carrier
// outside of bid acceptance.
func AssignCarrier(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loadID, err := validators.ParseUUIDParam(r, "loadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req assignCarrierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		load, err := svc.AssignCarrier(r.Context(), loads.AssignCarrierInput{
			LoadID:    loadID,
			CarrierID: req.CarrierID,
			Rate:      req.Rate,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, load)
	}
}

func ConfirmRate(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loadID, err := validators.ParseUUIDParam(r, "loadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		load, err := svc.ConfirmRate(r.Context(), loadID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, load)
	}
}

// TransitionLoad moves a load along the lifecycle.
func TransitionLoad(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loadID, err := validators.ParseUUIDParam(r, "loadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := enums.ParseLoadStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"status": req.Status}))
			return
		}
		result, err := svc.Transition(r.Context(), loads.TransitionInput{LoadID: loadID, To: to}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AssignDriver(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loadID, err := validators.ParseUUIDParam(r, "loadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req assignDriverRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		load, err := svc.AssignDriver(r.Context(), loadID, req.DriverID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, load)
	}
}

func DeleteLoad(svc loads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loadID, err := validators.ParseUUIDParam(r, "loadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SoftDelete(r.Context(), loadID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
