package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/api/responses"
	"github.com/angelmondragon/freightdispatch-backend/api/validators"
	"github.com/angelmondragon/freightdispatch-backend/internal/tracking"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

type recordLocationRequest struct {
	Lat        *float64   `json:"lat" validate:"required,latitude"`
	Lng        *float64   `json:"lng" validate:"required,longitude"`
	Heading    *float64   `json:"heading" validate:"omitempty,min=0,max=360"`
	Speed      *float64   `json:"speed" validate:"omitempty,min=0"`
	Accuracy   *float64   `json:"accuracy" validate:"omitempty,min=0"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type updateTrackingRequest struct {
	Lat    *float64 `json:"lat" validate:"required,latitude"`
	Lng    *float64 `json:"lng" validate:"required,longitude"`
	Status string   `json:"status" validate:"required"`
}

type stopRequest struct {
	LoadID      *uuid.UUID `json:"load_id"`
	StopType    string     `json:"stop_type" validate:"required"`
	Address     string     `json:"address" validate:"required,max=500"`
	Lat         *float64   `json:"lat" validate:"omitempty,latitude"`
	Lng         *float64   `json:"lng" validate:"omitempty,longitude"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type updateStopsRequest struct {
	Stops []stopRequest `json:"stops" validate:"dive"`
}

// RecordLocation stores one GPS sample for a driver.
func RecordLocation(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := validators.ParseUUIDParam(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req recordLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sample, err := svc.RecordLocation(r.Context(), tracking.RecordLocationInput{
			DriverID:   driverID,
			Lat:        *req.Lat,
			Lng:        *req.Lng,
			Heading:    req.Heading,
			Speed:      req.Speed,
			Accuracy:   req.Accuracy,
			RecordedAt: req.RecordedAt,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sample)
	}
}

func CurrentLocation(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := validators.ParseUUIDParam(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sample, err := svc.CurrentLocation(r.Context(), driverID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sample)
	}
}

// UpdateTracking moves the live tracking row of a load and recomputes its ETA.
func UpdateTracking(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req updateTrackingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseTrackingStatus(strings.TrimSpace(req.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tracking status"))
			return
		}
		result, err := svc.UpdateTracking(r.Context(), tracking.UpdateTrackingInput{
			LoadID: loadID,
			Lat:    *req.Lat,
			Lng:    *req.Lng,
			Status: status,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetTracking(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
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
		row, err := svc.GetTracking(r.Context(), loadID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// UpdateRouteStops replaces a driver's stop plan.
func UpdateRouteStops(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := validators.ParseUUIDParam(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStopsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inputs := make([]tracking.StopInput, 0, len(req.Stops))
		for i, stop := range req.Stops {
			stopType, err := enums.ParseStopType(strings.TrimSpace(stop.StopType))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stop type").
					WithDetails(map[string]any{"index": i}))
				return
			}
			inputs = append(inputs, tracking.StopInput{
				LoadID:      stop.LoadID,
				StopType:    stopType,
				Address:     validators.SanitizeString(stop.Address, 500),
				Lat:         stop.Lat,
				Lng:         stop.Lng,
				ScheduledAt: stop.ScheduledAt,
			})
		}
		stops, err := svc.UpdateRouteStops(r.Context(), driverID, inputs, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stops)
	}
}

func ListStops(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		driverID, err := validators.ParseUUIDParam(r, "driverId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stops, err := svc.ListStops(r.Context(), driverID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stops)
	}
}

func CompleteStop(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stopID, err := validators.ParseUUIDParam(r, "stopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stop, err := svc.CompleteStop(r.Context(), stopID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stop)
	}
}
