package controllers

import (
	"net/http"

	"github.com/angelmondragon/freightdispatch-backend/api/responses"
	"github.com/angelmondragon/freightdispatch-backend/api/validators"
	"github.com/angelmondragon/freightdispatch-backend/internal/assignment"
	"github.com/angelmondragon/freightdispatch-backend/internal/geocoding"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

// OptimizedAssignments ranks driver/load pairings across the fleet.
func OptimizedAssignments(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.OptimizedAssignments(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func LoadProximity(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
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
		result, err := svc.LoadProximity(r.Context(), loadID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CarrierProximity ranks carriers for a load by their closest driver.
func CarrierProximity(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
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
		result, err := svc.CarrierProximity(r.Context(), loadID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GeocodeLoad resolves a load's addresses on demand. Staff only; the route
// group enforces the role.
func GeocodeLoad(svc geocoding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loadID, err := validators.ParseUUIDParam(r, "loadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		location, err := svc.GeocodeLoad(r.Context(), loadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, location)
	}
}
