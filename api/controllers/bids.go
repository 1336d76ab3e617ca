package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freightdispatch-backend/api/responses"
	"github.com/angelmondragon/freightdispatch-backend/api/validators"
	"github.com/angelmondragon/freightdispatch-backend/internal/bids"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

type submitBidRequest struct {
	CarrierID *uuid.UUID      `json:"carrier_id"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes" validate:"max=1000"`
}

// SubmitBid records a carrier offer on a posted load.
func SubmitBid(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req submitBidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bid, err := svc.SubmitBid(r.Context(), bids.SubmitBidInput{
			LoadID:    loadID,
			CarrierID: req.CarrierID,
			Amount:    req.Amount,
			Notes:     validators.SanitizeString(req.Notes, 1000),
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

func ListBids(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
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
		items, err := svc.ListBids(r.Context(), loadID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// AcceptBid awards the load to the bidding carrier and rejects the rest.
func AcceptBid(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
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
		bidID, err := validators.ParseUUIDParam(r, "bidId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.AcceptBid(r.Context(), loadID, bidID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func RejectBid(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bidID, err := validators.ParseUUIDParam(r, "bidId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bid, err := svc.RejectBid(r.Context(), bidID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}
