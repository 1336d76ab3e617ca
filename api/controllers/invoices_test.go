package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

type stubGuard struct {
	issued int
	err    error
}

func (g *stubGuard) IssueInvoice(_ context.Context, loadID uuid.UUID, _ types.Actor) (*models.Invoice, error) {
	g.issued++
	if g.err != nil {
		return nil, g.err
	}
	return &models.Invoice{ID: uuid.New(), LoadID: loadID}, nil
}

func (g *stubGuard) GetInvoice(_ context.Context, loadID uuid.UUID, _ types.Actor) (*models.Invoice, error) {
	return &models.Invoice{ID: uuid.New(), LoadID: loadID}, g.err
}

func (g *stubGuard) MarkPaid(_ context.Context, invoiceID uuid.UUID, _ types.Actor) (*models.Invoice, error) {
	return &models.Invoice{ID: invoiceID}, g.err
}

func (g *stubGuard) CheckReadiness(*models.Load) error { return g.err }

func TestIssueInvoice(t *testing.T) {
	guard := &stubGuard{}
	actor := dispatcherActor()
	params := map[string]string{"loadId": uuid.NewString()}

	rec := httptest.NewRecorder()
	IssueInvoice(guard, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads/x/invoice", nil, &actor, params))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	guard.err = pkgerrors.New(pkgerrors.CodeDuplicateInvoice, "load already invoiced")
	rec = httptest.NewRecorder()
	IssueInvoice(guard, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads/x/invoice", nil, &actor, params))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != string(pkgerrors.CodeDuplicateInvoice) {
		t.Fatalf("unexpected code %q", env.Error.Code)
	}
	if guard.issued != 2 {
		t.Fatalf("expected 2 calls got %d", guard.issued)
	}
}

func TestIssueInvoiceRateNotConfirmed(t *testing.T) {
	guard := &stubGuard{err: pkgerrors.New(pkgerrors.CodeRateNotConfirmed, "carrier rate is not confirmed")}
	actor := dispatcherActor()
	rec := httptest.NewRecorder()
	IssueInvoice(guard, testLogger())(rec, newRequest(t, http.MethodPost, "/api/v1/loads/x/invoice", nil, &actor,
		map[string]string{"loadId": uuid.NewString()}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}
