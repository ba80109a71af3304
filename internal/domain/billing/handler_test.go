package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/svviitzerland/Medisync/pkg/pagination"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func TestHandler_ListInvoices(t *testing.T) {
	h, svc, e := newTestHandler()
	svc.Issue(context.Background(), 1, 100, 0)
	svc.Issue(context.Background(), 2, 100, 0)

	req := httptest.NewRequest(http.MethodGet, "/invoices?limit=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListInvoices(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp pagination.Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || !resp.HasMore {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestHandler_GetTicketInvoice(t *testing.T) {
	h, svc, e := newTestHandler()
	svc.Issue(context.Background(), 7, 150000, 40000)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("7")

	if err := h.GetTicketInvoice(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var inv Invoice
	json.Unmarshal(rec.Body.Bytes(), &inv)
	if inv.TotalAmount != 190000 {
		t.Errorf("expected total 190000, got %d", inv.TotalAmount)
	}
}

func TestHandler_GetInvoice_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("99")

	err := h.GetInvoice(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_PayInvoice_Twice(t *testing.T) {
	h, svc, e := newTestHandler()
	inv, _ := svc.Issue(context.Background(), 1, 100, 0)

	call := func() error {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatInt(inv.ID, 10))
		return h.PayInvoice(c)
	}

	if err := call(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := call()
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 on second payment, got %v", err)
	}
}

func TestHandler_SetRoomFee(t *testing.T) {
	h, svc, e := newTestHandler()
	inv, _ := svc.Issue(context.Background(), 1, 100, 0)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"room_fee":300}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(inv.ID, 10))

	if err := h.SetRoomFee(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out Invoice
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.TotalAmount != 400 {
		t.Errorf("expected total 400, got %d", out.TotalAmount)
	}
}

func TestHandler_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("-3")

	if err := h.GetInvoice(c); err == nil {
		t.Error("expected error for invalid id")
	}
}
