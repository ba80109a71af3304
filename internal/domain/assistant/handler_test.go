package assistant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/svviitzerland/Medisync/internal/platform/auth"
)

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Triage(t *testing.T) {
	f := newFixture()
	f.llm.reply = `{"action":"reject","reasoning":"not a complaint"}`
	h := NewHandler(f.svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"fo_note":"asdkjaskjd"}`), rec)
	if err := h.Triage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var res TriageResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Status != StatusRejected || res.Message != "not a complaint" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Chat_PatientLimitedToOwnTicket(t *testing.T) {
	f := newFixture()
	note := "flu"
	tk := seedTicket(f, &note)
	f.llm.reply = "Rest well."
	h := NewHandler(f.svc)
	e := echo.New()

	call := func(user uuid.UUID) ChatResult {
		req := jsonRequest(http.MethodPost, `{"ticket_id":9,"message":"when can I work?"}`)
		req = req.WithContext(auth.WithUser(req.Context(), user.String(), []string{auth.RolePatient}))
		rec := httptest.NewRecorder()
		if err := h.Chat(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var res ChatResult
		json.Unmarshal(rec.Body.Bytes(), &res)
		return res
	}

	if res := call(uuid.New()); res.Status != StatusError {
		t.Errorf("stranger should not reach the ticket, got %+v", res)
	}
	if res := call(tk.PatientID); res.Status != StatusSuccess || res.Reply != "Rest well." {
		t.Errorf("owner should get a reply, got %+v", res)
	}
}

func TestHandler_ChatHistory(t *testing.T) {
	f := newFixture()
	note := "flu"
	seedTicket(f, &note)
	f.chats.messages = []*ChatMessage{{TicketID: 9, Sender: SenderPatient, Message: "hi"}}
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "fo-1", []string{auth.RoleFrontOffice}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("ticket_id")
	c.SetParamValues("9")

	if err := h.ChatHistory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var msgs []ChatMessage
	json.Unmarshal(rec.Body.Bytes(), &msgs)
	if len(msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs))
	}

	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("ticket_id")
	c.SetParamValues("0")
	if err := h.ChatHistory(c); err == nil {
		t.Error("expected error for invalid ticket id")
	}
}
