// Package assistant is the decision-support gateway. Each use case wraps a
// single LLM call and reports failures inside its result, so the clinical
// workflow can always fall back to manual handling.
package assistant

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// Envelope is embedded in every result.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func succeeded() Envelope          { return Envelope{Status: StatusSuccess} }
func failed(msg string) Envelope   { return Envelope{Status: StatusError, Message: msg} }
func rejected(msg string) Envelope { return Envelope{Status: StatusRejected, Message: msg} }

// -- Triage --

type TriageRequest struct {
	Complaint string     `json:"fo_note"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}

type TriageDecision struct {
	Specialization    string     `json:"predicted_specialization"`
	DoctorID          *uuid.UUID `json:"recommended_doctor_id"`
	DoctorName        string     `json:"recommended_doctor_name"`
	RequiresInpatient bool       `json:"requires_inpatient"`
	Severity          string     `json:"severity_level"`
	Reasoning         string     `json:"reasoning"`
}

type TriageResult struct {
	Envelope
	Analysis *TriageDecision `json:"analysis,omitempty"`
}

// -- Diagnostic suggestion --

type SuggestRequest struct {
	NIK         string `json:"nik"`
	DoctorDraft string `json:"doctor_draft,omitempty"`
}

type SuggestedMedicine struct {
	MedicineID int64  `json:"medicine_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

type Suggestion struct {
	Diagnosis         string              `json:"diagnosis"`
	TreatmentPlan     string              `json:"treatment_plan"`
	Medicines         []SuggestedMedicine `json:"medicines"`
	RequiresInpatient bool                `json:"requires_inpatient"`
	Reasoning         string              `json:"reasoning"`
}

type SuggestResult struct {
	Envelope
	Suggestion *Suggestion `json:"suggestion,omitempty"`
}

// -- Patient chat --

const (
	SenderPatient = "patient"
	SenderAI      = "ai"
)

// NotReadyReply is sent while the ticket has no doctor note yet.
const NotReadyReply = "Your doctor hasn't provided any notes yet. Please wait for your examination " +
	"to be completed, or contact the front office for more information."

type ChatMessage struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatRequest struct {
	TicketID int64  `json:"ticket_id"`
	Message  string `json:"message"`
	// Requester restricts the chat to the requester's own tickets when set.
	Requester *uuid.UUID `json:"-"`
}

type ChatResult struct {
	Envelope
	Reply      string `json:"reply,omitempty"`
	HasContext bool   `json:"has_context"`
	TicketID   int64  `json:"ticket_id,omitempty"`
}

// -- Pre-assessment --

type QuestionsResult struct {
	Envelope
	Questions   []string `json:"questions,omitempty"`
	RawResponse string   `json:"raw_response,omitempty"`
}

// Turn is one line of the pre-assessment conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SummaryResult struct {
	Envelope
	Summary string `json:"summary,omitempty"`
}
