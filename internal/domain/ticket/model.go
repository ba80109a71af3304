// Package ticket implements the care-episode state machine: intake, doctor
// assignment and the checkout that releases resources and bills the visit.
package ticket

import (
	"time"

	"github.com/google/uuid"

	"github.com/svviitzerland/Medisync/internal/domain/billing"
	"github.com/svviitzerland/Medisync/internal/domain/pharmacy"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

var statusAliases = map[string]string{
	"draft":            StatusPending,
	"assigned_doctor":  StatusInProgress,
	"inpatient":        StatusInProgress,
	"operation":        StatusInProgress,
	"waiting_pharmacy": StatusCompleted,
}

// NormalizeStatus maps a stored or supplied status onto the three canonical
// states. The second result is false for values that are neither.
func NormalizeStatus(s string) (string, bool) {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return s, true
	}
	canon, ok := statusAliases[s]
	return canon, ok
}

var validSeverities = map[string]bool{"low": true, "medium": true, "high": true}

func ValidSeverity(s string) bool { return validSeverities[s] }

type Ticket struct {
	ID                int64      `json:"id"`
	PatientID         uuid.UUID  `json:"patient_id"`
	FONote            string     `json:"fo_note"`
	DoctorNote        *string    `json:"doctor_note,omitempty"`
	Status            string     `json:"status"`
	Severity          *string    `json:"severity_level,omitempty"`
	DoctorID          *uuid.UUID `json:"doctor_id,omitempty"`
	NurseTeamID       *int       `json:"nurse_team_id,omitempty"`
	RoomID            *int64     `json:"room_id,omitempty"`
	RequiresInpatient bool       `json:"requires_inpatient"`
	AIReasoning       *string    `json:"ai_reasoning,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type CreateRequest struct {
	PatientID         uuid.UUID  `json:"patient_id"`
	FONote            string     `json:"fo_note"`
	DoctorID          *uuid.UUID `json:"doctor_id,omitempty"`
	Severity          *string    `json:"severity_level,omitempty"`
	RequiresInpatient bool       `json:"requires_inpatient"`
	AIReasoning       *string    `json:"ai_reasoning,omitempty"`
}

type CreateResult struct {
	Ticket            *Ticket `json:"ticket"`
	AssignedNurseTeam *int    `json:"assigned_nurse_team,omitempty"`
}

type CheckupRequest struct {
	DoctorNote    string          `json:"doctor_note"`
	Prescriptions []pharmacy.Line `json:"prescriptions"`
	DoctorFee     int64           `json:"doctor_fee"`
	// DoctorID records who examined the patient when the ticket was never
	// assigned a doctor.
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
}

type CheckupResult struct {
	Ticket            *Ticket          `json:"ticket"`
	PrescriptionCount int              `json:"prescription_count"`
	InvoiceID         int64            `json:"invoice_id"`
	Invoice           *billing.Invoice `json:"invoice"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status      string
	PatientID   *uuid.UUID
	DoctorID    *uuid.UUID
	NurseTeamID int
	Limit       int
	Offset      int
}

// HistoryEntry is a past visit as shown to clinicians and the assistant.
type HistoryEntry struct {
	TicketID   int64     `json:"ticket_id"`
	FONote     string    `json:"fo_note"`
	DoctorNote *string   `json:"doctor_note,omitempty"`
	Status     string    `json:"status"`
	Severity   *string   `json:"severity_level,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
