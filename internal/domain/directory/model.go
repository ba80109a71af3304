// Package directory keeps the people the workflow refers to: patients,
// doctors and nurses. Credentials live with the identity provider, not here.
package directory

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleNurse   = "nurse"
)

type Profile struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	NIK       *string   `json:"nik,omitempty"`
	Age       *int      `json:"age,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Doctor struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
}

type Nurse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	TeamID int       `json:"team_id"`
}

// PatientEmail is the placeholder address given to patients registered at
// the front desk without their own email.
func PatientEmail(nik string) string {
	return "pasien_" + nik + "@medisync.local"
}
