// Package billing computes checkout fees and manages the resulting invoices.
// Amounts are integers in the smallest currency unit.
package billing

import "time"

const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
)

// Line is one prescribed medicine as seen by billing.
type Line struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int   `json:"quantity"`
}

// MedicineFee is the sum of price times quantity over lines. Medicines
// missing from prices cost nothing.
func MedicineFee(lines []Line, prices map[int64]int64) int64 {
	var fee int64
	for _, l := range lines {
		fee += prices[l.MedicineID] * int64(l.Quantity)
	}
	return fee
}

type Invoice struct {
	ID          int64      `json:"id"`
	TicketID    int64      `json:"ticket_id"`
	DoctorFee   int64      `json:"doctor_fee"`
	MedicineFee int64      `json:"medicine_fee"`
	RoomFee     int64      `json:"room_fee"`
	TotalAmount int64      `json:"total_amount"`
	Status      string     `json:"status"`
	IssuedAt    time.Time  `json:"issued_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func (i *Invoice) Total() int64 {
	return i.DoctorFee + i.MedicineFee + i.RoomFee
}

// NewInvoice builds an unpaid invoice with no room fee.
func NewInvoice(ticketID, doctorFee, medicineFee int64) *Invoice {
	inv := &Invoice{
		TicketID:    ticketID,
		DoctorFee:   doctorFee,
		MedicineFee: medicineFee,
		Status:      StatusUnpaid,
	}
	inv.TotalAmount = inv.Total()
	return inv
}

// Revenue summarises every invoice issued so far.
type Revenue struct {
	Invoices    int   `json:"invoices"`
	Billed      int64 `json:"billed"`
	Collected   int64 `json:"collected"`
	Outstanding int64 `json:"outstanding"`
}
