// Package pharmacy owns the medicine catalog, prescriptions written at
// checkout, and dispensing.
package pharmacy

import "time"

const (
	StatusPending   = "pending"
	StatusDispensed = "dispensed"
)

type Medicine struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Unit  string `json:"unit"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
}

// Line is one prescribed medicine as written by the doctor.
type Line struct {
	MedicineID int64  `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

type Prescription struct {
	ID           int64     `json:"id"`
	TicketID     int64     `json:"ticket_id"`
	MedicineID   int64     `json:"medicine_id"`
	MedicineName *string   `json:"medicine_name,omitempty"`
	Quantity     int       `json:"quantity"`
	Notes        *string   `json:"notes,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Order groups the pending prescriptions of one ticket for the pharmacy queue.
type Order struct {
	TicketID int64           `json:"ticket_id"`
	Items    []*Prescription `json:"items"`
}

// GroupByTicket preserves the order in which tickets first appear.
func GroupByTicket(items []*Prescription) []Order {
	var orders []Order
	index := make(map[int64]int)
	for _, p := range items {
		i, ok := index[p.TicketID]
		if !ok {
			i = len(orders)
			index[p.TicketID] = i
			orders = append(orders, Order{TicketID: p.TicketID})
		}
		orders[i].Items = append(orders[i].Items, p)
	}
	return orders
}
