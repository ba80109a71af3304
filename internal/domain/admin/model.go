// Package admin serves the hospital summary shown on the admin dashboard.
package admin

// Stats is a point-in-time summary. Revenue is the billed total across all
// invoices, paid or not.
type Stats struct {
	Patients       int   `json:"patients"`
	Doctors        int   `json:"doctors"`
	Tickets        int   `json:"tickets"`
	Revenue        int64 `json:"revenue"`
	Collected      int64 `json:"collected"`
	Outstanding    int64 `json:"outstanding"`
	RoomsAvailable int   `json:"rooms_available"`
	RoomsOccupied  int   `json:"rooms_occupied"`
}
