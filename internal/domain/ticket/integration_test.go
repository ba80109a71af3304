//go:build integration

package ticket_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svviitzerland/Medisync/internal/domain/billing"
	"github.com/svviitzerland/Medisync/internal/domain/directory"
	"github.com/svviitzerland/Medisync/internal/domain/pharmacy"
	"github.com/svviitzerland/Medisync/internal/domain/resource"
	"github.com/svviitzerland/Medisync/internal/domain/ticket"
	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/db"
	"github.com/svviitzerland/Medisync/internal/platform/db/dbtest"
	"github.com/svviitzerland/Medisync/internal/platform/outbox"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.Main(m))
}

type stack struct {
	pool      *pgxpool.Pool
	tickets   *ticket.Service
	directory *directory.Service
	resources *resource.Service
	billing   *billing.Service
	outbox    outbox.Repository
}

func newStack(t *testing.T) *stack {
	t.Helper()
	pool := dbtest.NewPool(t)
	txm := db.NewTxManager(pool)
	events := outbox.NewRepo(pool)

	res := resource.NewService(resource.NewRepoPG(pool), []int{1, 2, 3})
	pharm := pharmacy.NewService(pharmacy.NewMedicineRepoPG(pool), pharmacy.NewPrescriptionRepoPG(pool), txm, events)
	bill := billing.NewService(billing.NewRepoPG(pool), txm, events)
	dir := directory.NewService(directory.NewProfileRepoPG(pool), directory.NewStaffRepoPG(pool), txm)

	return &stack{
		pool:      pool,
		tickets:   ticket.NewService(ticket.NewRepoPG(pool), res, pharm, bill, txm, events),
		directory: dir,
		resources: res,
		billing:   bill,
		outbox:    events,
	}
}

func (s *stack) patient(t *testing.T, nik string) uuid.UUID {
	t.Helper()
	p, err := s.directory.RegisterPatient(context.Background(), directory.RegisterPatientRequest{NIK: nik, Name: "Pasien " + nik, Age: 40})
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	return p.ID
}

func (s *stack) doctor(t *testing.T) uuid.UUID {
	t.Helper()
	d, err := s.directory.RegisterDoctor(context.Background(), "dr. Sari", "Internal Medicine")
	if err != nil {
		t.Fatalf("register doctor: %v", err)
	}
	return d.ID
}

func TestIntegration_AdmitAndCheckout(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	patientID := s.patient(t, "3171000000000001")
	doctorID := s.doctor(t)

	created, err := s.tickets.Create(ctx, ticket.CreateRequest{
		PatientID:         patientID,
		FONote:            "Demam tinggi tiga hari",
		DoctorID:          &doctorID,
		RequiresInpatient: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tk := created.Ticket
	if tk.Status != ticket.StatusInProgress {
		t.Errorf("expected in_progress, got %s", tk.Status)
	}
	if tk.RoomID == nil || *tk.RoomID != 1 {
		t.Fatalf("expected room 1, got %v", tk.RoomID)
	}
	if created.AssignedNurseTeam == nil || *created.AssignedNurseTeam != 1 {
		t.Errorf("expected nurse team 1, got %v", created.AssignedNurseTeam)
	}
	room, err := s.resources.GetRoom(ctx, 1)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.Status != resource.RoomOccupied {
		t.Errorf("expected room occupied, got %s", room.Status)
	}

	// Paracetamol is seeded at 2000.
	res, err := s.tickets.CompleteCheckup(ctx, tk.ID, ticket.CheckupRequest{
		DoctorNote:    "Observasi tifoid",
		Prescriptions: []pharmacy.Line{{MedicineID: 1, Quantity: 2}},
		DoctorFee:     150000,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Ticket.Status != ticket.StatusCompleted {
		t.Errorf("expected completed, got %s", res.Ticket.Status)
	}
	if res.Ticket.RoomID != nil || res.Ticket.NurseTeamID != nil {
		t.Errorf("expected room and team cleared, got %v %v", res.Ticket.RoomID, res.Ticket.NurseTeamID)
	}
	if res.PrescriptionCount != 1 {
		t.Errorf("expected 1 prescription, got %d", res.PrescriptionCount)
	}
	if res.Invoice.TotalAmount != 154000 {
		t.Errorf("expected total 154000, got %d", res.Invoice.TotalAmount)
	}

	room, _ = s.resources.GetRoom(ctx, 1)
	if room.Status != resource.RoomAvailable {
		t.Errorf("expected room released, got %s", room.Status)
	}

	inv, err := s.billing.GetByTicket(ctx, tk.ID)
	if err != nil {
		t.Fatalf("invoice by ticket: %v", err)
	}
	if inv.ID != res.InvoiceID || inv.Status != billing.StatusUnpaid {
		t.Errorf("unexpected invoice %+v", inv)
	}

	_, err = s.tickets.CompleteCheckup(ctx, tk.ID, ticket.CheckupRequest{DoctorNote: "again", DoctorFee: 1})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error on second checkout, got %v", err)
	}

	pending, err := s.outbox.PendingCount(ctx)
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	// ticket.created and ticket.completed at least
	if pending < 2 {
		t.Errorf("expected outbox events from the workflow, got %d", pending)
	}
}

func TestIntegration_CheckoutRollsBackOnInvoiceConflict(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	patientID := s.patient(t, "3171000000000002")
	doctorID := s.doctor(t)

	created, err := s.tickets.Create(ctx, ticket.CreateRequest{
		PatientID: patientID, FONote: "Batuk", DoctorID: &doctorID, RequiresInpatient: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Ticket.ID

	// An invoice issued out of band makes the checkout insert collide.
	if _, err := s.billing.Issue(ctx, id, 1, 0); err != nil {
		t.Fatalf("pre-issue invoice: %v", err)
	}

	_, err = s.tickets.CompleteCheckup(ctx, id, ticket.CheckupRequest{
		DoctorNote: "note", Prescriptions: []pharmacy.Line{{MedicineID: 1, Quantity: 1}}, DoctorFee: 100,
	})
	if err == nil {
		t.Fatal("expected checkout to fail")
	}

	got, err := s.tickets.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ticket.StatusInProgress || got.RoomID == nil {
		t.Errorf("expected ticket untouched, got status=%s room=%v", got.Status, got.RoomID)
	}
	room, _ := s.resources.GetRoom(ctx, *got.RoomID)
	if room.Status != resource.RoomOccupied {
		t.Errorf("expected room still occupied, got %s", room.Status)
	}
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions WHERE ticket_id = $1`, id).Scan(&n); err != nil {
		t.Fatalf("count prescriptions: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no prescriptions after rollback, got %d", n)
	}
}

func TestIntegration_ConcurrentAdmissionsNeverShareARoom(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	doctorID := s.doctor(t)

	// Four rooms are seeded.
	const admissions = 7
	patients := make([]uuid.UUID, admissions)
	for i := range patients {
		patients[i] = s.patient(t, "31710000000001"+string(rune('0'+i))+"0")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		rooms   = map[int64]bool{}
		teams   = map[int]int{}
		refused int
		other   []error
	)
	for _, pid := range patients {
		wg.Add(1)
		go func(pid uuid.UUID) {
			defer wg.Done()
			res, err := s.tickets.Create(ctx, ticket.CreateRequest{
				PatientID: pid, FONote: "Rawat inap", DoctorID: &doctorID, RequiresInpatient: true,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, apperr.ErrNoAvailableResource):
				refused++
			case err != nil:
				other = append(other, err)
			default:
				if rooms[*res.Ticket.RoomID] {
					t.Errorf("room %d assigned twice", *res.Ticket.RoomID)
				}
				rooms[*res.Ticket.RoomID] = true
				teams[*res.AssignedNurseTeam]++
			}
		}(pid)
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if len(rooms) != 4 || refused != admissions-4 {
		t.Errorf("expected 4 admitted and %d refused, got %d and %d", admissions-4, len(rooms), refused)
	}
	// Loads stay within one of each other.
	if teams[1] != 2 || teams[2] != 1 || teams[3] != 1 {
		t.Errorf("expected team loads 2/1/1, got %v", teams)
	}

	available, err := s.resources.ListRooms(ctx, resource.RoomAvailable)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(available) != 0 {
		t.Errorf("expected no available rooms, got %d", len(available))
	}
}
