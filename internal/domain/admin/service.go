package admin

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/svviitzerland/Medisync/internal/domain/billing"
	"github.com/svviitzerland/Medisync/internal/domain/resource"
)

type People interface {
	CountPatients(ctx context.Context) (int, error)
	CountDoctors(ctx context.Context) (int, error)
}

type Tickets interface {
	Count(ctx context.Context) (int, error)
}

type Invoices interface {
	Revenue(ctx context.Context) (*billing.Revenue, error)
}

type Rooms interface {
	ListRooms(ctx context.Context, status string) ([]*resource.Room, error)
}

type Service struct {
	people   People
	tickets  Tickets
	invoices Invoices
	rooms    Rooms
}

func NewService(people People, tickets Tickets, invoices Invoices, rooms Rooms) *Service {
	return &Service{people: people, tickets: tickets, invoices: invoices, rooms: rooms}
}

// Stats runs the independent counts concurrently and fails if any of them
// does.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.people.CountPatients(ctx)
		if err != nil {
			return fmt.Errorf("count patients: %w", err)
		}
		st.Patients = n
		return nil
	})
	g.Go(func() error {
		n, err := s.people.CountDoctors(ctx)
		if err != nil {
			return fmt.Errorf("count doctors: %w", err)
		}
		st.Doctors = n
		return nil
	})
	g.Go(func() error {
		n, err := s.tickets.Count(ctx)
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}
		st.Tickets = n
		return nil
	})
	g.Go(func() error {
		rev, err := s.invoices.Revenue(ctx)
		if err != nil {
			return fmt.Errorf("sum revenue: %w", err)
		}
		st.Revenue, st.Collected, st.Outstanding = rev.Billed, rev.Collected, rev.Outstanding
		return nil
	})
	g.Go(func() error {
		rooms, err := s.rooms.ListRooms(ctx, "")
		if err != nil {
			return fmt.Errorf("list rooms: %w", err)
		}
		for _, r := range rooms {
			if r.Status == resource.RoomAvailable {
				st.RoomsAvailable++
			} else {
				st.RoomsOccupied++
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}
