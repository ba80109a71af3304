package resource

import (
	"context"
	"fmt"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
)

var validRoomStatuses = map[string]bool{RoomAvailable: true, RoomOccupied: true}

// Service assigns and releases inpatient rooms and nurse teams. Every call
// re-reads live state; nothing is cached between requests.
type Service struct {
	repo         Repository
	defaultTeams []int
}

// NewService returns a Service that falls back to defaultTeams when no nurse
// is registered to any team.
func NewService(repo Repository, defaultTeams []int) *Service {
	return &Service{repo: repo, defaultTeams: defaultTeams}
}

// AssignRoom claims the lowest-numbered available room.
func (s *Service) AssignRoom(ctx context.Context) (*Room, error) {
	room, err := s.repo.ClaimAvailableRoom(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim room: %w", err)
	}
	if room == nil {
		return nil, apperr.NoAvailableResource("no room available")
	}
	return room, nil
}

// AssignNurseTeam picks the least loaded team. Run it inside a transaction so
// the team lock is held until the ticket referencing the team is written.
func (s *Service) AssignNurseTeam(ctx context.Context) (int, error) {
	if err := s.repo.LockTeams(ctx); err != nil {
		return 0, fmt.Errorf("lock nurse teams: %w", err)
	}
	teams, refs, err := s.teamState(ctx)
	if err != nil {
		return 0, err
	}
	return SelectNurseTeam(teams, refs)
}

// ReleaseRoom marks a room available. Releasing a free or unknown room is a
// no-op.
func (s *Service) ReleaseRoom(ctx context.Context, id int64) error {
	if err := s.repo.ReleaseRoom(ctx, id); err != nil {
		return fmt.Errorf("release room %d: %w", id, err)
	}
	return nil
}

func (s *Service) TeamLoads(ctx context.Context) ([]TeamLoad, error) {
	teams, refs, err := s.teamState(ctx)
	if err != nil {
		return nil, err
	}
	return Loads(teams, refs), nil
}

func (s *Service) teamState(ctx context.Context) (teams, refs []int, err error) {
	teams, err = s.repo.TeamIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list nurse teams: %w", err)
	}
	if len(teams) == 0 {
		teams = s.defaultTeams
	}
	refs, err = s.repo.ActiveTeamRefs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list active team references: %w", err)
	}
	return teams, refs, nil
}

func (s *Service) GetRoom(ctx context.Context, id int64) (*Room, error) {
	return s.repo.GetRoom(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, status string) ([]*Room, error) {
	if status != "" && !validRoomStatuses[status] {
		return nil, apperr.Validation("invalid room status: %s", status)
	}
	return s.repo.ListRooms(ctx, status)
}

func (s *Service) CreateRoom(ctx context.Context, r *Room) error {
	if r.Name == "" {
		return apperr.Validation("name is required")
	}
	if r.Type == "" {
		r.Type = "ward"
	}
	if r.Status == "" {
		r.Status = RoomAvailable
	}
	if !validRoomStatuses[r.Status] {
		return apperr.Validation("invalid room status: %s", r.Status)
	}
	return s.repo.CreateRoom(ctx, r)
}
