package resource

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	rooms   map[int64]*Room
	nextID  int64
	nurses  []int
	refs    []int
	locks   int
	teamErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{rooms: make(map[int64]*Room)}
}

func (m *mockRepo) addRoom(name, status string) *Room {
	m.nextID++
	r := &Room{ID: m.nextID, Name: name, Type: "ward", Status: status}
	m.rooms[r.ID] = r
	return r
}

func (m *mockRepo) sortedRooms() []*Room {
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRepo) ClaimAvailableRoom(_ context.Context) (*Room, error) {
	for _, r := range m.sortedRooms() {
		if r.Status == RoomAvailable {
			r.Status = RoomOccupied
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ReleaseRoom(_ context.Context, id int64) error {
	if r, ok := m.rooms[id]; ok {
		r.Status = RoomAvailable
	}
	return nil
}

func (m *mockRepo) GetRoom(_ context.Context, id int64) (*Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, apperr.NotFound("room %d not found", id)
	}
	return r, nil
}

func (m *mockRepo) ListRooms(_ context.Context, status string) ([]*Room, error) {
	var out []*Room
	for _, r := range m.sortedRooms() {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateRoom(_ context.Context, r *Room) error {
	m.nextID++
	r.ID = m.nextID
	m.rooms[r.ID] = r
	return nil
}

func (m *mockRepo) TeamIDs(_ context.Context) ([]int, error) {
	if m.teamErr != nil {
		return nil, m.teamErr
	}
	return m.nurses, nil
}

func (m *mockRepo) ActiveTeamRefs(_ context.Context) ([]int, error) {
	return m.refs, nil
}

func (m *mockRepo) LockTeams(_ context.Context) error {
	m.locks++
	return nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, []int{1, 2, 3}), repo
}

// -- Tests --

func TestService_AssignRoom(t *testing.T) {
	svc, repo := newTestService()
	repo.addRoom("R1", RoomOccupied)
	r2 := repo.addRoom("R2", RoomAvailable)
	repo.addRoom("R3", RoomAvailable)

	room, err := svc.AssignRoom(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.ID != r2.ID {
		t.Errorf("expected lowest available room %d, got %d", r2.ID, room.ID)
	}
	if repo.rooms[r2.ID].Status != RoomOccupied {
		t.Error("expected claimed room to be occupied")
	}
}

func TestService_AssignRoom_NoneAvailable(t *testing.T) {
	svc, repo := newTestService()
	repo.addRoom("R1", RoomOccupied)

	_, err := svc.AssignRoom(context.Background())
	if !errors.Is(err, apperr.ErrNoAvailableResource) {
		t.Errorf("expected no-available-resource, got %v", err)
	}
}

func TestService_ReleaseRoom_Idempotent(t *testing.T) {
	svc, repo := newTestService()
	r := repo.addRoom("R1", RoomOccupied)

	for i := 0; i < 2; i++ {
		if err := svc.ReleaseRoom(context.Background(), r.ID); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if repo.rooms[r.ID].Status != RoomAvailable {
		t.Error("expected room available")
	}
	if err := svc.ReleaseRoom(context.Background(), 999); err != nil {
		t.Errorf("releasing unknown room should be a no-op, got %v", err)
	}
}

func TestService_AssignNurseTeam_DefaultTeams(t *testing.T) {
	svc, repo := newTestService()
	repo.refs = []int{1, 2}

	team, err := svc.AssignNurseTeam(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team != 3 {
		t.Errorf("expected idle default team 3, got %d", team)
	}
	if repo.locks != 1 {
		t.Errorf("expected team lock taken once, got %d", repo.locks)
	}
}

func TestService_AssignNurseTeam_RegisteredTeams(t *testing.T) {
	svc, repo := newTestService()
	repo.nurses = []int{5, 6}
	repo.refs = []int{5, 1, 1, 1}

	team, err := svc.AssignNurseTeam(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if team != 6 {
		t.Errorf("expected team 6, got %d", team)
	}
}

func TestService_AssignNurseTeam_StoreError(t *testing.T) {
	svc, repo := newTestService()
	repo.teamErr = errors.New("connection reset")

	if _, err := svc.AssignNurseTeam(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_TeamLoads(t *testing.T) {
	svc, repo := newTestService()
	repo.refs = []int{2, 2, 3}

	loads, err := svc.TeamLoads(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []TeamLoad{{1, 0}, {2, 2}, {3, 1}}
	for i, l := range loads {
		if l != want[i] {
			t.Errorf("load %d: expected %+v, got %+v", i, want[i], l)
		}
	}
}

func TestService_ListRooms_InvalidStatus(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.ListRooms(context.Background(), "broken"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_CreateRoom(t *testing.T) {
	svc, repo := newTestService()

	if err := svc.CreateRoom(context.Background(), &Room{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for missing name, got %v", err)
	}

	r := &Room{Name: "R9"}
	if err := svc.CreateRoom(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != RoomAvailable || r.Type != "ward" {
		t.Errorf("expected defaults applied, got %+v", r)
	}
	if _, ok := repo.rooms[r.ID]; !ok {
		t.Error("expected room stored")
	}
}
