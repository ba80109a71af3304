package resource

import "context"

type Repository interface {
	// ClaimAvailableRoom atomically marks one available room occupied and
	// returns it, or returns nil when every room is taken.
	ClaimAvailableRoom(ctx context.Context) (*Room, error)
	ReleaseRoom(ctx context.Context, id int64) error
	GetRoom(ctx context.Context, id int64) (*Room, error)
	ListRooms(ctx context.Context, status string) ([]*Room, error)
	CreateRoom(ctx context.Context, r *Room) error

	TeamIDs(ctx context.Context) ([]int, error)
	ActiveTeamRefs(ctx context.Context) ([]int, error)
	// LockTeams serialises team selection until the surrounding transaction
	// ends.
	LockTeams(ctx context.Context) error
}
