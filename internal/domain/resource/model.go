package resource

import (
	"sort"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
)

const (
	RoomAvailable = "available"
	RoomOccupied  = "occupied"
)

type Room struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

type TeamLoad struct {
	TeamID int `json:"team_id"`
	Load   int `json:"load"`
}

// Loads counts active ticket references per team over the given team
// universe, ordered by team id. References to teams outside the universe are
// ignored and duplicate team ids are collapsed.
func Loads(teamIDs, activeRefs []int) []TeamLoad {
	counts := make(map[int]int, len(teamIDs))
	for _, id := range teamIDs {
		counts[id] = 0
	}
	for _, ref := range activeRefs {
		if _, ok := counts[ref]; ok {
			counts[ref]++
		}
	}

	loads := make([]TeamLoad, 0, len(counts))
	for id, n := range counts {
		loads = append(loads, TeamLoad{TeamID: id, Load: n})
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].TeamID < loads[j].TeamID })
	return loads
}

// SelectNurseTeam returns the team with the fewest active tickets. Ties go
// to the lowest team id.
func SelectNurseTeam(teamIDs, activeRefs []int) (int, error) {
	loads := Loads(teamIDs, activeRefs)
	if len(loads) == 0 {
		return 0, apperr.NoAvailableResource("no nurse teams configured")
	}
	best := loads[0]
	for _, l := range loads[1:] {
		if l.Load < best.Load {
			best = l
		}
	}
	return best.TeamID, nil
}
