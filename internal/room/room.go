package room

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hyeonq/quiz-room-client/internal/event"
)

// ErrNoRoom is returned when a membership event arrives before the private
// JOINED_ROOM snapshot has been processed. The two channels carry no
// relative ordering, so this happens in normal operation; callers log and
// drop the event.
var ErrNoRoom = errors.New("no room state")

type Player struct {
	Email   string
	Name    string
	Picture string
	IsHost  bool
}

type State struct {
	RoomID             string
	InviteCode         string
	HostName           string
	MaxPlayers         int
	CurrentPlayerCount int
	CanStartGame       bool
	Players            []Player
}

// FromSnapshot replaces the room state wholesale with the private-queue
// snapshot. Host tie-break: the initial snapshot may omit per-player host
// flags, so a lone player whose name matches the recorded host name is
// marked as the host.
func FromSnapshot(ev event.JoinedRoom) State {
	snap := ev.Room
	s := State{
		RoomID:     snap.RoomID,
		InviteCode: snap.InviteCode,
		HostName:   snap.HostName,
		MaxPlayers: snap.MaxPlayers,
		Players:    make([]Player, 0, len(snap.Players)),
	}
	for _, p := range snap.Players {
		s.Players = append(s.Players, Player{Email: p.Email, Name: p.Name, Picture: p.Picture, IsHost: p.IsHost})
	}
	if len(s.Players) == 1 && s.Players[0].Name == s.HostName {
		s.Players[0].IsHost = true
	}
	return recount(s)
}

// Apply merges one membership event into the room state. The input is never
// mutated; a nil state means no snapshot has arrived yet. A nil result with
// a nil error means the room is gone.
func Apply(s *State, ev event.Event) (*State, error) {
	switch e := ev.(type) {
	case event.JoinedRoom:
		ns := FromSnapshot(e)
		return &ns, nil
	case event.PlayerJoined:
		if s == nil {
			return nil, ErrNoRoom
		}
		ns := applyPlayerJoined(*s, e)
		return &ns, nil
	case event.PlayerLeft:
		if s == nil {
			return nil, ErrNoRoom
		}
		ns := applyPlayerLeft(*s, e)
		return &ns, nil
	case event.Message:
		// Broadcast notices clear the room; the disconnect that follows is
		// the session's job.
		return nil, nil
	default:
		return s, nil
	}
}

func applyPlayerJoined(s State, e event.PlayerJoined) State {
	// The same join can be delivered on both the private queue and the
	// room topic; the second copy is a no-op.
	if slices.ContainsFunc(s.Players, func(p Player) bool { return p.Email == e.Email }) {
		return s
	}
	p := Player{
		Email:   e.Email,
		Name:    e.Name,
		Picture: e.Picture,
		IsHost:  len(s.Players) == 0, // the room creator is the sole initial member
	}
	s.Players = append(slices.Clone(s.Players), p)
	return recount(s)
}

func applyPlayerLeft(s State, e event.PlayerLeft) State {
	i := slices.IndexFunc(s.Players, func(p Player) bool { return p.Email == e.Email })
	if i < 0 {
		return s
	}
	s.Players = slices.Delete(slices.Clone(s.Players), i, i+1)
	return recount(s)
}

func recount(s State) State {
	s.CurrentPlayerCount = len(s.Players)
	s.CanStartGame = s.CurrentPlayerCount >= 2
	return s
}

// Check reports the first violated room invariant, or nil. A violation is a
// logic fault in the merge path, not a recoverable condition.
func Check(s State) error {
	if s.CurrentPlayerCount != len(s.Players) {
		return fmt.Errorf("player count %d does not match %d players", s.CurrentPlayerCount, len(s.Players))
	}
	if s.CanStartGame != (s.CurrentPlayerCount >= 2) {
		return fmt.Errorf("canStartGame=%v with %d players", s.CanStartGame, s.CurrentPlayerCount)
	}
	hosts := 0
	seen := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.IsHost {
			hosts++
		}
		if seen[p.Email] {
			return fmt.Errorf("duplicate player email %q", p.Email)
		}
		seen[p.Email] = true
	}
	if len(s.Players) >= 1 && hosts != 1 {
		return fmt.Errorf("expected exactly one host, found %d", hosts)
	}
	return nil
}
