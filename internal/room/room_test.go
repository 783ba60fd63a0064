package room

import (
	"errors"
	"testing"

	"github.com/hyeonq/quiz-room-client/internal/event"
)

func soloSnapshot() event.JoinedRoom {
	return event.JoinedRoom{Room: event.RoomSnapshot{
		RoomID:     "room-1",
		InviteCode: "ABC123",
		HostName:   "Alice",
		MaxPlayers: 4,
		Players: []event.Player{
			{Email: "a@x", Name: "Alice"},
		},
	}}
}

// mustApply applies and fails the test on error or a violated invariant.
func mustApply(t *testing.T, s *State, ev event.Event) *State {
	t.Helper()
	ns, err := Apply(s, ev)
	if err != nil {
		t.Fatalf("apply %T: %v", ev, err)
	}
	if ns != nil {
		if err := Check(*ns); err != nil {
			t.Fatalf("invariant violated after %T: %v", ev, err)
		}
	}
	return ns
}

func TestFromSnapshot_LoneHostNameMatchMarksHost(t *testing.T) {
	s := FromSnapshot(soloSnapshot())

	if len(s.Players) != 1 || !s.Players[0].IsHost {
		t.Fatalf("expected lone player to be host, got %+v", s.Players)
	}
	if s.CurrentPlayerCount != 1 || s.CanStartGame {
		t.Fatalf("want count=1 canStart=false, got count=%d canStart=%v", s.CurrentPlayerCount, s.CanStartGame)
	}
	if err := Check(s); err != nil {
		t.Fatal(err)
	}
}

func TestFromSnapshot_LoneNonHostNameStaysUnmarked(t *testing.T) {
	ev := soloSnapshot()
	ev.Room.HostName = "Someone Else"
	s := FromSnapshot(ev)

	if s.Players[0].IsHost {
		t.Fatalf("player name does not match host name; should not be host")
	}
}

func TestFromSnapshot_KeepsServerHostFlags(t *testing.T) {
	ev := event.JoinedRoom{Room: event.RoomSnapshot{
		HostName:   "Alice",
		MaxPlayers: 4,
		Players: []event.Player{
			{Email: "a@x", Name: "Alice", IsHost: true},
			{Email: "b@x", Name: "Bob"},
		},
	}}
	s := FromSnapshot(ev)

	if !s.Players[0].IsHost || s.Players[1].IsHost {
		t.Fatalf("expected only Alice flagged as host, got %+v", s.Players)
	}
	if !s.CanStartGame || s.CurrentPlayerCount != 2 {
		t.Fatalf("want count=2 canStart=true, got count=%d canStart=%v", s.CurrentPlayerCount, s.CanStartGame)
	}
}

func TestApply_PlayerJoined(t *testing.T) {
	s := FromSnapshot(soloSnapshot())

	ns := mustApply(t, &s, event.PlayerJoined{Email: "b@x", Name: "Bob"})

	if ns.CurrentPlayerCount != 2 || !ns.CanStartGame {
		t.Fatalf("want count=2 canStart=true, got count=%d canStart=%v", ns.CurrentPlayerCount, ns.CanStartGame)
	}
	if !ns.Players[0].IsHost || ns.Players[1].IsHost {
		t.Fatalf("host must stay with Alice, got %+v", ns.Players)
	}
	// Input state untouched.
	if s.CurrentPlayerCount != 1 || len(s.Players) != 1 {
		t.Fatalf("input state mutated: %+v", s)
	}
}

func TestApply_PlayerJoined_DuplicateIgnored(t *testing.T) {
	s := FromSnapshot(soloSnapshot())
	join := event.PlayerJoined{Email: "b@x", Name: "Bob"}

	once := mustApply(t, &s, join)
	twice := mustApply(t, once, join)

	if twice.CurrentPlayerCount != once.CurrentPlayerCount || len(twice.Players) != len(once.Players) {
		t.Fatalf("duplicate join changed state: %+v vs %+v", twice, once)
	}
}

func TestApply_FirstJoinerBecomesHost(t *testing.T) {
	s := State{MaxPlayers: 4}

	ns := mustApply(t, &s, event.PlayerJoined{Email: "a@x", Name: "Alice"})

	if len(ns.Players) != 1 || !ns.Players[0].IsHost {
		t.Fatalf("first joiner into an empty room must be host, got %+v", ns.Players)
	}
}

func TestApply_PlayerLeft(t *testing.T) {
	s := FromSnapshot(soloSnapshot())
	ns := mustApply(t, &s, event.PlayerJoined{Email: "b@x", Name: "Bob"})

	ns = mustApply(t, ns, event.PlayerLeft{Email: "b@x"})

	if ns.CurrentPlayerCount != 1 || ns.CanStartGame {
		t.Fatalf("want count=1 canStart=false, got count=%d canStart=%v", ns.CurrentPlayerCount, ns.CanStartGame)
	}
	if ns.Players[0].Email != "a@x" {
		t.Fatalf("wrong player removed: %+v", ns.Players)
	}
}

func TestApply_PlayerLeft_NonMemberNoop(t *testing.T) {
	s := FromSnapshot(soloSnapshot())

	ns := mustApply(t, &s, event.PlayerLeft{Email: "ghost@x"})

	if ns.CurrentPlayerCount != 1 || len(ns.Players) != 1 {
		t.Fatalf("removing a non-member must be a no-op, got %+v", ns)
	}
}

func TestApply_NoRoomState(t *testing.T) {
	for _, ev := range []event.Event{
		event.PlayerJoined{Email: "b@x", Name: "Bob"},
		event.PlayerLeft{Email: "b@x"},
	} {
		if _, err := Apply(nil, ev); !errors.Is(err, ErrNoRoom) {
			t.Fatalf("apply %T with nil state: want ErrNoRoom, got %v", ev, err)
		}
	}
}

func TestApply_MessageClearsRoom(t *testing.T) {
	s := FromSnapshot(soloSnapshot())

	ns, err := Apply(&s, event.Message{Message: "room disbanded"})
	if err != nil {
		t.Fatal(err)
	}
	if ns != nil {
		t.Fatalf("MESSAGE must clear the room, got %+v", ns)
	}
}

func TestApply_UnrelatedEventPassesThrough(t *testing.T) {
	s := FromSnapshot(soloSnapshot())

	ns := mustApply(t, &s, event.GameStart{TotalQuestions: 5})

	if ns != &s {
		t.Fatalf("game events must not touch room state")
	}
}
