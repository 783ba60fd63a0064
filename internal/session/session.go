package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyeonq/quiz-room-client/internal/event"
	"github.com/hyeonq/quiz-room-client/internal/game"
	"github.com/hyeonq/quiz-room-client/internal/room"
	"github.com/hyeonq/quiz-room-client/internal/transport"
)

var (
	ErrAlreadyJoined = errors.New("session already joined")
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

const (
	privateQueue = "/user/queue/room"
	roomTopic    = "/topic/room/"
)

// Dialer opens the transport connection for a session. Injected so tests
// can run the full event loop without a server.
type Dialer func(ctx context.Context) (transport.Transport, error)

// Snapshot is the externally observable session state. Nothing in it is
// mutated after it is handed out.
type Snapshot struct {
	ID     string
	Status Status
	IsHost bool
	Room   *room.State
	Game   game.State
}

// Session synchronizes one user's view of a room and its game. It is a
// single-goroutine actor: every inbound event and every local request goes
// through the inbox, so the two independently ordered delivery streams
// always merge one at a time. A session joins once; after teardown it is
// stale and the caller starts a fresh one.
type Session struct {
	id     string
	invite string
	dial   Dialer
	log    *zap.Logger

	joined  atomic.Bool
	inbox   chan msg
	updates chan Snapshot
	notices chan string
	done    chan struct{}

	// Owned by the loop goroutine only.
	tr      transport.Transport
	private transport.Subscription
	topic   transport.Subscription
	status  Status
	isHost  bool
	room    *room.State
	game    game.State
}

type msg interface{ isSessionMsg() }

type inboundEvent struct {
	channel string // which subscription delivered it
	ev      event.Event
}

type startReq struct{}

type answerReq struct{ option int }

type leaveReq struct{}

type snapshotReq struct{ reply chan Snapshot }

type transportDown struct{ err error }

func (inboundEvent) isSessionMsg()  {}
func (startReq) isSessionMsg()      {}
func (answerReq) isSessionMsg()     {}
func (leaveReq) isSessionMsg()      {}
func (snapshotReq) isSessionMsg()   {}
func (transportDown) isSessionMsg() {}

func New(invite string, dial Dialer, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		invite:  invite,
		dial:    dial,
		log:     log.With(zap.String("session", id[:8]), zap.String("invite", invite)),
		inbox:   make(chan msg, 64),
		updates: make(chan Snapshot, 8),
		notices: make(chan string, 32),
		done:    make(chan struct{}),
		status:  StatusIdle,
	}
}

func (s *Session) ID() string { return s.id }

// Updates delivers a snapshot after each state change. A slow consumer
// misses intermediate snapshots (drop-on-full); Snapshot() always has the
// latest.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

// Notices carries user-visible plain-text messages: room broadcasts,
// answer commentary, connection failures.
func (s *Session) Notices() <-chan string { return s.notices }

// Done closes once the session has torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Join dials the transport, subscribes to the private queue and the room
// topic, and publishes the join command. State arrives only through the
// resulting JOINED_ROOM push. Valid once per session.
func (s *Session) Join(ctx context.Context) error {
	if !s.joined.CompareAndSwap(false, true) {
		return ErrAlreadyJoined
	}

	body, err := json.Marshal(event.JoinCommand{InviteCode: s.invite})
	if err != nil {
		close(s.done)
		return err
	}

	tr, err := s.dial(ctx)
	if err != nil {
		close(s.done)
		return fmt.Errorf("dial: %w", err)
	}
	private, err := tr.Subscribe(privateQueue)
	if err != nil {
		tr.Close()
		close(s.done)
		return err
	}
	topic, err := tr.Subscribe(roomTopic + s.invite)
	if err != nil {
		private.Unsubscribe()
		tr.Close()
		close(s.done)
		return err
	}

	if err := tr.Publish("/app/room/join", body); err != nil {
		private.Unsubscribe()
		topic.Unsubscribe()
		tr.Close()
		close(s.done)
		return err
	}

	s.tr, s.private, s.topic = tr, private, topic
	s.status = StatusConnected
	go s.pump("private", private)
	go s.pump("topic", topic)
	go s.loop()
	s.log.Info("join requested")
	return nil
}

// Start asks the server to start the game. No-op unless this session is
// the host and the room has enough players; the phase flips only on the
// authoritative GAME_START push.
func (s *Session) Start() { s.send(startReq{}) }

// SubmitAnswer submits the given option (zero-based) for the current
// question. No-op when no question is active.
func (s *Session) SubmitAnswer(option int) { s.send(answerReq{option: option}) }

// Leave tears the session down: both subscriptions are dropped and the
// in-memory state discarded before any queued event can merge.
func (s *Session) Leave() { s.send(leaveReq{}) }

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case s.inbox <- snapshotReq{reply: reply}:
	case <-s.done:
		return Snapshot{ID: s.id, Status: StatusDisconnected}
	}
	select {
	case snap := <-reply:
		return snap
	case <-s.done:
		return Snapshot{ID: s.id, Status: StatusDisconnected}
	}
}

func (s *Session) send(m msg) {
	select {
	case s.inbox <- m:
	case <-s.done:
	}
}

// pump decodes frames from one subscription and forwards them to the merge
// loop. Decode failures are dropped here, never raised into the transport.
func (s *Session) pump(channel string, sub transport.Subscription) {
	for fr := range sub.C() {
		if fr.Err != nil {
			select {
			case s.inbox <- transportDown{err: fr.Err}:
			case <-s.done:
			}
			return
		}
		ev, err := event.Decode(fr.Body)
		if err != nil {
			s.log.Warn("dropping frame", zap.String("channel", channel), zap.Error(err))
			continue
		}
		select {
		case s.inbox <- inboundEvent{channel: channel, ev: ev}:
		case <-s.done:
			return
		}
	}
}

// loop is the single thread of control. It exits on teardown; events still
// queued behind the teardown are dropped, not merged.
func (s *Session) loop() {
	defer close(s.done)
	for m := range s.inbox {
		switch m := m.(type) {
		case inboundEvent:
			if ev, ok := m.ev.(event.Message); ok {
				s.notify(ev.Message)
				s.log.Info("room broadcast, leaving", zap.String("message", ev.Message))
				s.teardown("room broadcast")
				return
			}
			s.handleEvent(m)
		case startReq:
			s.handleStart()
		case answerReq:
			s.handleAnswer(m.option)
		case snapshotReq:
			m.reply <- s.snapshot()
		case leaveReq:
			s.teardown("left room")
			return
		case transportDown:
			s.notify("connection lost: " + m.err.Error())
			s.teardown("transport failure")
			return
		}
	}
}

func (s *Session) handleEvent(m inboundEvent) {
	switch ev := m.ev.(type) {
	case event.JoinedRoom:
		ns, err := room.Apply(s.room, m.ev)
		if err != nil {
			s.log.Warn("room event dropped", zap.String("channel", m.channel), zap.Error(err))
			return
		}
		s.room = ns
		// Host tie-break: our own join response listing us as the lone,
		// host-flagged member means we created the room.
		if ns != nil && len(ns.Players) == 1 && ns.Players[0].IsHost {
			s.isHost = true
		}
		s.log.Info("room snapshot applied", zap.Bool("host", s.isHost))
		s.broadcast()
	case event.PlayerJoined, event.PlayerLeft:
		ns, err := room.Apply(s.room, m.ev)
		if err != nil {
			// Topic traffic can precede the private snapshot; drop it.
			s.log.Warn("room event dropped", zap.String("channel", m.channel), zap.Error(err))
			return
		}
		s.room = ns
		s.broadcast()
	case event.GameStart, event.Question, event.Leaderboard, event.GameEnd:
		s.game = game.Apply(s.game, m.ev)
		s.broadcast()
	case event.AnswerResult:
		s.game = game.Apply(s.game, m.ev)
		if ev.Message != "" {
			s.notify(ev.Message)
		}
		s.broadcast()
	case event.Unknown:
		s.log.Debug("ignoring unknown event type", zap.String("type", ev.Type))
	}
}

func (s *Session) handleStart() {
	if s.room == nil || !s.isHost || !s.room.CanStartGame {
		s.log.Warn("start rejected", zap.Bool("host", s.isHost))
		return
	}
	if err := s.tr.Publish("/app/room/"+s.room.RoomID+"/start", nil); err != nil {
		s.notify("start request failed: " + err.Error())
	}
}

func (s *Session) handleAnswer(option int) {
	q := s.game.Question
	if s.room == nil || q == nil || s.game.Phase() != game.PhaseInGame {
		s.log.Warn("answer with no active question, ignored")
		return
	}
	body, err := json.Marshal(event.AnswerCommand{QuestionIndex: q.Index, Index: option})
	if err != nil {
		s.log.Error("encode answer", zap.Error(err))
		return
	}
	if err := s.tr.Publish("/app/room/"+s.room.RoomID+"/answer", body); err != nil {
		s.notify("answer submit failed: " + err.Error())
	}
}

// teardown runs inside the loop, so no further event can merge after it.
func (s *Session) teardown(reason string) {
	if err := s.private.Unsubscribe(); err != nil {
		s.log.Debug("unsubscribe private", zap.Error(err))
	}
	if err := s.topic.Unsubscribe(); err != nil {
		s.log.Debug("unsubscribe topic", zap.Error(err))
	}
	if err := s.tr.Close(); err != nil {
		s.log.Debug("close transport", zap.Error(err))
	}
	s.room = nil
	s.game = game.State{}
	s.isHost = false
	s.status = StatusDisconnected
	s.broadcast()
	s.log.Info("session closed", zap.String("reason", reason))
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{ID: s.id, Status: s.status, IsHost: s.isHost, Game: s.game}
	if s.room != nil {
		r := *s.room
		snap.Room = &r
	}
	return snap
}

func (s *Session) broadcast() {
	select {
	case s.updates <- s.snapshot():
	default:
		// Slow consumer; it can always catch up via Snapshot().
	}
}

func (s *Session) notify(text string) {
	select {
	case s.notices <- text:
	default:
	}
}
