package game

import (
	"maps"
	"slices"

	"github.com/hyeonq/quiz-room-client/internal/event"
)

// Phase is the derived lifecycle stage of the game within a room.
type Phase string

const (
	PhaseLobby  Phase = "LOBBY"
	PhaseInGame Phase = "IN_GAME"
	PhaseEnded  Phase = "ENDED"
)

// Question is ephemeral: one at a time, overwritten by each QUESTION push.
type Question struct {
	Index   int
	Text    string
	Options []string
}

type Info struct {
	TotalQuestions int
}

type Result struct {
	WinnerName string
	Scores     map[string]int
}

// AnswerMark is the correctness marker for the most recent submission in
// the room. Presentation only.
type AnswerMark struct {
	Correct       bool
	CorrectAnswer string
	PlayerName    string
	Notice        string
}

// Standings is the latest leaderboard push. Presentation only.
type Standings struct {
	Leader string
	Scores map[string]int
}

type State struct {
	Info        *Info
	Question    *Question
	Result      *Result
	LastAnswer  *AnswerMark
	Leaderboard *Standings
}

// Phase derives the lifecycle stage: a result means the round ended, game
// info without a result means a round is running, otherwise the lobby.
func (s State) Phase() Phase {
	switch {
	case s.Result != nil:
		return PhaseEnded
	case s.Info != nil:
		return PhaseInGame
	default:
		return PhaseLobby
	}
}

// Apply merges one game-lifecycle event. The input is never mutated.
func Apply(s State, ev event.Event) State {
	switch e := ev.(type) {
	case event.GameStart:
		// A fresh cycle: everything from the previous round is dropped,
		// including a lingering result from a round that already ended.
		return State{Info: &Info{TotalQuestions: e.TotalQuestions}}
	case event.Question:
		// Last write wins; the server is the single source of truth for
		// question identity, even if indexes arrive out of order.
		s.Question = &Question{Index: e.QuestionIndex, Text: e.Text, Options: slices.Clone(e.Options)}
		return s
	case event.AnswerResult:
		s.LastAnswer = &AnswerMark{
			Correct:       e.Correct,
			CorrectAnswer: e.CorrectAnswer,
			PlayerName:    e.UserName,
			Notice:        e.Message,
		}
		return s
	case event.Leaderboard:
		s.Leaderboard = &Standings{Leader: e.CurrentLeader, Scores: maps.Clone(e.Scores)}
		return s
	case event.GameEnd:
		s.Result = &Result{WinnerName: e.WinnerName, Scores: maps.Clone(e.Scores)}
		s.Question = nil
		s.Info = nil
		return s
	default:
		return s
	}
}
