package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode wraps any malformed inbound payload. Callers log and drop the
// frame; a bad frame must never take the session down.
var ErrDecode = errors.New("malformed event payload")

// Type is the discriminator the server puts in every pushed event.
type Type string

const (
	TypeJoinedRoom   Type = "JOINED_ROOM"
	TypePlayerJoined Type = "PLAYER_JOINED"
	TypePlayerLeft   Type = "PLAYER_LEFT"
	TypeMessage      Type = "MESSAGE"
	TypeGameStart    Type = "GAME_START"
	TypeQuestion     Type = "QUESTION"
	TypeAnswerResult Type = "ANSWER_RESULT"
	TypeLeaderboard  Type = "LEADERBOARD"
	TypeGameEnd      Type = "GAME_END"
)

// Event is the closed set of decoded server pushes.
type Event interface{ isEvent() }

// Player as it appears inside the JOINED_ROOM snapshot.
type Player struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	IsHost  bool   `json:"isHost"`
}

// RoomSnapshot is the full room view delivered once on the private queue.
type RoomSnapshot struct {
	RoomID             string   `json:"roomId"`
	InviteCode         string   `json:"inviteCode"`
	HostName           string   `json:"hostName"`
	MaxPlayers         int      `json:"maxPlayers"`
	CurrentPlayerCount int      `json:"currentPlayerCount"`
	CanStartGame       bool     `json:"canStartGame"`
	Players            []Player `json:"players"`
}

type JoinedRoom struct {
	Message string       `json:"message"`
	Room    RoomSnapshot `json:"data"`
}

type PlayerJoined struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type PlayerLeft struct {
	Email string `json:"email"`
}

// Message is a room-wide broadcast notice (room disbanded and the like).
// Receiving one forces a local teardown.
type Message struct {
	Message string `json:"message"`
}

type GameStart struct {
	TotalQuestions   int `json:"totalQuestions"`
	CountdownSeconds int `json:"countdownSeconds"`
}

type Question struct {
	QuestionIndex int      `json:"questionIndex"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
}

// AnswerResult is informational only; it never mutates room or game
// progress, it is surfaced as a correctness marker.
type AnswerResult struct {
	Correct           bool   `json:"correct"`
	CorrectAnswer     string `json:"correctAnswer"`
	UserSelectedIndex string `json:"userSelectedIndex"`
	UserEmail         string `json:"userEmail"`
	UserName          string `json:"userName"`
	Message           string `json:"message"`
}

type Leaderboard struct {
	CurrentLeader string         `json:"currentLeader"`
	Scores        map[string]int `json:"scores"`
}

type GameEnd struct {
	WinnerName string         `json:"winnerName"`
	Scores     map[string]int `json:"scores"`
	Message    string         `json:"message"`
}

// Unknown is produced for discriminators this client does not recognize,
// so newer servers can add event types without breaking older clients.
type Unknown struct {
	Type string
}

func (JoinedRoom) isEvent()   {}
func (PlayerJoined) isEvent() {}
func (PlayerLeft) isEvent()   {}
func (Message) isEvent()      {}
func (GameStart) isEvent()    {}
func (Question) isEvent()     {}
func (AnswerResult) isEvent() {}
func (Leaderboard) isEvent()  {}
func (GameEnd) isEvent()      {}
func (Unknown) isEvent()      {}

// Decode parses one inbound frame body into a typed event.
func Decode(body []byte) (Event, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch head.Type {
	case TypeJoinedRoom:
		var ev JoinedRoom
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypePlayerJoined:
		var ev PlayerJoined
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypePlayerLeft:
		var ev PlayerLeft
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeMessage:
		var ev Message
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeGameStart:
		var ev GameStart
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeQuestion:
		var ev Question
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeAnswerResult:
		var ev AnswerResult
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeLeaderboard:
		var ev Leaderboard
		if err := unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeGameEnd:
		// Older server builds send the winner under "winner".
		var aux struct {
			GameEnd
			Winner string `json:"winner"`
		}
		if err := unmarshal(body, &aux); err != nil {
			return nil, err
		}
		ev := aux.GameEnd
		if ev.WinnerName == "" {
			ev.WinnerName = aux.Winner
		}
		return ev, nil
	default:
		return Unknown{Type: string(head.Type)}, nil
	}
}

func unmarshal(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
