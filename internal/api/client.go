package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoToken means no bearer credential is configured. The request is
// refused locally; no network call is made.
var ErrNoToken = errors.New("no access token configured")

// Category selects which quiz pool the room draws from.
type Category string

const (
	CategoryAll           Category = "ALL"
	CategoryDataStructure Category = "DATA_STRUCTURE"
	CategoryOS            Category = "OS"
	CategoryNetwork       Category = "NETWORK"
)

type CreateRoomRequest struct {
	MaxPlayers int      `json:"maxPlayers"`
	Category   Category `json:"category"`
	QuizCount  int      `json:"quizCount"`
}

// validate mirrors the server's own bounds so an out-of-range request
// never leaves the client.
func (r CreateRoomRequest) validate() error {
	if r.MaxPlayers < 2 || r.MaxPlayers > 10 {
		return fmt.Errorf("maxPlayers must be between 2 and 10, got %d", r.MaxPlayers)
	}
	if r.QuizCount < 3 || r.QuizCount > 20 {
		return fmt.Errorf("quizCount must be between 3 and 20, got %d", r.QuizCount)
	}
	switch r.Category {
	case CategoryAll, CategoryDataStructure, CategoryOS, CategoryNetwork:
		return nil
	default:
		return fmt.Errorf("unknown category %q", r.Category)
	}
}

type CreateRoomResponse struct {
	InviteCode string   `json:"inviteCode"`
	RoomID     string   `json:"roomId"`
	MaxPlayers int      `json:"maxPlayers"`
	Category   Category `json:"category"`
	QuizCount  int      `json:"quizCount"`
	HostName   string   `json:"hostName"`
}

// RequestError carries the server's failure message for a non-2xx reply.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("room request failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("room request failed (%d)", e.Status)
}

// Client talks to the quiz server's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, token string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// envelope is the server's common response wrapper.
type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateRoom opens a new room and returns its invite code.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (CreateRoomResponse, error) {
	if c.token == "" {
		return CreateRoomResponse{}, ErrNoToken
	}
	if err := req.validate(); err != nil {
		return CreateRoomResponse{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("create room: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/multi-room", bytes.NewReader(body))
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("create room: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("create room: decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CreateRoomResponse{}, &RequestError{Status: resp.StatusCode, Message: env.Message}
	}

	var out CreateRoomResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("create room: decode payload: %w", err)
	}
	c.log.Info("room created",
		zap.String("inviteCode", out.InviteCode),
		zap.String("roomId", out.RoomID),
		zap.Int("maxPlayers", out.MaxPlayers))
	return out, nil
}
