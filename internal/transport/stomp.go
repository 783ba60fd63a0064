package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	"go.uber.org/zap"
)

// Options configure a STOMP-over-websocket connection to the quiz server.
type Options struct {
	URL    string // http(s) base, e.g. http://localhost:8080
	Token  string // bearer credential, passed as ?authorization=
	Logger *zap.Logger
}

type stompTransport struct {
	ws   *websocket.Conn
	conn *stomp.Conn
	log  *zap.Logger
}

// Dial opens the websocket at {URL}/chat?authorization={token} and runs a
// STOMP session over it.
func Dial(ctx context.Context, opts Options) (Transport, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	endpoint, err := wsEndpoint(opts.URL, opts.Token)
	if err != nil {
		return nil, err
	}

	ws, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	// The STOMP client wants a stream; NetConn bridges the message-based
	// websocket. Lifetime is the connection's, not the dial's.
	netConn := websocket.NetConn(context.Background(), ws, websocket.MessageText)
	conn, err := stomp.Connect(netConn,
		stomp.ConnOpt.HeartBeat(10*time.Second, 10*time.Second),
	)
	if err != nil {
		ws.Close(websocket.StatusProtocolError, "stomp connect failed")
		return nil, fmt.Errorf("stomp connect: %w", err)
	}

	opts.Logger.Info("connected", zap.String("endpoint", opts.URL))
	return &stompTransport{ws: ws, conn: conn, log: opts.Logger}, nil
}

func wsEndpoint(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/chat"
	q := u.Query()
	q.Set("authorization", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *stompTransport) Subscribe(destination string) (Subscription, error) {
	sub, err := t.conn.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	s := &stompSubscription{sub: sub, frames: make(chan Frame, 16)}
	go s.pump(t.log)
	return s, nil
}

func (t *stompTransport) Publish(destination string, body []byte) error {
	if err := t.conn.Send(destination, "application/json", body); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	return nil
}

func (t *stompTransport) Close() error {
	err := t.conn.Disconnect()
	t.ws.Close(websocket.StatusNormalClosure, "bye")
	return err
}

type stompSubscription struct {
	sub    *stomp.Subscription
	frames chan Frame
}

func (s *stompSubscription) C() <-chan Frame { return s.frames }

func (s *stompSubscription) Unsubscribe() error { return s.sub.Unsubscribe() }

// pump copies broker messages into the frame channel, preserving
// per-destination order. A broker-side error becomes a terminal frame.
func (s *stompSubscription) pump(log *zap.Logger) {
	defer close(s.frames)
	for msg := range s.sub.C {
		if msg == nil {
			return
		}
		if msg.Err != nil {
			log.Warn("subscription closed",
				zap.String("destination", s.sub.Destination()),
				zap.Error(msg.Err))
			s.frames <- Frame{Destination: s.sub.Destination(), Err: msg.Err}
			return
		}
		s.frames <- Frame{Destination: msg.Destination, Body: msg.Body}
	}
}
