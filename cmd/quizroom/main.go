package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyeonq/quiz-room-client/internal/api"
	"github.com/hyeonq/quiz-room-client/internal/config"
	"github.com/hyeonq/quiz-room-client/internal/game"
	"github.com/hyeonq/quiz-room-client/internal/session"
	"github.com/hyeonq/quiz-room-client/internal/transport"
)

// rejoinDelay matches the server tester's fixed reconnect backoff. A
// session is stale after any teardown, so a rejoin always re-subscribes
// and re-requests a fresh snapshot.
const rejoinDelay = 5 * time.Second

func main() {
	create := flag.Bool("create", false, "create a new room before joining")
	invite := flag.String("invite", "", "invite code of the room to join")
	players := flag.Int("players", 4, "max players (with -create)")
	category := flag.String("category", "ALL", "quiz category (with -create)")
	count := flag.Int("count", 5, "quiz count (with -create)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	if *create {
		client := api.NewClient(cfg.ServerURL, cfg.Token, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := client.CreateRoom(ctx, api.CreateRoomRequest{
			MaxPlayers: *players,
			Category:   api.Category(*category),
			QuizCount:  *count,
		})
		cancel()
		if err != nil {
			logger.Fatal("create room", zap.Error(err))
		}
		fmt.Println("invite code:", created.InviteCode)
		*invite = created.InviteCode
	}
	if *invite == "" {
		fmt.Fprintln(os.Stderr, "need -invite or -create")
		os.Exit(2)
	}

	run(cfg, *invite, logger)
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

func run(cfg config.Config, invite string, logger *zap.Logger) {
	commands := readCommands()
	hist := newHistory(200)

	dial := func(ctx context.Context) (transport.Transport, error) {
		return transport.Dial(ctx, transport.Options{URL: cfg.ServerURL, Token: cfg.Token, Logger: logger})
	}

	for {
		s := session.New(invite, dial, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := s.Join(ctx)
		cancel()
		if err != nil {
			fmt.Println("join failed:", err)
			return
		}
		fmt.Println("joined room", invite, "- commands: start | answer N | state | log | quit")

		if interact(s, commands, hist) {
			return
		}
		fmt.Printf("session ended, rejoining in %s...\n", rejoinDelay)
		time.Sleep(rejoinDelay)
	}
}

// interact runs one session to completion. Returns true on an explicit quit.
func interact(s *session.Session, commands <-chan string, hist *history) bool {
	for {
		select {
		case <-s.Done():
			return false

		case n := <-s.Notices():
			hist.add(n)
			fmt.Println("!", n)

		case snap := <-s.Updates():
			printSnapshot(snap)

		case line, ok := <-commands:
			if !ok { // stdin closed
				s.Leave()
				<-s.Done()
				return true
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "start":
				s.Start()
			case "answer":
				if len(fields) != 2 {
					fmt.Println("usage: answer N")
					continue
				}
				n, err := strconv.Atoi(fields[1])
				if err != nil || n < 1 {
					fmt.Println("usage: answer N (options are numbered from 1)")
					continue
				}
				s.SubmitAnswer(n - 1)
			case "state":
				printSnapshot(s.Snapshot())
			case "log":
				hist.dump()
			case "quit":
				s.Leave()
				<-s.Done()
				return true
			default:
				fmt.Println("unknown command:", fields[0])
			}
		}
	}
}

func printSnapshot(snap session.Snapshot) {
	if snap.Status == session.StatusDisconnected {
		fmt.Println("-- disconnected --")
		return
	}
	if r := snap.Room; r != nil {
		fmt.Printf("room %s  %d/%d players  host: %s\n", r.InviteCode, r.CurrentPlayerCount, r.MaxPlayers, r.HostName)
		for _, p := range r.Players {
			mark := " "
			if p.IsHost {
				mark = "*"
			}
			fmt.Printf("  %s %s <%s>\n", mark, p.Name, p.Email)
		}
		if snap.IsHost && !r.CanStartGame {
			fmt.Println("  (need at least 2 players to start)")
		}
	}

	switch snap.Game.Phase() {
	case game.PhaseInGame:
		if q := snap.Game.Question; q != nil {
			total := 0
			if snap.Game.Info != nil {
				total = snap.Game.Info.TotalQuestions
			}
			fmt.Printf("Q%d/%d: %s\n", q.Index+1, total, q.Text)
			for i, opt := range q.Options {
				fmt.Printf("  %d. %s\n", i+1, opt)
			}
		} else {
			fmt.Println("waiting for the next question...")
		}
		if lb := snap.Game.Leaderboard; lb != nil && lb.Leader != "" {
			fmt.Println("current leader:", lb.Leader)
		}
	case game.PhaseEnded:
		fmt.Println("game over! winner:", snap.Game.Result.WinnerName)
	}
}

func readCommands() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}
