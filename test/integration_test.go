package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"match-lab/auth"
	"match-lab/domain"
	"match-lab/domain/event"
	"match-lab/infrastructure/ws"
	"match-lab/observability"
	"match-lab/repositories"
	"match-lab/runtime"
	"match-lab/runtime/workers"
	"match-lab/services"
)

type stack struct {
	server *httptest.Server
	events chan event.Event
}

// newStack wires the full service against a throwaway store and returns
// the HTTP test server carrying the websocket endpoints.
func newStack(t *testing.T, withFanout bool) *stack {
	t.Helper()
	req := require.New(t)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	stats := observability.NewMatchStats()
	registry := runtime.NewRegistry()
	responses := runtime.NewResponseRegistry()
	events := make(chan event.Event, 64)

	presenceRepository := repositories.NewPresenceRepository(db)
	presenceService := services.NewPresenceService(presenceRepository, events, log)
	notifier := services.NewNotifier(registry, log)
	matchmaker := runtime.NewMatchmakerWorker(log, registry, responses, stats, 5*time.Second, 16)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = matchmaker.Run(ctx) }()
	if withFanout {
		fanout := workers.NewPresenceFanout(log, registry, events, stats)
		go func() { _ = fanout.Run(ctx) }()
	}

	handler := ws.NewHandler(log, registry, matchmaker, presenceService, notifier, stats, 16, time.Hour)
	server := httptest.NewServer(handler.Routes())

	t.Cleanup(func() {
		server.Close()
		cancel()
		_ = db.Close()
	})

	return &stack{server: server, events: events}
}

func (s *stack) dial(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + path
	if token != "" {
		separator := "?"
		if strings.Contains(path, "?") {
			separator = "&"
		}
		url += separator + "token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	return conn
}

func token(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.GenerateToken(username, time.Hour)
	require.NoError(t, err)
	return tok
}

func readJSON(t *testing.T, conn *websocket.Conn, out any) {
	t.Helper()
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func sendJSON(t *testing.T, conn *websocket.Conn, frame any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

func Test_MatchScenario(t *testing.T) {
	req := require.New(t)
	s := newStack(t, false)

	// Given two users waiting for an opponent
	alice := s.dial(t, "/ws/matchmaking", token(t, "alice"))
	bob := s.dial(t, "/ws/matchmaking", token(t, "bob"))

	// Then both are notified of the pairing
	var found domain.MatchFound
	readJSON(t, alice, &found)
	req.Equal("Match found", found.Message)
	req.Equal(domain.Identity("bob"), found.Player)

	readJSON(t, bob, &found)
	req.Equal(domain.Identity("alice"), found.Player)

	// When both accept
	sendJSON(t, alice, domain.Inbound{Type: domain.MessageAccept, Username: "alice"})
	sendJSON(t, bob, domain.Inbound{Type: domain.MessageAccept, Username: "bob"})

	// Then each side is told about the other's decision
	var relay domain.DecisionRelay
	readJSON(t, alice, &relay)
	req.Equal("bob accepted the match", relay.Message)

	readJSON(t, bob, &relay)
	req.Equal("alice accepted the match", relay.Message)
}

func Test_RejectionScenario(t *testing.T) {
	req := require.New(t)
	s := newStack(t, false)

	alice := s.dial(t, "/ws/matchmaking", token(t, "alice"))
	bob := s.dial(t, "/ws/matchmaking", token(t, "bob"))

	var found domain.MatchFound
	readJSON(t, alice, &found)
	readJSON(t, bob, &found)

	// When one side declines
	sendJSON(t, alice, domain.Inbound{Type: domain.MessageAccept, Username: "alice"})
	sendJSON(t, bob, domain.Inbound{Type: domain.MessageReject, Username: "bob"})

	var relay domain.DecisionRelay
	readJSON(t, alice, &relay)
	req.Equal("bob rejected the match", relay.Message)

	readJSON(t, bob, &relay)
	req.Equal("alice accepted the match", relay.Message)
}

func Test_MalformedFrameClosesConnection(t *testing.T) {
	req := require.New(t)
	s := newStack(t, false)

	alice := s.dial(t, "/ws/matchmaking", token(t, "alice"))
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("not json at all")))

	_, _, err := alice.ReadMessage()
	req.Error(err)
	req.True(websocket.IsCloseError(err, ws.CloseMalformedPayload),
		fmt.Sprintf("expected close code %d, got %v", ws.CloseMalformedPayload, err))
}

func Test_MissingFieldClosesConnection(t *testing.T) {
	req := require.New(t)
	s := newStack(t, false)

	alice := s.dial(t, "/ws/matchmaking", token(t, "alice"))

	// Valid JSON, but the username field is missing
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"accept"}`)))

	_, _, err := alice.ReadMessage()
	req.Error(err)
	req.True(websocket.IsCloseError(err, ws.CloseMissingField),
		fmt.Sprintf("expected close code %d, got %v", ws.CloseMissingField, err))
}

func Test_UnauthenticatedMatchmakingRefused(t *testing.T) {
	req := require.New(t)
	s := newStack(t, false)

	// Dialing without a token: the upgrade succeeds, then the server
	// refuses the connection with the dedicated close code.
	conn := s.dial(t, "/ws/matchmaking", "")

	_, _, err := conn.ReadMessage()
	req.Error(err)
	req.True(websocket.IsCloseError(err, ws.CloseUnauthenticated),
		fmt.Sprintf("expected close code %d, got %v", ws.CloseUnauthenticated, err))
}

func Test_UnknownMessageTypeClosesConnection(t *testing.T) {
	req := require.New(t)
	s := newStack(t, false)

	alice := s.dial(t, "/ws/matchmaking", token(t, "alice"))
	sendJSON(t, alice, domain.Inbound{Type: "teleport", Username: "alice"})

	_, _, err := alice.ReadMessage()
	req.Error(err)
	req.True(websocket.IsCloseError(err, websocket.CloseUnsupportedData),
		fmt.Sprintf("expected close code %d, got %v", websocket.CloseUnsupportedData, err))
}

func Test_PresenceBroadcastToAnonymousObserver(t *testing.T) {
	req := require.New(t)
	s := newStack(t, true)

	// Given an anonymous observer on the status endpoint
	observer := s.dial(t, "/ws/status", "")
	// Leave the handler time to join the presence group
	time.Sleep(100 * time.Millisecond)

	// When an authenticated user connects for matchmaking
	s.dial(t, "/ws/matchmaking", token(t, "alice"))

	// Then the observer sees the presence change
	var status domain.PresenceStatus
	readJSON(t, observer, &status)
	req.Equal(domain.Identity("alice"), status.Username)
	req.True(status.OnlineStatus)
}

func Test_ChatRelayAndNotificationCounter(t *testing.T) {
	req := require.New(t)
	s := newStack(t, false)

	// Given bob listening on his notification channel
	bobNotify := s.dial(t, "/ws/notification", token(t, "bob"))
	// Leave the handler time to join the notification group
	time.Sleep(100 * time.Millisecond)

	// And both peers in the same chat thread
	aliceChat := s.dial(t, "/ws/chat?peer=bob", token(t, "alice"))
	bobChat := s.dial(t, "/ws/chat?peer=alice", token(t, "bob"))
	// bob opening his thread resets his counter
	var notice domain.CounterNotice
	readJSON(t, bobNotify, &notice)
	req.Equal(0, notice.Count)

	// When alice posts a message
	sendJSON(t, aliceChat, domain.Inbound{
		Type: domain.MessageChat, Username: "alice", Message: "gg, rematch?",
	})

	// Then both thread members receive the relay
	var chat domain.ChatRelay
	readJSON(t, bobChat, &chat)
	req.Equal("gg, rematch?", chat.Message)
	req.Equal(domain.Identity("alice"), chat.Username)

	readJSON(t, aliceChat, &chat)
	req.Equal(domain.Identity("alice"), chat.Username)

	// And bob's unread counter ticked up
	readJSON(t, bobNotify, &notice)
	req.Equal(1, notice.Count)
}
