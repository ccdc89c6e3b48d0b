// Package integration provides end-to-end tests for the rinnsal service.
//
// Tests run against a real HTTP server started in-process with
// net/http/httptest, serving the push channel, the one-shot stream, the
// cancel endpoint and the history endpoints from one mux.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/session"
	"github.com/rhuss/rinnsal/pkg/storage/memory"
	"github.com/rhuss/rinnsal/pkg/textsource"
	"github.com/rhuss/rinnsal/pkg/transport"
	transporthttp "github.com/rhuss/rinnsal/pkg/transport/http"
	"github.com/rhuss/rinnsal/pkg/transport/ws"
)

// pacing matches the default demonstration delay.
const pacing = 200 * time.Millisecond

// testEnv holds the shared server for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the rinnsal server and its collaborators.
type TestEnvironment struct {
	Server  *httptest.Server
	Manager *session.Manager
	Store   *memory.Store
}

// TestMain starts the server before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment wires a five-character fixed source with the default
// pacing delay behind every transport, matching the production layout.
func setupTestEnvironment() *TestEnvironment {
	store := memory.New(100)
	src := &textsource.Fixed{Content: "hello", Delay: pacing, Tokenize: textsource.Characters}

	manager := session.NewManager(src, session.Config{SendDone: true}, session.WithStore(store))
	handler := transport.DefaultChain(transport.Logging(nil))(transport.NewSessionHandler(manager))

	adapter := transporthttp.NewAdapter(manager, handler, store, transporthttp.DefaultConfig())
	adapter.Mount("GET /v1/ws", ws.NewHandler(handler, ws.Config{}, nil))
	adapter.Mount("GET /metrics", promhttp.Handler())

	return &TestEnvironment{
		Server:  httptest.NewServer(adapter.Handler()),
		Manager: manager,
		Store:   store,
	}
}

// Teardown stops the server.
func (env *TestEnvironment) Teardown() {
	if env.Server != nil {
		env.Server.Close()
	}
}

// BaseURL returns the server base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Server.URL
}

// WSURL returns the push channel URL.
func (env *TestEnvironment) WSURL() string {
	return "ws" + strings.TrimPrefix(env.Server.URL, "http") + "/v1/ws"
}

// --- HTTP helpers ---

func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func deleteURL(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", url, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// waitFor polls cond; the terminal message reaches the client before the
// session's registry entry and history record are cleaned up.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// --- push channel helpers ---

// timedMessage is a pushed message with its arrival time.
type timedMessage struct {
	api.ServerMessage
	At time.Time
}

func dialWS(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, testEnv.WSURL(), nil)
	if err != nil {
		t.Fatalf("dialing push channel: %v", err)
	}
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func sendWS(t *testing.T, c *websocket.Conn, msg api.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c, msg); err != nil {
		t.Fatalf("sending %s: %v", msg.Type, err)
	}
}

func recvWS(t *testing.T, c *websocket.Conn, timeout time.Duration) (timedMessage, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var msg api.ServerMessage
	if err := wsjson.Read(ctx, c, &msg); err != nil {
		return timedMessage{}, false
	}
	return timedMessage{ServerMessage: msg, At: time.Now()}, true
}

// collectUntil reads messages until every id in ids saw a terminal message.
func collectUntil(t *testing.T, c *websocket.Conn, ids ...string) map[string][]timedMessage {
	t.Helper()
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	got := make(map[string][]timedMessage)
	for len(pending) > 0 {
		msg, ok := recvWS(t, c, 5*time.Second)
		if !ok {
			t.Fatalf("timed out; received so far: %+v", got)
		}
		got[msg.RequestID] = append(got[msg.RequestID], msg)
		if msg.IsTerminal() {
			delete(pending, msg.RequestID)
		}
	}
	return got
}

func chunkTexts(msgs []timedMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Type == api.MessageChunk {
			b.WriteString(m.Text)
		}
	}
	return b.String()
}

func countType(msgs []timedMessage, typ api.MessageType) int {
	n := 0
	for _, m := range msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}
