package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sharedConfig "github.com/channelgate/channelgate/internal/shared/config"
)

// fakeAPI is an in-process Bot API. Responses are queued per method; once a
// queue is drained the last response repeats.
type fakeAPI struct {
	t      *testing.T
	mu     sync.Mutex
	queues map[string][]fakeReply
	calls  map[string][]map[string]any
	server *httptest.Server
}

type fakeReply struct {
	status int
	body   map[string]any
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:      t,
		queues: map[string][]fakeReply{},
		calls:  map[string][]map[string]any{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls[method] = append(f.calls[method], body)
	q := f.queues[method]
	reply := fakeReply{status: http.StatusOK, body: map[string]any{"ok": true, "result": true}}
	if len(q) > 0 {
		reply = q[0]
		if len(q) > 1 {
			f.queues[method] = q[1:]
		}
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_ = json.NewEncoder(w).Encode(reply.body)
}

func (f *fakeAPI) ok(method string, result any) {
	f.push(method, fakeReply{status: http.StatusOK, body: map[string]any{"ok": true, "result": result}})
}

func (f *fakeAPI) fail(method string, code int, description string) {
	f.push(method, fakeReply{status: code, body: map[string]any{
		"ok":          false,
		"error_code":  code,
		"description": description,
	}})
}

func (f *fakeAPI) push(method string, r fakeReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[method] = append(f.queues[method], r)
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[method])
}

func (f *fakeAPI) lastCall(method string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[method]
	if len(c) == 0 {
		f.t.Fatalf("no %s call recorded", method)
	}
	return c[len(c)-1]
}

func (f *fakeAPI) bot() *BotService {
	return NewBotService(sharedConfig.TelegramConfig{
		BotToken:   "test-token",
		APIBaseURL: f.server.URL,
	})
}

func fastGatewayConfig() sharedConfig.GatewayConfig {
	return sharedConfig.GatewayConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}
