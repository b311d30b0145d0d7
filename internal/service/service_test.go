package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/mamachef/internal/auth"
	"github.com/mmynk/mamachef/internal/gateway"
	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/middleware"
	"github.com/mmynk/mamachef/internal/models"
	"github.com/mmynk/mamachef/internal/nutrition"
	"github.com/mmynk/mamachef/internal/session"
	"github.com/mmynk/mamachef/internal/storage/sqlite"
)

type fakeReply struct {
	text string
	err  error
}

// fakeGenerator returns queued replies in order and records every request.
type fakeGenerator struct {
	mu       sync.Mutex
	replies  []fakeReply
	requests []gateway.Request
}

func (f *fakeGenerator) queue(text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{text: text, err: err})
}

func (f *fakeGenerator) Generate(ctx context.Context, req gateway.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.text, r.err
}

func (f *fakeGenerator) calls() []gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Request(nil), f.requests...)
}

type mediaCall struct {
	kind string
	req  gateway.MediaRequest
}

// fakeStudio returns queued media results in order for both actions.
type fakeStudio struct {
	mu      sync.Mutex
	results []fakeMedia
	seen    []mediaCall
}

type fakeMedia struct {
	media *models.InlineData
	err   error
}

func (f *fakeStudio) queue(media *models.InlineData, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, fakeMedia{media: media, err: err})
}

func (f *fakeStudio) next(kind string, req gateway.MediaRequest) (*models.InlineData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, mediaCall{kind: kind, req: req})
	if len(f.results) == 0 {
		return nil, errors.New("no media queued")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.media, r.err
}

func (f *fakeStudio) EditImage(ctx context.Context, req gateway.MediaRequest) (*models.InlineData, error) {
	return f.next("edit", req)
}

func (f *fakeStudio) AnimatePhoto(ctx context.Context, req gateway.MediaRequest) (*models.InlineData, error) {
	return f.next("animate", req)
}

func (f *fakeStudio) calls() []mediaCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mediaCall(nil), f.seen...)
}

type testEnv struct {
	chat     *ChatServiceClient
	tracker  *TrackerServiceClient
	gen      *fakeGenerator
	studio   *fakeStudio
	sessions *session.Manager
	jwt      *auth.JWTManager
}

// setupTestServer serves both services over httptest with a temp SQLite store.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "mamachef-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("failed to create store: %v", err)
	}

	gen := &fakeGenerator{}
	studio := &fakeStudio{}
	sessions := session.NewManager()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	opts := DefaultOptions()
	opts.MaxTries = 3
	opts.RetryInterval = time.Millisecond
	opts.Timeout = 5 * time.Second

	interceptors := connect.WithInterceptors(
		middleware.RequireSession(jwtManager, ChatServiceStartSessionProcedure),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(NewChatServiceHandler(NewChatService(sessions, jwtManager, gen, studio, opts), interceptors))
	mux.Handle(NewTrackerServiceHandler(NewTrackerService(sessions, nutrition.NewTracker(store, 500), gen, opts), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.RemoveAll(tempDir)
	})

	return &testEnv{
		chat:     NewChatServiceClient(http.DefaultClient, server.URL),
		tracker:  NewTrackerServiceClient(http.DefaultClient, server.URL),
		gen:      gen,
		studio:   studio,
		sessions: sessions,
		jwt:      jwtManager,
	}
}

// startSession opens a session and returns its id and token.
func (e *testEnv) startSession(t *testing.T) (string, string) {
	t.Helper()
	resp, err := e.chat.StartSession(context.Background(), connect.NewRequest(&StartSessionRequest{}))
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	return resp.Msg.SessionID, resp.Msg.Token
}

func authed[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (err: %v)", got, want, err)
	}
}

func testImage() string {
	return inline.Encode(&models.InlineData{MIMEType: "image/png", Data: []byte("fake-png-bytes")})
}
