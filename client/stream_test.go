package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// sseServer streams the given payload lines and then holds the connection
// open until the client goes away
func sseServer(t *testing.T, payloads ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/subscribe" {
			http.NotFound(w, r)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer does not support flushing")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, payload := range payloads {
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			time.Sleep(10 * time.Millisecond)
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func nextSnapshot[T any](t *testing.T, snapshots <-chan Snapshot[T]) Snapshot[T] {
	t.Helper()
	select {
	case snapshot, ok := <-snapshots:
		if !ok {
			t.Fatal("snapshot channel closed unexpectedly")
		}
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}

func TestWatchUsersEmitsLoadingThenData(t *testing.T) {
	srv := sseServer(t,
		`{"query":"users","data":[{"email":"ada@example.com"}]}`,
		`{"query":"users","data":[{"email":"ada@example.com"},{"email":"grace@example.com"}]}`,
	)
	c := New(Config{BaseURL: srv.URL, Token: "session-token"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, stop := c.WatchUsers(ctx)
	defer stop()

	if first := nextSnapshot(t, snapshots); !first.Loading {
		t.Fatalf("expected the first snapshot to be Loading, got %+v", first)
	}
	if second := nextSnapshot(t, snapshots); len(second.Data) != 1 {
		t.Fatalf("expected 1 user in the first data snapshot, got %d", len(second.Data))
	}
	if third := nextSnapshot(t, snapshots); len(third.Data) != 2 {
		t.Fatalf("expected 2 users after the pushed update, got %d", len(third.Data))
	}
}

func TestWatchQuerySkipsForeignQueries(t *testing.T) {
	srv := sseServer(t,
		`{"query":"profile","data":{"first_name":"Ada"}}`,
		`{"query":"users","data":[{"email":"ada@example.com"}]}`,
	)
	c := New(Config{BaseURL: srv.URL, Token: "session-token"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, stop := c.WatchUsers(ctx)
	defer stop()

	nextSnapshot(t, snapshots) // Loading
	if data := nextSnapshot(t, snapshots); len(data.Data) != 1 {
		t.Fatalf("expected only the users payload to surface, got %+v", data)
	}
}

func TestWatchQueryStopsOnCancel(t *testing.T) {
	srv := sseServer(t, `{"query":"users","data":[]}`)
	c := New(Config{BaseURL: srv.URL, Token: "session-token"})

	ctx, cancel := context.WithCancel(context.Background())
	snapshots, stop := c.WatchUsers(ctx)
	defer stop()

	nextSnapshot(t, snapshots) // Loading
	cancel()

	select {
	case _, ok := <-snapshots:
		if !ok {
			return // drained and closed
		}
		// one in-flight snapshot may still arrive; the channel must close next
		if _, ok := <-snapshots; ok {
			t.Fatal("expected the snapshot channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the channel to close")
	}
}

func TestWatchQuerySurfacesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, Token: "session-token"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, stop := c.WatchUsers(ctx)
	defer stop()

	nextSnapshot(t, snapshots) // Loading
	if snapshot := nextSnapshot(t, snapshots); snapshot.Err == nil {
		t.Fatalf("expected an error snapshot for a rejected subscription, got %+v", snapshot)
	}
}

// A watcher started while signed out resolves to an empty result without
// touching the backend: no session is "no subject", not a failure.
func TestWatchSignedOutResolvesEmpty(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, stop := c.WatchUsers(ctx)
	defer stop()

	if first := nextSnapshot(t, snapshots); !first.Loading {
		t.Fatalf("expected the first snapshot to be Loading, got %+v", first)
	}
	empty := nextSnapshot(t, snapshots)
	if empty.Err != nil {
		t.Fatalf("signed-out watcher surfaced an error: %v", empty.Err)
	}
	if empty.Loading || empty.Data != nil {
		t.Fatalf("expected an empty resolved snapshot, got %+v", empty)
	}

	// The watcher must sit idle, not retry against the backend
	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt64(&hits); got != 0 {
		t.Fatalf("signed-out watcher dialed the backend %d times", got)
	}
	select {
	case extra := <-snapshots:
		t.Fatalf("unexpected snapshot while signed out: %+v", extra)
	default:
	}
}

func TestWatchConnectsAfterSignIn(t *testing.T) {
	srv := sseServer(t, `{"query":"users","data":[{"email":"ada@example.com"}]}`)

	c := New(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, stop := c.WatchUsers(ctx)
	defer stop()

	nextSnapshot(t, snapshots) // Loading
	if empty := nextSnapshot(t, snapshots); empty.Err != nil || empty.Data != nil {
		t.Fatalf("expected an empty signed-out snapshot, got %+v", empty)
	}

	// The session arriving is what wakes the watcher up
	c.mu.Lock()
	c.token = "session-token"
	c.mu.Unlock()
	c.setAuthState(AuthState{Status: AuthSignedIn})

	if data := nextSnapshot(t, snapshots); len(data.Data) != 1 {
		t.Fatalf("expected the stream to connect after sign-in, got %+v", data)
	}
}
