/**
 * @description
 * Reactive query streams for the client facade.
 * Named queries are served by the backend over SSE; this side turns the feed
 * into a channel of tagged snapshots (Loading, Data, Err) and keeps the
 * subscription alive across connection drops with capped backoff.
 *
 * @dependencies
 * - standard net/http, bufio
 */

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	initialReconnectBackoff = time.Second
	maxReconnectBackoff     = 30 * time.Second
)

// Snapshot is one tagged result of a reactive query
type Snapshot[T any] struct {
	// Loading is true only before the first server round trip resolves
	Loading bool
	Data    T
	Err     error
}

// watchQuery subscribes to a named query and emits a snapshot per server
// push. The subscription reconnects on failure until ctx is cancelled or the
// stop function is called.
func watchQuery[T any](ctx context.Context, c *Client, query string) (<-chan Snapshot[T], func()) {
	out := make(chan Snapshot[T], 16)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)

		emit(ctx, out, Snapshot[T]{Loading: true})

		backoff := initialReconnectBackoff
		for {
			if !c.hasSession() {
				// No session means no subject: the query resolves to an
				// empty result, not a failure, and no connection is made
				// until a session appears.
				emit(ctx, out, Snapshot[T]{})
				if !c.awaitSignIn(ctx) {
					return
				}
				backoff = initialReconnectBackoff
				continue
			}

			err := c.streamQuery(ctx, query, func(raw json.RawMessage) error {
				var data T
				if len(raw) > 0 && string(raw) != "null" {
					if err := json.Unmarshal(raw, &data); err != nil {
						return err
					}
				}
				emit(ctx, out, Snapshot[T]{Data: data})
				backoff = initialReconnectBackoff
				return nil
			})

			if ctx.Err() != nil {
				return
			}
			if !c.hasSession() {
				// The session ended while streaming; back to the empty state
				continue
			}
			if err != nil {
				emit(ctx, out, Snapshot[T]{Err: err})
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxReconnectBackoff {
				backoff *= 2
			}
		}
	}()

	return out, cancel
}

// awaitSignIn blocks until the auth state resolves to SignedIn. Returns
// false when ctx ends first.
func (c *Client) awaitSignIn(ctx context.Context) bool {
	states, unsubscribe := c.WatchAuth()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return false
		case state, ok := <-states:
			if !ok {
				return false
			}
			if state.SignedIn() {
				return true
			}
		}
	}
}

// streamQuery holds one SSE connection open, invoking onData per payload
func (c *Client) streamQuery(ctx context.Context, query string, onData func(json.RawMessage) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/subscribe?query="+query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: "subscription rejected"}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var envelope struct {
			Query string          `json:"query"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &envelope); err != nil {
			return fmt.Errorf("malformed snapshot: %w", err)
		}
		if envelope.Query != query {
			continue
		}
		if err := onData(envelope.Data); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func emit[T any](ctx context.Context, out chan<- Snapshot[T], snapshot Snapshot[T]) {
	select {
	case out <- snapshot:
	case <-ctx.Done():
	}
}
