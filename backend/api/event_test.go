package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tractionhq/traction/backend/api"
	"github.com/tractionhq/traction/backend/api/conv"
	storetest "github.com/tractionhq/traction/backend/store/test"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
)

type sseFrame struct {
	name string
	data string
}

// openStream connects to the event feed and pumps decoded frames onto a
// channel until the stream ends.
func openStream(t *testing.T, ctx context.Context, baseURL, query string) <-chan sseFrame {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/events"+query, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	t.Cleanup(func() { resp.Body.Close() })

	frames := make(chan sseFrame, 16)
	go func() {
		defer close(frames)
		reader := bufio.NewReader(resp.Body)
		var frame sseFrame
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				frame.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				frame.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && frame.data != "":
				frames <- frame
				frame = sseFrame{}
			}
		}
	}()
	return frames
}

func nextFrame(t *testing.T, frames <-chan sseFrame) sseFrame {
	t.Helper()
	select {
	case frame, ok := <-frames:
		require.True(t, ok, "stream closed before frame arrived")
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for stream frame")
		return sseFrame{}
	}
}

func TestEventStreamDeliversMatchingEvents(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := openStream(t, ctx, srv.URL, "?pattern=task.created")

	first, err := f.tracker.CreateTask(context.Background(), storetest.SessionID,
		task.DomainBusiness, "send the revised quote", tracker.CreateOptions{})
	require.NoError(t, err)

	// Transitions are filtered out by the pattern; only creations surface.
	_, err = f.tracker.ApplyEvent(context.Background(), storetest.SessionID, first.ID, task.EventSolutionGiven)
	require.NoError(t, err)

	second, err := f.tracker.CreateTask(context.Background(), storetest.SessionID,
		task.DomainFamily, "call the school", tracker.CreateOptions{})
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		frame := nextFrame(t, frames)
		require.Equal(t, "task.created", frame.name)

		var wire conv.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(frame.data), &wire))
		assert.Equal(t, "task.created", wire.Type)
		require.NotNil(t, wire.TaskID)
		seen[*wire.TaskID] = true
	}

	assert.True(t, seen[first.ID.String()])
	assert.True(t, seen[second.ID.String()])
}

func TestEventStreamCarriesTransitionPayload(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := openStream(t, ctx, srv.URL, "?pattern=task.transitioned")

	record, err := f.tracker.CreateTask(context.Background(), storetest.SessionID,
		task.DomainMichael, "reset the router password", tracker.CreateOptions{})
	require.NoError(t, err)
	_, err = f.tracker.ApplyEvent(context.Background(), storetest.SessionID, record.ID, task.EventSolutionGiven)
	require.NoError(t, err)

	frame := nextFrame(t, frames)
	require.Equal(t, "task.transitioned", frame.name)

	var wire struct {
		Type    string `json:"type"`
		Payload struct {
			Task          conv.Task `json:"task"`
			PreviousState string    `json:"previousState"`
			Trigger       string    `json:"trigger"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(frame.data), &wire))
	assert.Equal(t, "SOLUTION_PROVIDED", wire.Payload.Task.State)
	assert.Equal(t, "INITIATED", wire.Payload.PreviousState)
	assert.Equal(t, "solutionGiven", wire.Payload.Trigger)
}

func TestEventStreamSessionFilter(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := openStream(t, ctx, srv.URL, "?session="+storetest.SessionID.String())

	// Activity in an unrelated session must not leak into the stream.
	_, err := f.tracker.CreateTask(context.Background(), uuid.New(),
		task.DomainPersonal, "book the dentist", tracker.CreateOptions{})
	require.NoError(t, err)

	select {
	case frame := <-frames:
		t.Fatalf("unexpected frame for filtered session: %s", frame.name)
	case <-time.After(150 * time.Millisecond):
	}

	_, err = f.tracker.CreateTask(context.Background(), storetest.SessionID,
		task.DomainBusiness, "send the revised quote", tracker.CreateOptions{})
	require.NoError(t, err)

	frame := nextFrame(t, frames)
	var wire conv.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(frame.data), &wire))
	require.NotNil(t, wire.SessionID)
	assert.Equal(t, storetest.SessionID.String(), *wire.SessionID)
}

func TestEventStreamEndsOnClientDisconnect(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	frames := openStream(t, ctx, srv.URL, "")

	require.Eventually(t, func() bool {
		return f.router.SubscriptionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool {
		return f.router.SubscriptionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case _, ok := <-frames:
		assert.False(t, ok, "stream should close after disconnect")
	case <-time.After(2 * time.Second):
		t.Fatal("frame channel never closed")
	}
}
