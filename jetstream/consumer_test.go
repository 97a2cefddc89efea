package jetstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcScheduler struct {
	do func(ctx context.Context, evt *Event) error
}

func (s *funcScheduler) AddWork(ctx context.Context, repo string, evt *Event) error {
	return s.do(ctx, evt)
}

func (s *funcScheduler) Shutdown() {}

type frame struct {
	mt   int
	data []byte
	err  error
}

// fakeConn hands out frames from a channel; closing the channel acts as a normal close from the remote end.
type fakeConn struct {
	frames    chan frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan frame),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case fr, ok := <-f.frames:
		if !ok {
			return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
		}
		return fr.mt, fr.data, fr.err
	case <-f.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) send(s string) {
	f.frames <- frame{mt: websocket.TextMessage, data: []byte(s)}
}

func profileEvent(did, displayName string) string {
	return fmt.Sprintf(`{"did": %q, "time_us": 1725911162329308, "kind": "commit", "commit": {"rev": "3l3qo2vutsw2b", "operation": "update", "collection": "app.bsky.actor.profile", "rkey": "self", "record": {"$type": "app.bsky.actor.profile", "displayName": %q}, "cid": "bafyreiaxzaxdx4moqijfu4uo4lwzlnfjbsmr3zkmrqj2gqdoyhtvxnkkbu"}}`, did, displayName)
}

func TestConsumerSurvivesMalformedFrames(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	var states []State
	c := &Consumer{}
	c.Scheduler = &funcScheduler{do: func(ctx context.Context, evt *Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, evt.Did)
		states = append(states, c.State())
		return nil
	}}

	con := newFakeConn()
	done := make(chan error, 1)
	go func() {
		done <- c.HandleStream(ctx, con)
	}()

	con.send("")
	con.send("{not json")
	con.frames <- frame{mt: websocket.BinaryMessage, data: []byte{0x00, 0x01}}
	con.send(`{"did": "did:plc:abc123", "time_us": 1, "kind": "commit"}`)
	assert.Eventually(func() bool { return c.State() == StateConnected }, time.Second, time.Millisecond)

	con.send(profileEvent("did:plc:aaa", "Someone"))
	con.send(`{"did": "did:plc:abc123", "time_us": 2, "kind": "identity"}`)
	con.send(profileEvent("did:plc:bbb", "Someone Else"))
	close(con.frames)

	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after remote close")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal([]string{"did:plc:aaa", "did:plc:bbb"}, seen)
	assert.Equal([]State{StateProcessing, StateProcessing}, states)
	assert.Equal(StateClosed, c.State())
}

func TestConsumerHandlerErrorsDoNotStopStream(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var mu sync.Mutex
	count := 0
	c := &Consumer{
		Scheduler: &funcScheduler{do: func(ctx context.Context, evt *Event) error {
			mu.Lock()
			defer mu.Unlock()
			count++
			return errors.New("moderation API unavailable")
		}},
	}

	con := newFakeConn()
	done := make(chan error, 1)
	go func() {
		done <- c.HandleStream(ctx, con)
	}()

	con.send(profileEvent("did:plc:aaa", "Elon Musk"))
	con.send(profileEvent("did:plc:bbb", "Elon Musk"))
	close(con.frames)

	assert.NoError(<-done)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(2, count)
}

func TestConsumerTransportError(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	c := &Consumer{
		Scheduler: &funcScheduler{do: func(ctx context.Context, evt *Event) error { return nil }},
	}
	con := newFakeConn()
	done := make(chan error, 1)
	go func() {
		done <- c.HandleStream(ctx, con)
	}()

	con.frames <- frame{err: io.ErrUnexpectedEOF}
	err := <-done
	var te *TransportError
	assert.True(errors.As(err, &te))
	assert.ErrorIs(err, io.ErrUnexpectedEOF)
	assert.Equal(StateClosed, c.State())
}

func TestConsumerCancel(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	c := &Consumer{
		Scheduler: &funcScheduler{do: func(ctx context.Context, evt *Event) error { return nil }},
	}
	con := newFakeConn()
	done := make(chan error, 1)
	go func() {
		done <- c.HandleStream(ctx, con)
	}()

	con.send(profileEvent("did:plc:aaa", "Someone"))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	assert.Equal(StateClosed, c.State())
}

func TestConsumerRunWebsocket(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	queries := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		con, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer con.Close()
		for _, msg := range []string{
			profileEvent("did:plc:aaa", "Elon Musk"),
			"garbage",
			profileEvent("did:plc:bbb", "Mark Cuban"),
		} {
			if err := con.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		con.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		// wait for the client to go away
		con.ReadMessage()
	}))
	defer srv.Close()

	u, err := SubscribeURL("ws://"+strings.TrimPrefix(srv.URL, "http://"), []string{ProfileCollection})
	require.NoError(err)

	var seen []string
	c := &Consumer{
		URL: u,
		Scheduler: &funcScheduler{do: func(ctx context.Context, evt *Event) error {
			seen = append(seen, evt.Commit.Record.DisplayName)
			return nil
		}},
	}
	assert.Equal(StateDisconnected, c.State())
	assert.NoError(c.Run(ctx))
	assert.Equal([]string{"Elon Musk", "Mark Cuban"}, seen)
	assert.Equal("wantedCollections=app.bsky.actor.profile", <-queries)
	assert.Equal(StateClosed, c.State())
}

func TestConsumerRunDialFailure(t *testing.T) {
	assert := assert.New(t)

	c := &Consumer{
		URL:       "ws://127.0.0.1:1/subscribe",
		Scheduler: &funcScheduler{do: func(ctx context.Context, evt *Event) error { return nil }},
	}
	err := c.Run(context.Background())
	var te *TransportError
	assert.True(errors.As(err, &te))
	assert.Equal("dial", te.Op)
	assert.Equal(StateClosed, c.State())
}
