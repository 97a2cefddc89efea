package jetstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the consumer depends on.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Consumer owns a single Jetstream connection. Frames are decoded and handed to the Scheduler one at a time, in arrival
// order. A bad frame or a failed handler is logged and skipped; only transport failure or context cancellation ends
// the stream.
type Consumer struct {
	// Full websocket URL, including path and query parameters. See SubscribeURL.
	URL       string
	Scheduler Scheduler
	Logger    *slog.Logger
	UserAgent string

	// If nil, websocket.DefaultDialer is used.
	Dialer *websocket.Dialer

	// How often to send keepalive pings. Defaults to 30 seconds.
	PingInterval time.Duration

	state atomic.Int32
}

func (c *Consumer) State() State {
	return State(c.state.Load())
}

func (c *Consumer) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s && s != StateProcessing && prev != StateProcessing {
		c.logger().Debug("stream state change", "from", prev, "to", s)
	}
}

func (c *Consumer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Run dials the configured URL and consumes the stream until the connection closes or ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Scheduler == nil {
		return fmt.Errorf("nil scheduler")
	}
	c.setState(StateConnecting)

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ua := c.UserAgent
	if ua == "" {
		ua = fmt.Sprintf("imposterwatch/%s", versioninfo.Short())
	}
	c.logger().Info("subscribing to jetstream", "url", c.URL)
	con, _, err := dialer.DialContext(ctx, c.URL, http.Header{
		"User-Agent": []string{ua},
	})
	if err != nil {
		c.setState(StateClosed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Op: "dial", Err: err}
	}
	return c.HandleStream(ctx, con)
}

// HandleStream runs the receive loop over an already established connection. It returns nil when the remote end
// closes the connection normally, ctx.Err() after cancellation, and a *TransportError for any other read failure.
func (c *Consumer) HandleStream(ctx context.Context, con Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.setState(StateClosed)
	defer c.Scheduler.Shutdown()

	c.setState(StateConnected)
	logger := c.logger()
	remoteAddr := c.remoteAddr(con)

	interval := c.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				if err := con.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					logger.Warn("failed to ping", "err", err)
				}
			case <-ctx.Done():
				// unblocks ReadMessage in the loop below
				con.Close()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.setState(StateClosing)
			return ctx.Err()
		default:
		}

		mt, msg, err := con.ReadMessage()
		if err != nil {
			c.setState(StateClosing)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("jetstream connection closed by remote", "reason", err)
				return nil
			}
			return &TransportError{Op: "read", Err: err}
		}

		c.handleFrame(ctx, remoteAddr, mt, msg)
	}
}

func (c *Consumer) handleFrame(ctx context.Context, remoteAddr string, mt int, msg []byte) {
	c.setState(StateProcessing)
	defer c.setState(StateConnected)

	framesReceivedCounter.WithLabelValues(remoteAddr).Inc()
	bytesReceivedCounter.WithLabelValues(remoteAddr).Add(float64(len(msg)))
	logger := c.logger()

	var evt *Event
	var err error
	if mt != websocket.TextMessage {
		err = &DecodeError{Payload: msg, Err: fmt.Errorf("unexpected websocket message type %d", mt)}
	} else {
		evt, err = DecodeEvent(msg)
	}
	if err != nil {
		decodeErrorsCounter.WithLabelValues(remoteAddr).Inc()
		var de *DecodeError
		if errors.As(err, &de) {
			logger.Warn("dropping malformed event", "err", de.Err, "payload", de.Preview(512))
		} else {
			logger.Warn("dropping malformed event", "err", err)
		}
		return
	}

	lastEventTimeGauge.Set(float64(evt.TimeUS))
	actionable := evt.Actionable()
	if actionable {
		eventsCounter.WithLabelValues(evt.Kind, "true").Inc()
	} else {
		eventsCounter.WithLabelValues(evt.Kind, "false").Inc()
		return
	}

	if err := c.Scheduler.AddWork(ctx, evt.Did, evt); err != nil {
		handlerErrorsCounter.WithLabelValues(remoteAddr).Inc()
		logger.Error("failed to process event", "did", evt.Did, "time_us", evt.TimeUS, "err", err)
	}
}

func (c *Consumer) remoteAddr(con Conn) string {
	if wc, ok := con.(*websocket.Conn); ok {
		return wc.RemoteAddr().String()
	}
	return "unknown"
}
