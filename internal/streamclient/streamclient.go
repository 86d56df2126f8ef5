// Package streamclient is the resilient WebSocket client for the
// upstream flashblocks feed: it owns the reconnect-with-backoff loop
// so the pipeline orchestrator only ever sees a stream of frames.
package streamclient

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// State is the connection state machine.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Backoff
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Backoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// FrameHandler processes one inbound frame. A non-nil error tears
// down the connection, triggering a reconnect.
type FrameHandler func(data []byte) error

// StateObserver is notified on every state transition, for logging and
// metrics; it may be nil.
type StateObserver func(State)

// ErrorObserver is notified with the transport error behind every
// dropped or failed connection attempt, before the client backs off.
// It may be nil.
type ErrorObserver func(error)

// Client manages a single upstream WebSocket connection with
// exponential backoff reconnects: 2s initial, doubling, capped at
// 30s, reset to 2s on every successful connect.
type Client struct {
	URL     string
	OnFrame FrameHandler
	OnState StateObserver
	OnError ErrorObserver
	Dialer  *websocket.Dialer

	// InitialBackoff/MaxBackoff default to 2s/30s; tests override them
	// to keep the reconnect loop fast without changing its shape.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

const (
	defaultInitialBackoff = 2 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// New builds a Client for url. handler is invoked for every decoded
// inbound message (text or binary frames); control frames are
// swallowed internally.
func New(url string, handler FrameHandler) *Client {
	return &Client{
		URL:            url,
		OnFrame:        handler,
		Dialer:         websocket.DefaultDialer,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// newReconnectBackoff builds the configured doubling schedule this
// client reconnects on. It never gives up (MaxElapsedTime 0); callers
// stop it by canceling ctx instead.
func (c *Client) newReconnectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0 // exact doubling, not jittered
	b.MaxInterval = c.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run connects and streams frames until ctx is canceled, reconnecting
// on every transport failure with exponential backoff. It only
// returns when ctx is done.
func (c *Client) Run(ctx context.Context) error {
	b := c.newReconnectBackoff()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setState(Connecting)
		connectedAtAll, err := c.runOnce(ctx)
		if err != nil && ctx.Err() == nil && c.OnError != nil {
			c.OnError(err)
		}
		if ctx.Err() != nil {
			c.setState(Disconnected)
			return ctx.Err()
		}
		if connectedAtAll {
			b.Reset() // successful session: next failure starts back at the initial delay
		}

		c.setState(Backoff)
		select {
		case <-time.After(b.NextBackOff()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runOnce dials once and streams until the connection drops. The
// returned bool reports whether the dial itself succeeded (as opposed
// to failing before ever reaching Connected), which is what resets
// the backoff schedule in Run.
func (c *Client) runOnce(ctx context.Context) (bool, error) {
	conn, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dialing upstream %s: %w", c.URL, err)
	}
	defer conn.Close()

	c.setState(Connected)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("reading upstream frame: %w", err)
		}
		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if c.OnFrame != nil {
				if err := c.OnFrame(data); err != nil {
					return true, fmt.Errorf("handling frame: %w", err)
				}
			}
		default:
			continue // ping/pong/close frames are handled by gorilla internally
		}
	}
}

func (c *Client) setState(s State) {
	if c.OnState != nil {
		c.OnState(s)
	}
}
