// Package ws carries the websocket transport: connection upgrade,
// per-connection pumps, and the frame routing of each endpoint.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"match-lab/domain"
	"match-lab/errors"
)

// Client is one live connection's outbound half. Frames are queued on a
// buffered channel and written by a dedicated pump, so a slow peer can
// never block the goroutine that produced the frame.
type Client struct {
	conn     *websocket.Conn
	identity domain.Identity
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	log      *slog.Logger
}

func newClient(conn *websocket.Conn, identity domain.Identity, bufferSize int, log *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, bufferSize),
		done:     make(chan struct{}),
		log:      log,
	}
}

// Deliver implements contract.ConnectionSink. It never blocks: a closed
// connection or a saturated buffer turns the send into a drop, which is
// all the best-effort delivery contract promises.
func (c *Client) Deliver(payload []byte) error {
	select {
	case <-c.done:
		return errors.ErrNoConnection
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return errors.ErrSendBufferFull
	}
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("Write error", "identity", c.identity, "error", err)
				c.shutdown()
				return
			}
		}
	}
}

// closeWith sends a close frame carrying a specific code before tearing
// the connection down, so the remote end can differentiate the failure.
func (c *Client) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.shutdown()
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
