package rtc

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mindfull/backend/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Channel is a bidirectional signaling transport. Delivery is best-effort
// over a live connection; nothing is retried or resumed after a drop.
type Channel interface {
	Send(msg *signaling.Message) error
	Incoming() <-chan *signaling.Message
	Close() error
}

// wsChannel carries signaling messages over a WebSocket connection
type wsChannel struct {
	conn     *websocket.Conn
	incoming chan *signaling.Message
	outgoing chan *signaling.Message
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// Dial connects to the signaling endpoint, authenticating with the given
// access token
func Dial(serverURL, token string) (Channel, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &wsChannel{
		conn:     conn,
		incoming: make(chan *signaling.Message, 16),
		outgoing: make(chan *signaling.Message, 16),
		done:     make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return c, nil
}

// readPump reads messages from the WebSocket connection
func (c *wsChannel) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings
func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush anything queued before Close, the leave-room notice
			// in particular, then say goodbye.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			for {
				select {
				case msg := <-c.outgoing:
					if err := c.conn.WriteJSON(msg); err != nil {
						return
					}
				default:
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}

// Send queues a message for delivery
func (c *wsChannel) Send(msg *signaling.Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("signaling channel closed")
	}
	c.mu.Unlock()

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return fmt.Errorf("signaling channel closed")
	}
}

// Incoming returns the channel of received messages; it is closed when the
// connection drops
func (c *wsChannel) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Close shuts the connection down
func (c *wsChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}
