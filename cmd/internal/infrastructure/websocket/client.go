package websocket

import (
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/gommon/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBufferSize    = 256
	inboundBufferSize = 16
)

// Client owns one gorilla connection. Frames read from the socket are
// queued on Inbound, which the owner drains in a single loop so that
// events of one connection are never handled concurrently.
type Client struct {
	Handle string

	conn      *gorilla.Conn
	send      chan []byte
	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(handle string, conn *gorilla.Conn) *Client {
	return &Client{
		Handle:  handle,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		inbound: make(chan []byte, inboundBufferSize),
		done:    make(chan struct{}),
	}
}

// Inbound is closed once the read side ends.
func (c *Client) Inbound() <-chan []byte {
	return c.inbound
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) ReadPump() {
	defer close(c.inbound)
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure, gorilla.CloseNoStatusReceived) {
				log.Debugf("connection %s closed unexpectedly: %v", c.Handle, err)
			}
			return
		}

		select {
		case c.inbound <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gorilla.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(gorilla.CloseMessage,
				gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// Enqueue never blocks, a client that cannot keep up is dropped.
func (c *Client) Enqueue(msg []byte) error {
	select {
	case <-c.done:
		return ErrConnectionGone
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrConnectionGone
	default:
		log.Warnf("dropping slow connection %s", c.Handle)
		c.Close()
		return ErrSlowConsumer
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
