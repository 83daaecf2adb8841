package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/rawconv/internal/decoder"
)

// Error is a failure reported by the server.
type Error struct {
	Kind string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Kind, e.Msg)
}

// Unwrap maps decode failures back to the decoder sentinels.
func (e *Error) Unwrap() error {
	return decoder.KindError(e.Kind)
}

// Result is an encoded image returned by the server.
type Result struct {
	Format string
	Width  int
	Height int
	Data   []byte
}

// Client is a WebSocket client for Server. Requests are serialised over a
// single connection, so one Client may be shared between goroutines.
type Client struct {
	conn   *websocket.Conn
	nextID atomic.Uint64

	reqMu   sync.Mutex // one request/response exchange at a time
	writeMu sync.Mutex // gorilla allows a single concurrent writer

	done      chan struct{}
	closeOnce sync.Once
}

// PingInterval is how often the connection is pinged. It is read by Dial.
var PingInterval = 25 * time.Second

const pingWait = 5 * time.Second

// Dial connects to a Server at url.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote dial: %w", err)
	}
	c := &Client{
		conn: conn,
		done: make(chan struct{}),
	}
	go c.pingLoop(PingInterval)
	return c, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Convert sends a raw container and returns it encoded in format.
func (c *Client) Convert(ctx context.Context, format string, data []byte) (*Result, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	// A cancelled request leaves the connection unusable.
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	id := c.nextID.Add(1)
	if err := c.writeRequest(Message{Type: TypeConvert, ID: id, Format: format}, data); err != nil {
		return nil, err
	}

	reply, err := c.readReply(id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if reply.Type == TypeError {
		return nil, &Error{Kind: reply.Kind, Msg: reply.Msg}
	}

	mt, payload, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("remote read image: %w", err)
	}
	if mt != websocket.BinaryMessage {
		return nil, errors.New("remote: expected binary image message")
	}
	return &Result{
		Format: reply.Format,
		Width:  reply.Width,
		Height: reply.Height,
		Data:   payload,
	}, nil
}

// Decode implements decoder.Decoder by converting to PNG on the server and
// decoding the PNG locally.
func (c *Client) Decode(r io.Reader) (*decoder.Image, error) {
	return c.DecodeContext(context.Background(), r)
}

// DecodeContext is Decode with a context that aborts the request.
func (c *Client) DecodeContext(ctx context.Context, r io.Reader) (*decoder.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	res, err := c.Convert(ctx, "png", data)
	if err != nil {
		return nil, err
	}
	return decoder.NewRasterDecoder().Decode(bytes.NewReader(res.Data))
}

// readReply skips pongs until the reply for id arrives.
func (c *Client) readReply(id uint64) (Message, error) {
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return msg, fmt.Errorf("remote read: %w", err)
		}
		switch msg.Type {
		case TypePong:
			continue
		case TypeResult, TypeError:
			if msg.ID != id {
				return msg, fmt.Errorf("remote: reply for request %d, want %d", msg.ID, id)
			}
			return msg, nil
		default:
			return msg, fmt.Errorf("remote: unexpected message %q", msg.Type)
		}
	}
}

// writeRequest sends the envelope and its container as one unit so no other
// frame lands between them.
func (c *Client) writeRequest(msg Message, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("remote write: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("remote write: %w", err)
	}
	return nil
}

// pingLoop sends control pings. The server's read loop answers them and the
// pongs are consumed by gorilla inside any read, so nothing queues up.
func (c *Client) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWait)); err != nil {
				return
			}
		}
	}
}
