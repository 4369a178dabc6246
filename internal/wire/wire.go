// Package wire frames clipshare heads and bodies over a net.Conn.
//
// Wire format:
//
//	<json head>\n<DataLen raw body bytes>
//
// Heads are read through a buffered reader, so any body bytes that arrive in
// the same segment as the head are already buffered. Callers must read bodies
// through Body, never from the underlying connection directly.
//
// Transport encryption is the listener's job (TLS); this package only frames.
package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"time"

	"go.klb.dev/clipshare/internal/message"
)

const (
	// MaxHeadSize is the largest head line we will read (16 MiB).
	MaxHeadSize = 16 * 1024 * 1024

	writeDeadline = 5 * time.Second
)

// ErrHeadTooLarge is returned when a head line exceeds MaxHeadSize.
var ErrHeadTooLarge = fmt.Errorf("head exceeds %d bytes", MaxHeadSize)

// Conn wraps a net.Conn with buffered newline-delimited head framing.
type Conn struct {
	conn net.Conn
	br   *bufio.Reader
}

// New wraps conn.
func New(conn net.Conn) *Conn {
	return &Conn{
		conn: conn,
		br:   bufio.NewReaderSize(conn, 64*1024),
	}
}

// Underlying returns the underlying net.Conn.
func (c *Conn) Underlying() net.Conn { return c.conn }

// SetReadDeadline sets or clears the read deadline.
func (c *Conn) SetReadDeadline(d time.Duration) {
	if d == 0 {
		_ = c.conn.SetReadDeadline(time.Time{})
	} else {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	}
}

// SetWriteDeadline sets or clears the write deadline.
func (c *Conn) SetWriteDeadline(d time.Duration) {
	if d == 0 {
		_ = c.conn.SetWriteDeadline(time.Time{})
	} else {
		_ = c.conn.SetWriteDeadline(time.Now().Add(d))
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

type encoder interface {
	Encode() ([]byte, error)
}

// WriteRequest writes a request head.
func (c *Conn) WriteRequest(h *message.RequestHead) error {
	return c.writeHead(h, nil)
}

// WriteResponse writes a response head with no body.
func (c *Conn) WriteResponse(h *message.ResponseHead) error {
	return c.writeHead(h, nil)
}

// WriteResponseWithBody writes a response head immediately followed by body
// in a single write. h.DataLen is set to len(body).
func (c *Conn) WriteResponseWithBody(h *message.ResponseHead, body []byte) error {
	h.DataLen = int64(len(body))
	return c.writeHead(h, body)
}

func (c *Conn) writeHead(h encoder, body []byte) error {
	raw, err := h.Encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if bytes.IndexByte(raw, '\n') >= 0 {
		return fmt.Errorf("encode: head contains newline")
	}

	line := make([]byte, 0, len(raw)+1+len(body))
	line = append(line, raw...)
	line = append(line, '\n')
	line = append(line, body...)

	if len(body) == 0 {
		c.SetWriteDeadline(writeDeadline)
		defer c.SetWriteDeadline(0)
	}
	_, err = c.conn.Write(line)
	return err
}

// ReadRequest reads one request head.
func (c *Conn) ReadRequest() (*message.RequestHead, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	return message.DecodeRequest(line)
}

// ReadResponse reads one response head. The body, if any, is left unread.
func (c *Conn) ReadResponse() (*message.ResponseHead, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	return message.DecodeResponse(line)
}

func (c *Conn) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := c.br.ReadSlice('\n')
		if len(line)+len(chunk) > MaxHeadSize {
			return nil, ErrHeadTooLarge
		}
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return nil, err
	}
	// Strip trailing newline
	return line[:len(line)-1], nil
}

// Body returns a reader limited to the next n bytes of the stream.
func (c *Conn) Body(n int64) io.Reader {
	return io.LimitReader(c.br, n)
}

// ReadBody reads exactly n body bytes into memory.
func (c *Conn) ReadBody(n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative body length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.br, buf); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return buf, nil
}

// Writer returns the raw stream for body bytes that follow an already
// written head.
func (c *Conn) Writer() io.Writer { return c.conn }
