// Package client is the requesting side of the clipshare data plane.
//
// Every call opens its own connection, sends one request and reads one
// response, so calls are independent and safe to run concurrently.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.klb.dev/clipshare/internal/message"
	"go.klb.dev/clipshare/internal/wire"
)

// DialFunc opens a connection to the server.
type DialFunc func(ctx context.Context) (net.Conn, error)

// Client talks to one clipshare server.
type Client struct {
	dial   DialFunc
	source string
}

// New returns a Client that dials addr over TLS with cfg. source identifies
// this device in the server's logs.
func New(addr string, cfg *tls.Config, source string) *Client {
	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second},
		Config:    cfg,
	}
	return NewWithDialer(func(ctx context.Context) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}, source)
}

// NewWithDialer returns a Client that opens connections with dial.
func NewWithDialer(dial DialFunc, source string) *Client {
	return &Client{dial: dial, source: source}
}

// CopyResult is what the server had to copy.
type CopyResult struct {
	Kind  message.DataType
	Files []message.PathInfo // DataFiles
	Text  string             // DataText
	Name  string             // DataClipImage
	Data  []byte             // DataClipImage
}

// Copy asks the server for its current clipboard content.
func (c *Client) Copy(ctx context.Context) (*CopyResult, error) {
	conn, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	head, err := c.request(conn, &message.RequestHead{Action: message.ActionCopy})
	if err != nil {
		return nil, err
	}

	res := &CopyResult{Kind: head.DataType}
	switch head.DataType {
	case message.DataFiles:
		res.Files = head.Paths
	case message.DataText:
		body, err := conn.ReadBody(head.DataLen)
		if err != nil {
			return nil, err
		}
		res.Text = string(body)
	case message.DataClipImage:
		body, err := conn.ReadBody(head.DataLen)
		if err != nil {
			return nil, err
		}
		res.Name = head.Name
		res.Data = body
	default:
		return nil, fmt.Errorf("copy: unexpected data type %q", head.DataType)
	}
	return res, nil
}

// Download streams [start, end) of path into w and returns the number of
// bytes written. A body shorter than announced yields io.ErrUnexpectedEOF.
func (c *Client) Download(ctx context.Context, path string, start, end int64, w io.Writer) (int64, error) {
	conn, err := c.open(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	head, err := c.request(conn, &message.RequestHead{
		Action: message.ActionDownload,
		Path:   path,
		Start:  start,
		End:    end,
	})
	if err != nil {
		return 0, err
	}
	if head.DataType != message.DataBinary {
		return 0, fmt.Errorf("download: unexpected data type %q", head.DataType)
	}
	if head.DataLen != end-start {
		return 0, fmt.Errorf("download: server announced %d bytes, asked for %d", head.DataLen, end-start)
	}

	n, err := io.Copy(w, conn.Body(head.DataLen))
	if err != nil {
		return n, c.ctxErr(ctx, fmt.Errorf("download %s: %w", path, err))
	}
	if n != head.DataLen {
		return n, c.ctxErr(ctx, fmt.Errorf("download %s: got %d of %d bytes: %w", path, n, head.DataLen, io.ErrUnexpectedEOF))
	}
	return n, nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	begin := time.Now()
	conn, err := c.open(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if _, err := c.request(conn, &message.RequestHead{Action: message.ActionPing}); err != nil {
		return 0, err
	}
	return time.Since(begin), nil
}

// reqConn is a wire.Conn that is closed early when its context ends.
type reqConn struct {
	*wire.Conn
	stop func() bool
}

func (c *reqConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

func (c *Client) open(ctx context.Context) (*reqConn, error) {
	nc, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = nc.Close() })
	return &reqConn{Conn: wire.New(nc), stop: stop}, nil
}

// request sends req and returns the response head, converting error
// responses into *message.RemoteError.
func (c *Client) request(conn *reqConn, req *message.RequestHead) (*message.ResponseHead, error) {
	req.Source = c.source
	if err := conn.WriteRequest(req); err != nil {
		return nil, fmt.Errorf("%s: send: %w", req.Action, err)
	}
	head, err := conn.ReadResponse()
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", req.Action, err)
	}
	if err := head.Err(); err != nil {
		return nil, err
	}
	return head, nil
}

// ctxErr prefers the context's error when the connection was closed
// because the context ended.
func (c *Client) ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	return err
}
