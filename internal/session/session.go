// Package session serves one data-plane connection: it reads request heads
// in a loop and routes each one to the copy or download handler.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/clipshare/internal/message"
	"go.klb.dev/clipshare/internal/route"
	"go.klb.dev/clipshare/internal/wire"
)

// DefaultIdleTimeout closes sessions that send no request for this long.
const DefaultIdleTimeout = 5 * time.Minute

// Handler serves the two content actions. *route.Handler implements it.
type Handler interface {
	Copy(c *wire.Conn) error
	Download(c *wire.Conn, head *message.RequestHead) error
}

// Options tunes a Session.
type Options struct {
	// IdleTimeout bounds the wait for the next request head. Zero means
	// DefaultIdleTimeout, negative disables the deadline.
	IdleTimeout time.Duration
	// Registry, when set, lists the session while it is being served.
	Registry *Registry
}

// Session is a single peer connection.
type Session struct {
	id          string
	conn        *wire.Conn
	h           Handler
	reg         *Registry
	idle        time.Duration
	connectedAt time.Time

	source   atomic.Value // string
	lastSeen atomic.Int64 // UnixNano
	requests atomic.Int64
}

// New creates a Session for conn.
func New(conn net.Conn, h Handler, opts Options) *Session {
	idle := opts.IdleTimeout
	switch {
	case idle == 0:
		idle = DefaultIdleTimeout
	case idle < 0:
		idle = 0
	}
	now := time.Now()
	s := &Session{
		id:          uuid.NewString(),
		conn:        wire.New(conn),
		h:           h,
		reg:         opts.Registry,
		idle:        idle,
		connectedAt: now,
	}
	s.source.Store("")
	s.lastSeen.Store(now.UnixNano())
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	return Info{
		ID:          s.id,
		Addr:        s.conn.RemoteAddr().String(),
		Source:      s.source.Load().(string),
		ConnectedAt: s.connectedAt,
		LastSeen:    time.Unix(0, s.lastSeen.Load()),
		Requests:    s.requests.Load(),
	}
}

// Serve handles requests until the peer disconnects, a handler reports a
// broken stream, the idle timeout expires, or ctx is cancelled. It always
// closes the connection before returning.
func (s *Session) Serve(ctx context.Context) {
	defer s.conn.Close()
	log := slog.With("session", s.id, "remote", s.conn.RemoteAddr().String())

	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	if s.reg != nil {
		s.reg.register(s)
		defer s.reg.unregister(s)
	}

	for {
		s.conn.SetReadDeadline(s.idle)
		head, err := s.conn.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				log.Debug("connection closed")
			} else {
				log.Info("connection closed", "err", err)
			}
			return
		}
		s.conn.SetReadDeadline(0)

		s.lastSeen.Store(time.Now().UnixNano())
		s.requests.Add(1)
		if head.Source != "" {
			s.source.Store(head.Source)
		}

		if err := s.dispatch(head); err != nil {
			log.Warn("stream broken, closing", "action", head.Action, "err", err)
			return
		}
	}
}

func (s *Session) dispatch(head *message.RequestHead) error {
	slog.Debug("request",
		"session", s.id,
		"action", head.Action,
		"source", head.Source,
		"path", head.Path,
	)

	if err := head.Validate(); err != nil {
		slog.Warn("bad request", "session", s.id, "err", err)
		return route.RespErrorMsg(s.conn, err.Error())
	}

	switch head.Action {
	case message.ActionCopy:
		return s.h.Copy(s.conn)
	case message.ActionDownload:
		return s.h.Download(s.conn, head)
	case message.ActionPing:
		return route.SendHead(s.conn, &message.ResponseHead{
			Code: message.StatusSuccess,
			Msg:  "pong",
		})
	}
	return nil
}
