// Package filepart reads and writes half-open byte windows [start, end) of
// files, and tracks which windows of a file have been received.
package filepart

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// ErrInvalidRange is wrapped by every window validation failure.
var ErrInvalidRange = errors.New("invalid range")

// File is the subset of *os.File a Reader needs.
type File interface {
	io.ReadSeekCloser
	Stat() (fs.FileInfo, error)
}

// Reader yields the bytes of a file window and reports io.EOF at the end of
// the window regardless of how much of the file follows. It owns the file and
// closes it on Close.
type Reader struct {
	f         File
	start     int64
	end       int64
	remaining int64
}

// NewReader validates [start, end) against the size of f, seeks to start and
// returns a Reader. On error f is left open; the caller still owns it.
func NewReader(f File, start, end int64) (*Reader, error) {
	if start < 0 {
		return nil, fmt.Errorf("%w: negative start %d", ErrInvalidRange, start)
	}
	if end < start {
		return nil, fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, end, start)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidRange, info.Name())
	}
	if size := info.Size(); end > size {
		return nil, fmt.Errorf("%w: end %d beyond file size %d", ErrInvalidRange, end, size)
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to %d: %w", start, err)
	}
	return &Reader{
		f:         f,
		start:     start,
		end:       end,
		remaining: end - start,
	}, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.f.Read(p)
	r.remaining -= int64(n)
	if err == io.EOF && r.remaining > 0 {
		// File shrank under us.
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// Len returns the size of the window.
func (r *Reader) Len() int64 { return r.end - r.start }

// Remaining returns how many window bytes have not been read yet.
func (r *Reader) Remaining() int64 { return r.remaining }

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }
