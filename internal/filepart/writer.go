package filepart

import (
	"fmt"
	"io"
)

// Writer writes sequentially into the window [pos, end) of an io.WriterAt.
// Writes that would run past end fail without writing anything.
type Writer struct {
	w   io.WriterAt
	pos int64
	end int64
}

// NewWriter returns a Writer positioned at start.
func NewWriter(w io.WriterAt, start, end int64) *Writer {
	return &Writer{w: w, pos: start, end: end}
}

func (fw *Writer) Write(p []byte) (int, error) {
	if int64(len(p))+fw.pos > fw.end {
		return 0, fmt.Errorf("write overflow: len %d at pos %d, end %d", len(p), fw.pos, fw.end)
	}
	n, err := fw.w.WriteAt(p, fw.pos)
	fw.pos += int64(n)
	return n, err
}

// Pos returns the next write offset.
func (fw *Writer) Pos() int64 { return fw.pos }
