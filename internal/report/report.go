// Package report filters bind events and renders them as summary lines.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Nao-Mk2/access-log-bind-inspector/internal/model"
)

// Reportable reports whether ev should produce an output line.
func Reportable(ev model.BindEvent) bool {
	return ev.IsBind()
}

// Format renders ev as a single summary line without a trailing newline.
func Format(ev model.BindEvent) string {
	return fmt.Sprintf("Timestamp: %s | Connection: %d | Operation: %d | Message ID: %d | BIND DN: %s | Source IP: %s",
		ev.Timestamp, ev.Connection, ev.Operation, ev.MessageID, ev.BindDN, ev.SourceIP)
}

// Writer writes summary lines to an underlying sink. Call Flush when done.
type Writer struct {
	w *bufio.Writer
	n int
}

// NewWriter wraps out in a buffered Writer.
func NewWriter(out io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(out)}
}

// Write renders ev followed by a newline.
func (w *Writer) Write(ev model.BindEvent) error {
	if _, err := fmt.Fprintln(w.w, Format(ev)); err != nil {
		return err
	}
	w.n++
	return nil
}

// Flush writes any buffered lines to the sink.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Count returns the number of lines written so far.
func (w *Writer) Count() int {
	return w.n
}
