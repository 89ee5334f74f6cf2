// Package source yields access log lines from local readers.
package source

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"
)

const readBufferSize = 8192

// Lines returns the lines of r in order, without their terminators.
// "\n", "\r" and "\r\n" each end a line; a final line without a terminator is
// still yielded. A read error is yielded once and ends the sequence.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReaderSize(r, readBufferSize)
		var line strings.Builder
		emit := func() bool {
			s := line.String()
			line.Reset()
			return yield(s, nil)
		}
		for {
			c, err := br.ReadByte()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
					return
				}
				if line.Len() > 0 {
					emit()
				}
				return
			}
			switch c {
			case '\n':
				if !emit() {
					return
				}
			case '\r':
				next, perr := br.Peek(1)
				if perr == nil && next[0] == '\n' {
					_, _ = br.ReadByte()
				}
				if !emit() {
					return
				}
				if perr != nil && !errors.Is(perr, io.EOF) {
					yield("", perr)
					return
				}
			default:
				line.WriteByte(c)
			}
		}
	}
}

// SplitLines turns a block of text into a line sequence using the same line
// endings as Lines. Empty text is a single blank line.
func SplitLines(text string) iter.Seq2[string, error] {
	if text == "" {
		return func(yield func(string, error) bool) {
			yield("", nil)
		}
	}
	return Lines(strings.NewReader(text))
}
