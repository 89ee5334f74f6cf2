// Package entry groups access log lines into blank-line-delimited entries.
package entry

import (
	"iter"
	"strings"
)

// LineSeparator terminates every line appended to an entry.
const LineSeparator = "\n"

// Accumulator folds lines into entries. The zero value is ready to use.
type Accumulator struct {
	buf strings.Builder
}

// Add consumes one line. It returns a completed entry when line is blank and
// the buffer holds at least one line.
func (a *Accumulator) Add(line string) (string, bool) {
	if line != "" {
		a.buf.WriteString(line)
		a.buf.WriteString(LineSeparator)
		return "", false
	}
	return a.Flush()
}

// Flush returns the buffered entry, if any, and resets the buffer.
func (a *Accumulator) Flush() (string, bool) {
	if a.buf.Len() == 0 {
		return "", false
	}
	raw := a.buf.String()
	a.buf.Reset()
	return raw, true
}

// Entries adapts a line sequence into an entry sequence. A trailing entry not
// followed by a blank line is still produced. A line error is passed through
// and ends the sequence; the partially buffered entry is dropped.
func Entries(lines iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var acc Accumulator
		for line, err := range lines {
			if err != nil {
				yield("", err)
				return
			}
			if raw, ok := acc.Add(line); ok {
				if !yield(raw, nil) {
					return
				}
			}
		}
		if raw, ok := acc.Flush(); ok {
			yield(raw, nil)
		}
	}
}
