package inspector

import (
	"fmt"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/Nao-Mk2/access-log-bind-inspector/internal/entry"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/extract"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/model"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/report"
)

// Predicate narrows the set of reported bind events.
type Predicate interface {
	Match(ev model.BindEvent) (bool, error)
}

// Stats counts what a run has seen.
type Stats struct {
	Lines    int
	Entries  int
	Headers  int
	Reported int
}

// Inspector scans access log lines for bind operations and reports them.
type Inspector struct {
	out    io.Writer
	logger *zap.Logger
	where  Predicate
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger used for per-entry diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inspector) { in.logger = l }
}

// WithWhere restricts reported events to those matching p.
func WithWhere(p Predicate) Option {
	return func(in *Inspector) { in.where = p }
}

// New creates an Inspector that writes report lines to out.
func New(out io.Writer, opts ...Option) *Inspector {
	in := &Inspector{out: out, logger: zap.NewNop()}
	for _, o := range opts {
		o(in)
	}
	return in
}

// Run consumes lines until they are exhausted or a read error occurs.
// Lines reported before an error remain written to the output.
func (in *Inspector) Run(lines iter.Seq2[string, error]) (stats Stats, err error) {
	w := report.NewWriter(in.out)
	defer func() {
		stats.Reported = w.Count()
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("write report: %w", ferr)
		}
	}()

	counted := func(yield func(string, error) bool) {
		for line, err := range lines {
			if err == nil {
				stats.Lines++
			}
			if !yield(line, err) {
				return
			}
		}
	}

	for raw, rerr := range entry.Entries(counted) {
		if rerr != nil {
			return stats, fmt.Errorf("read line %d: %w", stats.Lines+1, rerr)
		}
		stats.Entries++
		ev, ok := extract.Extract(raw)
		if !ok {
			in.logger.Debug("Entry has no header, skipping", zap.Int("entry", stats.Entries))
			continue
		}
		stats.Headers++
		if !report.Reportable(ev) {
			continue
		}
		if in.where != nil {
			match, werr := in.where.Match(ev)
			if werr != nil {
				fields := []zap.Field{
					zap.Int("connection", ev.Connection),
					zap.Int("msg_id", ev.MessageID),
					zap.Error(werr),
				}
				if s, ok := in.where.(fmt.Stringer); ok {
					fields = append(fields, zap.Stringer("where", s))
				}
				in.logger.Warn("Where expression failed, skipping entry", fields...)
				continue
			}
			if !match {
				continue
			}
		}
		if werr := w.Write(ev); werr != nil {
			return stats, fmt.Errorf("write report: %w", werr)
		}
	}

	in.logger.Debug("Scan finished",
		zap.Int("lines", stats.Lines),
		zap.Int("entries", stats.Entries),
		zap.Int("headers", stats.Headers))
	return stats, nil
}
