package inspector

import (
	"bytes"
	"errors"
	"iter"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Nao-Mk2/access-log-bind-inspector/internal/model"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/source"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/util"
)

const scenarioOne = "[2024-01-01T10:00:00] conn=5 op=0 msgId=1\n" +
	"BIND dn=\"cn=admin,dc=example,dc=com\"\n" +
	"connection 5 from 10.0.0.1\n" +
	"\n"

const scenarioOneLine = "Timestamp: 2024-01-01T10:00:00 | Connection: 5 | Operation: 0 | Message ID: 1 | BIND DN: cn=admin,dc=example,dc=com | Source IP: 10.0.0.1\n"

func run(t *testing.T, input string, opts ...Option) (string, Stats) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	stats, err := New(&out, opts...).Run(source.Lines(strings.NewReader(input)))
	require.NoError(t, err)
	return out.String(), stats
}

func TestRunScenarios(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bind entry is reported",
			input: scenarioOne,
			want:  scenarioOneLine,
		},
		{
			name:  "non-bind operation is filtered",
			input: strings.Replace(scenarioOne, "op=0", "op=1", 1),
			want:  "",
		},
		{
			name:  "missing details render empty",
			input: "[2024-01-01T10:00:00] conn=5 op=0 msgId=1\nRESULT err=0\n\n",
			want:  "Timestamp: 2024-01-01T10:00:00 | Connection: 5 | Operation: 0 | Message ID: 1 | BIND DN:  | Source IP: \n",
		},
		{
			name:  "garbage entry is ignored",
			input: "this is garbage\n\n",
			want:  "",
		},
		{
			name:  "unterminated final entry is reported",
			input: strings.TrimSuffix(scenarioOne, "\n\n"),
			want:  scenarioOneLine,
		},
		{
			name:  "negative message id passes through",
			input: "[t] conn=1 op=0 msgId=-1\n",
			want:  "Timestamp: t | Connection: 1 | Operation: 0 | Message ID: -1 | BIND DN:  | Source IP: \n",
		},
		{
			name:  "carriage-return line endings",
			input: "[t1] conn=1 op=0 msgId=1\rBIND dn=\"cn=a\"\r\r[t2] conn=2 op=0 msgId=2\rBIND dn=\"cn=b\"\r",
			want: "Timestamp: t1 | Connection: 1 | Operation: 0 | Message ID: 1 | BIND DN: cn=a | Source IP: \n" +
				"Timestamp: t2 | Connection: 2 | Operation: 0 | Message ID: 2 | BIND DN: cn=b | Source IP: \n",
		},
		{
			name:  "header amid unrelated text",
			input: "noise before\n[t] conn=8 op=0 msgId=9 extra\nnoise after\n",
			want:  "Timestamp: t | Connection: 8 | Operation: 0 | Message ID: 9 | BIND DN:  | Source IP: \n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := run(t, tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunTwoEntriesSeparatedByDoubleBlank(t *testing.T) {
	input := "[a] conn=1 op=0 msgId=1\n\n\n[b] conn=2 op=0 msgId=2\n"
	got, stats := run(t, input)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.Reported)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Timestamp: a | Connection: 1"))
	assert.True(t, strings.HasPrefix(lines[1], "Timestamp: b | Connection: 2"))
}

func TestRunStats(t *testing.T) {
	input := "\n" + scenarioOne +
		"[t] conn=5 op=1 msgId=2\n\n" +
		"garbage\n\n" +
		"[t] conn=6 op=0 msgId=3\n"
	_, stats := run(t, input)
	assert.Equal(t, Stats{Lines: 10, Entries: 4, Headers: 3, Reported: 2}, stats)
}

func TestRunPreservesInputOrder(t *testing.T) {
	var b strings.Builder
	for i := range 20 {
		b.WriteString("[t] conn=" + strconv.Itoa(i) + " op=0 msgId=0\n\n")
	}
	got, stats := run(t, b.String())
	require.Equal(t, 20, stats.Reported)
	for i, line := range strings.Split(strings.TrimSuffix(got, "\n"), "\n") {
		assert.Contains(t, line, "Connection: "+strconv.Itoa(i)+" |")
	}
}

func TestRunWhere(t *testing.T) {
	input := "[a] conn=1 op=0 msgId=1\nconnection from 10.0.0.1\n\n" +
		"[b] conn=2 op=0 msgId=2\nconnection from 10.0.0.2\n\n" +
		"[c] conn=3 op=1 msgId=3\nconnection from 10.0.0.2\n"
	where, err := util.CompileWhere("sourceIp == '10.0.0.2'")
	require.NoError(t, err)

	got, stats := run(t, input, WithWhere(where))
	assert.Equal(t, "Timestamp: b | Connection: 2 | Operation: 0 | Message ID: 2 | BIND DN:  | Source IP: 10.0.0.2\n", got)
	assert.Equal(t, 1, stats.Reported)
}

type failingPredicate struct{}

func (failingPredicate) Match(model.BindEvent) (bool, error) {
	return false, errors.New("bad expression")
}

func TestRunWhereErrorSkipsEntry(t *testing.T) {
	got, stats := run(t, scenarioOne, WithWhere(failingPredicate{}))
	assert.Empty(t, got)
	assert.Equal(t, 0, stats.Reported)
}

func (failingPredicate) String() string { return "sourceIp == bad" }

func TestRunWhereErrorIsLoggedWithExpression(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var out bytes.Buffer
	_, err := New(&out, WithLogger(zap.New(core)), WithWhere(failingPredicate{})).
		Run(source.Lines(strings.NewReader(scenarioOne)))
	require.NoError(t, err)

	entries := logs.FilterMessage("Where expression failed, skipping entry").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "sourceIp == bad", ctx["where"])
	assert.Equal(t, int64(5), ctx["connection"])
	assert.Equal(t, "bad expression", ctx["error"])
}

func TestRunReadErrorKeepsEarlierOutput(t *testing.T) {
	boom := errors.New("device error")
	lines := func(yield func(string, error) bool) {
		for line, err := range source.Lines(strings.NewReader(scenarioOne + "[t] conn=9 op=0 msgId=9\n")) {
			if !yield(line, err) {
				return
			}
		}
		yield("", boom)
	}

	var out bytes.Buffer
	stats, err := New(&out, WithLogger(zaptest.NewLogger(t))).Run(iter.Seq2[string, error](lines))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "read line 6")
	assert.Equal(t, scenarioOneLine, out.String())
	assert.Equal(t, 1, stats.Reported)
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestRunWriteError(t *testing.T) {
	_, err := New(errWriter{}).Run(source.Lines(strings.NewReader(scenarioOne)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write report")
}
