// Package extract pulls bind fields out of a single access log entry.
package extract

import (
	"regexp"
	"strconv"

	"github.com/Nao-Mk2/access-log-bind-inspector/internal/model"
)

var (
	headerRe   = regexp.MustCompile(`\[(.*?)\] conn=(\d+) op=(-?\d+) msgId=(-?\d+)`)
	bindDNRe   = regexp.MustCompile(`BIND dn="(.*?)"`)
	sourceIPRe = regexp.MustCompile(`(?s)connection.*?from (\d+\.\d+\.\d+\.\d+)`)
)

// Extract parses the header and bind details of raw. It returns false when raw
// has no header, in which case the entry must be ignored.
func Extract(raw string) (model.BindEvent, bool) {
	h, ok := ParseHeader(raw)
	if !ok {
		return model.BindEvent{}, false
	}
	return model.BindEvent{Header: h, BindDetails: ParseBindDetails(raw)}, true
}

// ParseHeader finds the first "[ts] conn=N op=N msgId=N" sequence in raw.
// Numbers that do not fit in an int are treated as no match.
func ParseHeader(raw string) (model.Header, bool) {
	m := headerRe.FindStringSubmatch(raw)
	if m == nil {
		return model.Header{}, false
	}
	conn, err := strconv.Atoi(m[2])
	if err != nil {
		return model.Header{}, false
	}
	op, err := strconv.Atoi(m[3])
	if err != nil {
		return model.Header{}, false
	}
	msgID, err := strconv.Atoi(m[4])
	if err != nil {
		return model.Header{}, false
	}
	return model.Header{
		Timestamp:  m[1],
		Connection: conn,
		Operation:  op,
		MessageID:  msgID,
	}, true
}

// ParseBindDetails extracts the bind DN and client address. Either may be empty.
func ParseBindDetails(raw string) model.BindDetails {
	return model.BindDetails{
		BindDN:   firstGroup(bindDNRe, raw),
		SourceIP: firstGroup(sourceIPRe, raw),
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
