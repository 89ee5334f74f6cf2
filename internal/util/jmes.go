package util

import (
	"fmt"
	"reflect"

	"github.com/jmespath/go-jmespath"

	"github.com/Nao-Mk2/access-log-bind-inspector/internal/model"
)

// Where is a compiled JMESPath predicate over bind events.
type Where struct {
	expr string
	jp   *jmespath.JMESPath
}

// CompileWhere compiles expr. Fields available to the expression are
// timestamp, connection, operation, messageId, bindDn and sourceIp.
func CompileWhere(expr string) (*Where, error) {
	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid --where expression %q: %w", expr, err)
	}
	return &Where{expr: expr, jp: jp}, nil
}

// String returns the source expression.
func (w *Where) String() string { return w.expr }

// Match evaluates the expression against ev and applies JMESPath truthiness:
// null, false and empty strings, arrays and objects are false.
func (w *Where) Match(ev model.BindEvent) (bool, error) {
	res, err := w.jp.Search(EventDocument(ev))
	if err != nil {
		return false, fmt.Errorf("jmespath search failed: %w", err)
	}
	if b, ok := res.(bool); ok {
		return b, nil
	}
	return !isEmpty(res), nil
}

// EventDocument is the JSON-like view of ev that --where expressions see.
// Numbers are float64 so they compare equal to JMESPath literals.
func EventDocument(ev model.BindEvent) map[string]any {
	return map[string]any{
		"timestamp":  ev.Timestamp,
		"connection": float64(ev.Connection),
		"operation":  float64(ev.Operation),
		"messageId":  float64(ev.MessageID),
		"bindDn":     ev.BindDN,
		"sourceIp":   ev.SourceIP,
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
