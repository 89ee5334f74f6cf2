package model

// BindOperation is the operation code the access log uses for BIND requests.
const BindOperation = 0

// Header holds the fixed fields every processable entry carries.
type Header struct {
	Timestamp  string
	Connection int
	Operation  int
	MessageID  int
}

// BindDetails holds the optional fields of a bind entry. Missing fields are empty.
type BindDetails struct {
	BindDN   string
	SourceIP string
}

// BindEvent is everything extracted from one access log entry.
type BindEvent struct {
	Header
	BindDetails
}

// IsBind reports whether the entry records a bind operation.
func (h Header) IsBind() bool {
	return h.Operation == BindOperation
}
