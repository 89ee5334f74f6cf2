package model

import "time"

// LogRecord is a single CloudWatch Logs event carrying one or more access log lines.
type LogRecord struct {
	Timestamp time.Time
	LogGroup  string
	LogStream string
	Message   string
}
