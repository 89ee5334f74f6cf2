package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CloudWatchScheme prefixes inputs that name a CloudWatch log group.
const CloudWatchScheme = "cloudwatch://"

// Options holds CLI options after merging flags, environment and config file.
type Options struct {
	Input        string
	LogLevel     string
	Where        string
	Region       string
	Profile      string
	Streams      []string
	StartRFC3339 string
	EndRFC3339   string
}

// Input is a parsed positional argument.
type Input struct {
	// Path is set for local files.
	Path string
	// LogGroup is set for CloudWatch inputs.
	LogGroup string
}

// IsCloudWatch reports whether the input is a CloudWatch log group.
func (in Input) IsCloudWatch() bool { return in.LogGroup != "" }

// String returns a human readable name for diagnostics.
func (in Input) String() string {
	if in.IsCloudWatch() {
		return CloudWatchScheme + in.LogGroup
	}
	return in.Path
}

// CollectOptions reads every setting from v. input is the positional argument.
func CollectOptions(v *viper.Viper, input string) *Options {
	return &Options{
		Input:        input,
		LogLevel:     v.GetString("log-level"),
		Where:        v.GetString("where"),
		Region:       v.GetString("region"),
		Profile:      v.GetString("profile"),
		Streams:      ParseStreams(v.GetStringSlice("stream")),
		StartRFC3339: v.GetString("start"),
		EndRFC3339:   v.GetString("end"),
	}
}

// ParseStreams splits comma-separated stream names so the environment and
// config file accept the same "a,b" form as --stream. Empty names are dropped.
func ParseStreams(values []string) []string {
	var streams []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				streams = append(streams, s)
			}
		}
	}
	return streams
}

// Validate checks option values that can be verified without touching the input.
func (o *Options) Validate() error {
	if _, err := zap.ParseAtomicLevel(o.LogLevel); err != nil {
		return fmt.Errorf("%w: invalid --log-level %q", ErrUsage, o.LogLevel)
	}
	in, err := ParseInput(o.Input)
	if err != nil {
		return err
	}
	if !in.IsCloudWatch() && len(o.Streams) > 0 {
		return fmt.Errorf("%w: --stream requires a %s input", ErrUsage, CloudWatchScheme)
	}
	return nil
}

// ParseInput classifies the positional argument as a file path or a
// cloudwatch://<log-group> reference.
func ParseInput(arg string) (Input, error) {
	if arg == "" {
		return Input{}, ErrUsage
	}
	if group, ok := strings.CutPrefix(arg, CloudWatchScheme); ok {
		if group == "" {
			return Input{}, fmt.Errorf("%w: missing log group in %q", ErrUsage, arg)
		}
		return Input{LogGroup: group}, nil
	}
	return Input{Path: arg}, nil
}

// CheckRegularFile verifies that path exists and is a regular file.
func CheckRegularFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return &InputNotFoundError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return &InputNotFoundError{Path: path}
	}
	return nil
}

// ResolveProfile returns the profile from flag or AWS_PROFILE env, or empty.
func ResolveProfile(flagProfile string) string {
	if flagProfile != "" {
		return flagProfile
	}
	return os.Getenv("AWS_PROFILE")
}

// ResolveTimeWindow computes the [start,end] from optional RFC3339 strings.
// Rules:
// - both empty: last 24h ending at now
// - only start: end = now
// - only end: start = end - 24h
// - both set: validate start <= end
func ResolveTimeWindow(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	if startStr == "" && endStr == "" {
		return now.Add(-24 * time.Hour), now, nil
	}
	var start time.Time
	var end time.Time
	var err error
	if startStr != "" {
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if startStr != "" && endStr == "" {
		end = now
	} else if startStr == "" && endStr != "" {
		start = end.Add(-24 * time.Hour)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, ErrStartAfterEnd
	}
	return start, end, nil
}
