package client

import (
	"context"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/Nao-Mk2/access-log-bind-inspector/internal/model"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/source"
)

// LogsAPI is the subset of the CloudWatch Logs API we use.
type LogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// AuthOptions selects the AWS region and shared config profile.
type AuthOptions struct {
	Region  string
	Profile string
}

// Query describes which events to read from a log group.
type Query struct {
	LogGroup   string
	LogStreams []string
	Start      time.Time
	End        time.Time
}

// CloudWatchClient reads access log lines stored in CloudWatch Logs.
type CloudWatchClient struct {
	client LogsAPI
}

// NewCloudWatchOptions builds config load options from opts. Empty fields are
// left to the SDK's default chain.
func NewCloudWatchOptions(opts AuthOptions) []func(*config.LoadOptions) error {
	var cfgOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	return cfgOpts
}

// NewCloudWatchClient loads AWS configuration and returns a client.
func NewCloudWatchClient(ctx context.Context, opts ...func(*config.LoadOptions) error) (*CloudWatchClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(cloudwatchlogs.NewFromConfig(cfg)), nil
}

// NewWithAPI wraps an existing LogsAPI implementation.
func NewWithAPI(api LogsAPI) *CloudWatchClient {
	return &CloudWatchClient{client: api}
}

// Records yields the events of q page by page. Pagination stops when the next
// token is missing or repeats. An API error is yielded once and ends the sequence.
func (c *CloudWatchClient) Records(ctx context.Context, q Query) iter.Seq2[model.LogRecord, error] {
	return func(yield func(model.LogRecord, error) bool) {
		var next *string
		for {
			in := &cloudwatchlogs.FilterLogEventsInput{
				LogGroupName: aws.String(q.LogGroup),
				StartTime:    aws.Int64(q.Start.UnixMilli()),
				EndTime:      aws.Int64(q.End.UnixMilli()),
				NextToken:    next,
				Interleaved:  aws.Bool(true),
			}
			if len(q.LogStreams) > 0 {
				in.LogStreamNames = q.LogStreams
			}
			out, err := c.client.FilterLogEvents(ctx, in)
			if err != nil {
				yield(model.LogRecord{}, err)
				return
			}
			for _, e := range out.Events {
				rec := model.LogRecord{
					Timestamp: time.Unix(0, aws.ToInt64(e.Timestamp)*int64(time.Millisecond)),
					LogGroup:  q.LogGroup,
					LogStream: aws.ToString(e.LogStreamName),
					Message:   aws.ToString(e.Message),
				}
				if !yield(rec, nil) {
					return
				}
			}
			if out.NextToken == nil || (next != nil && aws.ToString(out.NextToken) == aws.ToString(next)) {
				return
			}
			next = out.NextToken
		}
	}
}

// Lines yields the access log lines held in the events of q, in event order.
// Each event message is split on newlines.
func (c *CloudWatchClient) Lines(ctx context.Context, q Query) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for rec, err := range c.Records(ctx, q) {
			if err != nil {
				yield("", err)
				return
			}
			for line := range source.SplitLines(rec.Message) {
				if !yield(line, nil) {
					return
				}
			}
		}
	}
}
