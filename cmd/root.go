package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Nao-Mk2/access-log-bind-inspector/internal/client"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/inspector"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/source"
	"github.com/Nao-Mk2/access-log-bind-inspector/internal/util"
)

// Name is the command name shown in usage text.
const Name = "access-log-bind-inspector"

// EnvPrefix prefixes environment variables that mirror flags.
const EnvPrefix = "BINDLOG"

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// PrintUsage writes the short usage text shown on a wrong argument count.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Please provide the path to the access log file as the only argument.")
	fmt.Fprintf(w, "Usage: %s [flags] <path-to-access.log | %s<log-group>>\n", Name, CloudWatchScheme)
}

// Execute runs the command with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	v := viper.New()
	root := newRootCommand(v, stdout, stderr)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var notFound *InputNotFoundError
	var ioFailure *IOFailureError
	switch {
	case errors.Is(err, ErrUsage):
		if err == ErrUsage {
			PrintUsage(stderr)
		} else {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return ExitUsage
	case errors.As(err, &notFound):
		fmt.Fprintf(stderr, "error: %v\n", notFound)
		return ExitFailure
	case errors.As(err, &ioFailure):
		fmt.Fprintf(stderr, "error: %v\n", ioFailure)
		return ExitFailure
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitFailure
	}
}

func newRootCommand(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string
	var logger *zap.Logger

	cmd := &cobra.Command{
		Use:   Name + " <path-to-access.log | " + CloudWatchScheme + "log-group>",
		Short: "Report BIND operations found in a directory server access log",
		Long: `Reads a directory server access log made of blank-line separated entries
and prints one summary line per BIND operation (op=0) with its timestamp,
connection, message id, bind DN and client address.

The log is read from a local file, or from a CloudWatch Logs group when the
argument has the form cloudwatch://<log-group>.`,
		Example: `  # Scan a local access log
  ` + Name + ` /var/log/dirsrv/slapd-example/access

  # Only binds from one client
  ` + Name + ` --where "sourceIp == '10.0.0.1'" access.log

  # Read CloudWatch events since a point in time
  ` + Name + ` --start 2026-10-16T00:00:00Z cloudwatch:///ldap/access`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return ErrUsage
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v, cmd, cfgFile); err != nil {
				return err
			}
			l, err := newLogger(v.GetString("log-level"), stderr)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}
			logger = l
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = logger.Sync() }()
			opts := CollectOptions(v, args[0])
			if err := opts.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), opts, logger, stdout)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	f := cmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "config file (YAML, TOML or JSON)")
	f.String("log-level", "warn", "diagnostic log level: debug, info, warn, error")
	f.StringP("where", "w", "", "JMESPath filter over timestamp, connection, operation, messageId, bindDn, sourceIp")
	f.String("region", "", "AWS region for cloudwatch:// inputs (falls back to AWS defaults)")
	f.String("profile", "", "AWS shared config profile for cloudwatch:// inputs (or set AWS_PROFILE)")
	f.StringSlice("stream", nil, "comma-separated CloudWatch log stream names to read, also "+EnvPrefix+"_STREAM (default: all streams)")
	f.String("start", "", "start time RFC3339 for cloudwatch:// inputs (default: 24h before end)")
	f.String("end", "", "end time RFC3339 for cloudwatch:// inputs (default: now)")

	return cmd
}

func initConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func run(ctx context.Context, opts *Options, logger *zap.Logger, stdout io.Writer) error {
	in, err := ParseInput(opts.Input)
	if err != nil {
		return err
	}

	inspOpts := []inspector.Option{inspector.WithLogger(logger)}
	if opts.Where != "" {
		where, err := util.CompileWhere(opts.Where)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		inspOpts = append(inspOpts, inspector.WithWhere(where))
	}
	insp := inspector.New(stdout, inspOpts...)

	var stats inspector.Stats
	if in.IsCloudWatch() {
		stats, err = scanCloudWatch(ctx, in, opts, insp, logger)
	} else {
		stats, err = scanFile(in.Path, insp)
	}
	if err != nil {
		return err
	}

	logger.Info("Scan complete",
		zap.String("input", in.String()),
		zap.Int("lines", stats.Lines),
		zap.Int("entries", stats.Entries),
		zap.Int("headers", stats.Headers),
		zap.Int("reported", stats.Reported))
	return nil
}

// openFile opens a validated input path. Replaced in tests.
var openFile = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func scanFile(path string, insp *inspector.Inspector) (inspector.Stats, error) {
	if err := CheckRegularFile(path); err != nil {
		return inspector.Stats{}, err
	}
	f, err := openFile(path)
	if err != nil {
		return inspector.Stats{}, &IOFailureError{Input: path, Err: err}
	}
	defer f.Close()

	stats, err := insp.Run(source.Lines(f))
	if err != nil {
		return stats, &IOFailureError{Input: path, Err: err}
	}
	return stats, nil
}

func scanCloudWatch(ctx context.Context, in Input, opts *Options, insp *inspector.Inspector, logger *zap.Logger) (inspector.Stats, error) {
	start, end, err := ResolveTimeWindow(opts.StartRFC3339, opts.EndRFC3339, time.Now())
	if err != nil {
		return inspector.Stats{}, fmt.Errorf("%w: invalid time window: %v", ErrUsage, err)
	}

	cw, err := client.NewCloudWatchClient(ctx, client.NewCloudWatchOptions(client.AuthOptions{
		Region:  opts.Region,
		Profile: ResolveProfile(opts.Profile),
	})...)
	if err != nil {
		return inspector.Stats{}, fmt.Errorf("failed to create CloudWatch client: %w", err)
	}

	logger.Debug("Reading CloudWatch Logs",
		zap.String("log_group", in.LogGroup),
		zap.Strings("log_streams", opts.Streams),
		zap.Time("start", start),
		zap.Time("end", end))

	stats, err := insp.Run(cw.Lines(ctx, client.Query{
		LogGroup:   in.LogGroup,
		LogStreams: opts.Streams,
		Start:      start,
		End:        end,
	}))
	if err != nil {
		return stats, &IOFailureError{Input: in.String(), Err: err}
	}
	return stats, nil
}
