package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"

	"github.com/petrijr/timeflow"
	"github.com/petrijr/timeflow/internal/config"
	"github.com/petrijr/timeflow/pkg/logx"
)

// EnvLogLevel overrides the log level of every script.
const EnvLogLevel = "TIMEFLOW_LOG_LEVEL"

type runOptions struct {
	history  string
	watch    bool
	logLevel string
	envFile  string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run a timeline script until it finishes",
		Long: `Run builds the timeline described by SCRIPT and runs it on an event loop.
Say lines are printed to stdout, logs go to stderr.

With --watch the timeline is cancelled and rebuilt whenever SCRIPT changes,
and the command keeps running until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScript(ctx, args[0], opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.history, "history", "", "record timeline history in this SQLite database")
	f.BoolVar(&opts.watch, "watch", false, "rebuild the timeline when the script changes")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	f.StringVar(&opts.envFile, "env-file", ".env", "environment file loaded before the script")
	return cmd
}

// session runs scripts on one runner, recording history when configured.
type session struct {
	runner *timeflow.LocalRunner
	bundle *timeflow.HistoryBundle
	log    logx.Logger
	out    io.Writer
}

func runScript(ctx context.Context, path string, opts runOptions, out io.Writer) error {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", opts.envFile, err)
	}

	script, err := config.Load(path)
	if err != nil {
		return err
	}

	logCfg := script.Log.Logx()
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		logCfg.Level = lvl
	}
	if opts.logLevel != "" {
		logCfg.Level = opts.logLevel
	}
	svc, log := logx.New(logCfg)
	defer svc.Close()

	s := &session{log: log.With(logx.String("script", path)), out: out}
	if opts.history != "" {
		db, err := sql.Open("sqlite", opts.history)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		db.SetMaxOpenConns(1)
		defer db.Close()

		s.bundle, err = timeflow.NewSQLiteBundle(db, timeflow.WithRunnerLogger(log))
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		s.runner = s.bundle.Runner
	} else {
		s.runner = timeflow.NewLocalRunner(timeflow.WithRunnerLogger(log))
	}

	if err := s.runner.Start(ctx); err != nil {
		return err
	}
	defer s.runner.Stop()

	if opts.watch {
		return s.watch(ctx, path, script)
	}

	var (
		tl       *timeflow.Timeline
		startErr error
	)
	if err := s.runner.Do(ctx, func() { tl, startErr = s.start(script) }); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}

	err = s.runner.Wait(ctx, tl)
	if s.bundle != nil {
		s.log.Info("history recorded", logx.String("db", opts.history), logx.String("timeline_id", tl.ID()))
	}
	if errors.Is(err, context.Canceled) {
		s.log.Info("interrupted")
		return nil
	}
	return err
}

// start builds and starts script on the loop. It must run on the loop.
func (s *session) start(script *config.Script) (*timeflow.Timeline, error) {
	opts := []timeflow.Option{
		timeflow.WithName(script.Name),
		timeflow.WithObserver(timeflow.NewLoggingObserver(s.log)),
	}

	var tl *timeflow.Timeline
	if s.bundle != nil {
		tl = s.bundle.NewTimeline(opts...)
	} else {
		tl = s.runner.NewTimeline(opts...)
	}

	err := config.Build(script, tl, config.WithSay(func(msg string) {
		fmt.Fprintln(s.out, strings.TrimRight(msg, "\n"))
	}))
	if err != nil {
		return nil, err
	}
	tl.OnError(func(err error) {
		s.log.Error("timeline failed", logx.String("timeline_id", tl.ID()), logx.Err(err))
	})

	if err := tl.Start(); err != nil {
		return nil, err
	}
	return tl, nil
}
