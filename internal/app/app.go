package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/five82/logview/internal/config"
	"github.com/five82/logview/internal/logging"
	"github.com/five82/logview/internal/logsource"
	"github.com/five82/logview/internal/logtail"
	"github.com/five82/logview/internal/prefs"
	"github.com/five82/logview/internal/server"
	"github.com/five82/logview/internal/snapshot"
	"github.com/five82/logview/internal/state"
	"github.com/five82/logview/internal/stream"
	"github.com/five82/logview/internal/ui"
	"github.com/five82/logview/internal/watch"
)

// ViewerOptions configure the log viewer.
type ViewerOptions struct {
	ConfigPath string
	PrefsPath  string    // empty uses default ~/.config/logview/prefs.toml
	ServerURL  string    // overrides server_url from the config
	Plain      bool      // write lines to Stdout instead of running the TUI
	Stdout     io.Writer // plain mode output; nil uses os.Stdout
	Stderr     io.Writer // plain mode diagnostics; nil uses os.Stderr
}

// ServerOptions configure the log server. File and Dir override the config
// together: setting either one replaces both.
type ServerOptions struct {
	ConfigPath string
	File       string
	Dir        string
	Listen     string
	Logger     *zap.Logger // nil logs to stdout
}

// ErrFileAndDir is returned when both a file and a directory are given.
var ErrFileAndDir = errors.New("file and dir are mutually exclusive")

// RunViewer boots the viewer until the context is cancelled or the user quits.
func RunViewer(ctx context.Context, opts ViewerOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	serverURL := cfg.ServerURL
	if v := strings.TrimSpace(opts.ServerURL); v != "" {
		serverURL = v
	}

	policy := stream.Policy{
		Floor:       cfg.Reconnect.BaseDelay,
		Ceiling:     cfg.Reconnect.MaxDelay,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
	}
	userPrefs, prefsErr := prefs.Load(opts.PrefsPath)

	if opts.Plain {
		return runPlain(ctx, opts, serverURL, policy, userPrefs.Theme)
	}

	// The TUI owns the terminal, so the viewer logs to a file.
	logger, closeLog, err := logging.NewFile(cfg.LogFile, zapcore.InfoLevel)
	if err != nil {
		return fmt.Errorf("open viewer log: %w", err)
	}
	defer func() { _ = closeLog() }()
	if prefsErr != nil {
		logger.Warn("load prefs, using defaults", zap.Error(prefsErr))
	}

	client, err := logsource.NewClient(serverURL,
		logsource.WithLogger(logging.For(logger, logging.ComponentStream)))
	if err != nil {
		return fmt.Errorf("init log source: %w", err)
	}

	logger.Info("viewer starting", zap.String("server", client.BaseURL()))
	return ui.Run(ui.Options{
		Context:     ctx,
		Fetcher:     client,
		Transport:   client,
		Policy:      policy,
		Logger:      logging.For(logger, logging.ComponentViewer),
		ServerURL:   client.BaseURL(),
		Threshold:   cfg.FollowThreshold,
		BufferLimit: cfg.BufferLimit,
		ThemeName:   userPrefs.Theme,
		PrefsPath:   opts.PrefsPath,
	})
}

func runPlain(ctx context.Context, opts ViewerOptions, serverURL string, policy stream.Policy, theme string) error {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := logging.New(stderr, true, zapcore.WarnLevel)
	defer func() { _ = logger.Sync() }()

	client, err := logsource.NewClient(serverURL,
		logsource.WithLogger(logging.For(logger, logging.ComponentStream)))
	if err != nil {
		return fmt.Errorf("init log source: %w", err)
	}

	sink := newLineWriter(stdout, ui.GetTheme(theme))
	if err := snapshot.Load(ctx, client, sink); err != nil {
		logger.Warn("snapshot load failed", zap.Error(err))
	}

	sc := stream.New(client, sink,
		stream.WithPolicy(policy),
		stream.WithLogger(logging.For(logger, logging.ComponentStream)),
	)
	if err := sc.Run(ctx); err != nil {
		return fmt.Errorf("stream %s: %w", client.BaseURL(), err)
	}
	return nil
}

// RunServer watches the configured log file and serves it until the context
// is cancelled.
func RunServer(ctx context.Context, opts ServerOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	file, dir := cfg.Serve.File, cfg.Serve.Dir
	if opts.File != "" || opts.Dir != "" {
		file, dir = opts.File, opts.Dir
	}
	path, err := resolveLogFile(file, dir)
	if err != nil {
		return err
	}

	listen := cfg.Serve.Listen
	if v := strings.TrimSpace(opts.Listen); v != "" {
		listen = v
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewConsole(zapcore.InfoLevel)
		defer func() { _ = logger.Sync() }()
	}

	store := &state.Store{}
	watcher := watch.New(path,
		watch.WithInterval(cfg.Serve.PollInterval),
		watch.WithStore(store),
		watch.WithLogger(logging.For(logger, logging.ComponentWatch)),
	)
	go watcher.Run(ctx)

	srv := server.New(listen, watcher, logging.For(logger, logging.ComponentServer))
	return srv.Start(ctx)
}

// resolveLogFile picks the file to serve: file as given, or the newest *.log
// in dir.
func resolveLogFile(file, dir string) (string, error) {
	file, dir = strings.TrimSpace(file), strings.TrimSpace(dir)
	switch {
	case file != "" && dir != "":
		return "", ErrFileAndDir
	case dir != "":
		path, err := logtail.Newest(expand(dir))
		if err != nil {
			return "", fmt.Errorf("find log file: %w", err)
		}
		return path, nil
	case file != "":
		path := expand(file)
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("log file: %w", err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("log file %s is a directory", path)
		}
		return path, nil
	default:
		return "", errors.New("no log file configured: set --file or --dir")
	}
}

func expand(path string) string {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}
