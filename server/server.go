// Package server owns the process-level pieces of parley: the HTTP server
// lifecycle and the zap logger shared by every component.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/teilomillet/parley/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *zap.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
			ErrorLog:       zap.NewStdLog(logger.Named("http")),
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Addr reports the address the server is listening on, or nil before Start
// has bound its socket.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the configured port and serves until ctx is cancelled, then
// drains in-flight requests for at most the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server started", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.cfg.ShutdownTimeout
		shutdownCtx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
			defer cancel()
		}

		s.logger.Info("Shutting down server", zap.Duration("timeout", timeout))
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// NewLogger builds the process logger: one core writing to stdout and, when
// cfg.File is set, a second core appending to that file. The returned level
// can be changed while the logger is in use; close releases the file.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, zap.AtomicLevel, func(), error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, nil, fmt.Errorf("invalid log level: %w", err)
	}
	level := zap.NewAtomicLevelAt(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	jsonEnc := zapcore.NewJSONEncoder(encCfg)
	enc := jsonEnc
	if cfg.Format == "text" {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(consoleCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(consoleSink{os.Stdout}), level),
	}
	closeFn := func() {}

	if cfg.File != "" {
		sink, closeFile, err := zap.Open(cfg.File)
		if err != nil {
			return nil, zap.AtomicLevel{}, nil, fmt.Errorf("open log file: %w", err)
		}
		// The file always gets JSON lines regardless of the console format.
		cores = append(cores, zapcore.NewCore(jsonEnc.Clone(), sink, level))
		closeFn = closeFile
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger, level, closeFn, nil
}

// consoleSink writes to stdout without syncing it. Stdout is unbuffered and
// fsync fails on pipes and terminals.
type consoleSink struct{ io.Writer }

func (consoleSink) Sync() error { return nil }

// WatchLogLevel applies the log level of every config published by watcher
// until ctx is done or the watcher closes. Other settings are ignored.
func WatchLogLevel(ctx context.Context, watcher config.Watcher, level zap.AtomicLevel, logger *zap.Logger) {
	updates := watcher.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			next, err := zapcore.ParseLevel(cfg.Logging.Level)
			if err != nil {
				logger.Warn("Ignoring invalid log level", zap.String("level", cfg.Logging.Level))
				continue
			}
			if next == level.Level() {
				continue
			}
			level.SetLevel(next)
			logger.Info("Log level changed", zap.String("level", next.String()))
		}
	}
}
