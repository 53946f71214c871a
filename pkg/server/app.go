package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/macro"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/queue"
)

// Runner is a long-lived background component tied to the app context.
type Runner interface {
	Run(ctx context.Context)
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	handler   xhttp.Handler
	loop      *usecase.TickLoop
	refresher *macro.Refresher
	runners   []Runner
	consumer  *pkgkafka.Consumer
	archiver  pkgkafka.MessageHandler
	jobQueue  *queue.RedisQueue
	history   repository.HistoryStore
	closers   []io.Closer

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. Optional pieces
// (consumer, jobQueue, history) may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	loop *usecase.TickLoop,
	refresher *macro.Refresher,
	runners []Runner,
	consumer *pkgkafka.Consumer,
	archiver pkgkafka.MessageHandler,
	jobQueue *queue.RedisQueue,
	history repository.HistoryStore,
	closers []io.Closer,
) *App {
	return &App{
		cfg:       cfg,
		logger:    l,
		handler:   handler,
		loop:      loop,
		refresher: refresher,
		runners:   runners,
		consumer:  consumer,
		archiver:  archiver,
		jobQueue:  jobQueue,
		history:   history,
		closers:   closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Background loops: stream readers, anything else long-lived.
	for _, r := range a.runners {
		go r.Run(ctx)
	}

	go a.refresher.Run(ctx)
	l.Info("macro refresher started",
		applogger.String("index", a.cfg.Macro.IndexSymbol),
		applogger.String("volatility", a.cfg.Macro.VolatilitySym))

	go a.loop.Run(ctx, a.cfg.MarketData.Symbols)
	l.Info("tick loop started", applogger.Strings("symbols", a.cfg.MarketData.Symbols))

	if a.consumer != nil && a.archiver != nil {
		a.consumer.RegisterHandler(a.archiver)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.archiver.Topic()))
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
			return err
		}
		a.jobQueue.StartRetryProcessor()
		l.Info("analysis job queue started")
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services in reverse start order.
func (a *App) shutdown() error {
	l := a.logger

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Publishers, caches, and the market data client.
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			l.Warn("close error", applogger.Error(err))
		}
	}

	if a.history != nil {
		if err := a.history.Close(); err != nil {
			l.Warn("history close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
