package di

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"SignalDesk/internal/consensus"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/handler/api"
	"SignalDesk/internal/macro"
	"SignalDesk/internal/notify"
	"SignalDesk/internal/providers"
	internalrepo "SignalDesk/internal/repository"
	"SignalDesk/internal/riskmon"
	"SignalDesk/internal/service/cooldown"
	"SignalDesk/internal/service/marketdata"
	"SignalDesk/internal/usecase"
	"SignalDesk/internal/watchlist"
	"SignalDesk/pkg/cache"
	pkgch "SignalDesk/pkg/clickhouse"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/metrics"
	"SignalDesk/pkg/queue"
	"SignalDesk/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "json"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideClock returns the wall clock shared by all time-sensitive parts.
func ProvideClock() domsvc.Clock {
	return domsvc.SystemClock{}
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisCache connects to Redis, or returns nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitAddr(cfg.Redis.Addr)
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideSettingsStore backs settings with Redis behind a small memory
// layer when available, falling back to an in-process cache.
func ProvideSettingsStore(rc *cache.RedisCache) domrepo.SettingsStore {
	if rc != nil {
		return internalrepo.NewRedisSettings(cache.NewLayeredCache(rc))
	}
	return internalrepo.NewRedisSettings(cache.NewMemoryCache())
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHistory creates the tick and verdict archive. ClickHouse when
// configured, an in-process bounded store otherwise.
func ProvideHistory(chClient *pkgch.Client) (domrepo.HistoryStore, error) {
	if chClient == nil {
		return internalrepo.NewMemoryHistory(), nil
	}

	store := internalrepo.NewClickHouseHistory(chClient.DB())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideTickPublisher creates the tick event publisher. Each publisher
// owns its producer so Close is unambiguous.
func ProvideTickPublisher(cfg *config.Config) (domrepo.TickPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopTickPublisher{}, nil
	}
	producer, err := newProducer(cfg)
	if err != nil {
		return nil, err
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.TicksTopic), nil
}

// ProvideAlertPublisher creates the alert event publisher.
func ProvideAlertPublisher(cfg *config.Config) (domrepo.AlertPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopAlertPublisher{}, nil
	}
	producer, err := newProducer(cfg)
	if err != nil {
		return nil, err
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic), nil
}

func newProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the archive consumer, or nil when Kafka is
// disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTickArchiver wires the tick topic into the history store.
func ProvideTickArchiver(cfg *config.Config, history domrepo.HistoryStore, m domrepo.Metrics) pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled {
		return nil
	}
	return usecase.NewTickArchiver(cfg.Kafka.TicksTopic, history, m)
}

// ProvideHTTPSource creates the REST quote client.
func ProvideHTTPSource(cfg *config.Config) *marketdata.HTTPSource {
	return marketdata.NewHTTPSource(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.RequestTimeout)
}

// ProvideMarketDataSource returns the polling source, wrapped with the
// websocket stream when streaming is on.
func ProvideMarketDataSource(cfg *config.Config, httpSrc *marketdata.HTTPSource, l *applogger.Logger) domrepo.MarketDataSource {
	if cfg.MarketData.Streaming && cfg.MarketData.WebSocketURL != "" {
		return marketdata.NewStreamSource(
			cfg.MarketData.APIKey,
			cfg.MarketData.WebSocketURL,
			cfg.MarketData.Symbols,
			cfg.MarketData.ReconnectDelay,
			cfg.MarketData.PingInterval,
			httpSrc,
			l,
		)
	}
	return httpSrc
}

// ProvideRunners collects background loops started by the app.
func ProvideRunners(source domrepo.MarketDataSource) []server.Runner {
	var runners []server.Runner
	if s, ok := source.(*marketdata.StreamSource); ok {
		runners = append(runners, s)
	}
	return runners
}

// ProvideMacroHolder creates the shared macro snapshot holder.
func ProvideMacroHolder() *macro.Holder {
	return macro.NewHolder()
}

// ProvideMacroRefresher polls the index and volatility symbols through the
// REST client; the stream does not subscribe to them.
func ProvideMacroRefresher(cfg *config.Config, holder *macro.Holder, httpSrc *marketdata.HTTPSource, l *applogger.Logger) *macro.Refresher {
	return macro.NewRefresher(holder, httpSrc, cfg.Macro.IndexSymbol, cfg.Macro.VolatilitySym, cfg.Macro.RefreshInterval, l)
}

// ProvideAnalysisProviders builds the LLM provider set from config.
func ProvideAnalysisProviders(cfg *config.Config) []domsvc.AnalysisProvider {
	out := make([]domsvc.AnalysisProvider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		out = append(out, providers.NewChatProvider(providers.Config{
			Name:          pc.Name,
			BaseURL:       pc.BaseURL,
			APIKey:        pc.APIKey,
			Model:         pc.Model,
			DiscoverModel: pc.DiscoverModel,
			Headers:       pc.Headers,
			Temperature:   pc.Temperature,
			MaxTokens:     pc.MaxTokens,
		}))
	}
	return out
}

// ProvideConsensusEngine creates the multi-provider consensus engine.
func ProvideConsensusEngine(cfg *config.Config, provs []domsvc.AnalysisProvider, clock domsvc.Clock, m domrepo.Metrics, l *applogger.Logger) *consensus.Engine {
	return consensus.NewEngine(provs, cfg.Consensus.ProviderTimeout, clock, m, l)
}

// ProvideWatchlist creates the verdict cache.
func ProvideWatchlist(cfg *config.Config, clock domsvc.Clock, m domrepo.Metrics) *watchlist.Cache {
	return watchlist.NewCache(cfg.Watchlist.Freshness, clock, m)
}

// ProvideCooldownGate creates the shared cooldown gate. Callers namespace
// their keys, so one gate serves risk, notify, and analysis throttling.
func ProvideCooldownGate(clock domsvc.Clock) *cooldown.Gate {
	return cooldown.New(clock)
}

// ProvideRiskMonitor creates the position risk monitor from config, with
// defaults for unset thresholds.
func ProvideRiskMonitor(cfg *config.Config, gate *cooldown.Gate, clock domsvc.Clock) *riskmon.Monitor {
	rc := riskmon.DefaultConfig()
	if cfg.Risk.StopLossPct != 0 {
		rc.StopLossPct = cfg.Risk.StopLossPct
	}
	if cfg.Risk.TakeProfitPct != 0 {
		rc.TakeProfitPct = cfg.Risk.TakeProfitPct
	}
	if cfg.Risk.VolThreshold != 0 {
		rc.VolThreshold = cfg.Risk.VolThreshold
	}
	if cfg.Risk.FlatVolThreshold != 0 {
		rc.FlatVolThreshold = cfg.Risk.FlatVolThreshold
	}
	if cfg.Risk.Cooldown != 0 {
		rc.Cooldown = cfg.Risk.Cooldown
	}
	return riskmon.New(rc, gate, clock)
}

// ProvidePositionBook creates the position book and preloads persisted
// positions for the configured symbols.
func ProvidePositionBook(cfg *config.Config, settings domrepo.SettingsStore, l *applogger.Logger) *usecase.PositionBook {
	book := usecase.NewPositionBook(settings)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := book.Load(ctx, cfg.MarketData.Symbols); err != nil {
		l.Warn("position preload failed", applogger.Error(err))
	}
	return book
}

// ProvideNotifier creates the outbound notification sink.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger) domsvc.NotificationSink {
	if len(cfg.Notify.WebhookURLs) == 0 {
		return notify.NopSink{}
	}
	return notify.NewWebhookSink(cfg.Notify.WebhookURLs, cfg.Notify.Timeout, l)
}

// ProvideInlineScheduler creates the fallback scheduler. It is always
// constructed; the queue-backed scheduler shadows it when Redis is on.
func ProvideInlineScheduler(l *applogger.Logger) *usecase.InlineScheduler {
	return usecase.NewInlineScheduler(l)
}

// ProvideScheduler picks the durable queue scheduler when Redis is
// available, the inline goroutine scheduler otherwise.
func ProvideScheduler(cfg *config.Config, rc *cache.RedisCache, inline *usecase.InlineScheduler, l *applogger.Logger) usecase.AnalysisScheduler {
	if cfg.Redis.Enabled && rc != nil {
		publisher := queue.NewRedisPublisher(l, rc.Client(), queue.WithKeyPrefix("signaldesk"))
		return usecase.NewQueueScheduler(publisher)
	}
	return inline
}

// ProvideTickLoop creates the per-symbol evaluation loop.
func ProvideTickLoop(
	cfg *config.Config,
	source domrepo.MarketDataSource,
	holder *macro.Holder,
	wl *watchlist.Cache,
	monitor *riskmon.Monitor,
	book *usecase.PositionBook,
	alerts domrepo.AlertPublisher,
	ticks domrepo.TickPublisher,
	notifier domsvc.NotificationSink,
	scheduler usecase.AnalysisScheduler,
	gate *cooldown.Gate,
	m domrepo.Metrics,
	l *applogger.Logger,
	clock domsvc.Clock,
) *usecase.TickLoop {
	return usecase.NewTickLoop(
		source, holder, wl, monitor, book,
		alerts, ticks, notifier, scheduler, gate,
		m, l, clock,
		cfg.MarketData.TickInterval, cfg.MarketData.SeriesMax,
	)
}

// ProvideAnalyzer creates the consensus analysis orchestrator.
func ProvideAnalyzer(
	engine *consensus.Engine,
	loop *usecase.TickLoop,
	holder *macro.Holder,
	book *usecase.PositionBook,
	wl *watchlist.Cache,
	history domrepo.HistoryStore,
	alerts domrepo.AlertPublisher,
	notifier domsvc.NotificationSink,
	gate *cooldown.Gate,
	l *applogger.Logger,
) *usecase.Analyzer {
	return usecase.NewAnalyzer(engine, loop, holder, book, wl, history, alerts, notifier, gate, l)
}

// ProvideJobQueue creates the Redis job consumer draining analysis
// requests, binding the inline fallback when Redis is off.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, analyzer *usecase.Analyzer, inline *usecase.InlineScheduler, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Redis.Enabled || rc == nil {
		inline.Bind(analyzer)
		return nil
	}
	qc := &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		QueueSize:  cfg.Redis.Queue.QueueSize,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}
	jobs := []queue.Job{usecase.NewAnalysisJob(analyzer)}
	return queue.NewRedisConsumer(l, qc, rc.Client(), jobs, queue.WithKeyPrefix("signaldesk"))
}

// ProvideHTTPHandler assembles the API surface.
func ProvideHTTPHandler(
	l *applogger.Logger,
	loop *usecase.TickLoop,
	analyzer *usecase.Analyzer,
	wl *watchlist.Cache,
	holder *macro.Holder,
	history domrepo.HistoryStore,
	gate *cooldown.Gate,
	clock domsvc.Clock,
	book *usecase.PositionBook,
) xhttp.Handler {
	signals := api.NewSignalsHandler(l, loop, analyzer, wl, holder, history, gate, clock)
	positions := api.NewPositionsHandler(l, book)
	return api.NewRouter(signals, positions)
}

// ProvideClosers collects shutdown targets beyond the history store.
func ProvideClosers(rc *cache.RedisCache, ticks domrepo.TickPublisher, alerts domrepo.AlertPublisher) []io.Closer {
	closers := []io.Closer{ticks, alerts}
	if rc != nil {
		closers = append(closers, rc)
	}
	return closers
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	loop *usecase.TickLoop,
	refresher *macro.Refresher,
	runners []server.Runner,
	consumer *pkgkafka.Consumer,
	archiver pkgkafka.MessageHandler,
	jobQueue *queue.RedisQueue,
	history domrepo.HistoryStore,
	closers []io.Closer,
) *server.App {
	return server.New(cfg, l, handler, loop, refresher, runners, consumer, archiver, jobQueue, history, closers)
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
