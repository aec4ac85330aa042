package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Miquel-TA/cat-feeder/config"
	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/repository"
	"github.com/Miquel-TA/cat-feeder/internal/domain/service"
	ws "github.com/Miquel-TA/cat-feeder/internal/handlers/websocket"
	"github.com/Miquel-TA/cat-feeder/internal/infrastructure/actuator"
	redisrepo "github.com/Miquel-TA/cat-feeder/internal/infrastructure/cache"
	"github.com/Miquel-TA/cat-feeder/internal/infrastructure/queue"
	chrepo "github.com/Miquel-TA/cat-feeder/internal/infrastructure/storage"
)

// AppContext holds all app dependencies
type AppContext struct {
	Config      *config.Config
	Link        *actuator.Link
	Dispatcher  *DispatchQueue
	Status      *StatusService
	Pump        *SourcePump
	Broadcaster *ws.OverlayBroadcaster
	History     repository.DonationPersistence // nil when ClickHouse is unavailable

	KafkaConsumer *queue.KafkaConsumer
	KafkaProducer *queue.KafkaProducer
	DonationCh    chan *model.DonationEvent // direct-channel fallback and demo feed
}

// NewApp initializes the app context with all dependencies
func NewApp(log *slog.Logger, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{Config: cfg}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	schedule, err := service.NewSleepSchedule(cfg.SleepStart, cfg.SleepEnd, loc, cfg.SleepEnabled)
	if err != nil {
		return nil, fmt.Errorf("invalid sleep schedule: %w", err)
	}
	tiers, err := service.NewTierTable(service.DefaultTiers(cfg.TierMinimums))
	if err != nil {
		return nil, fmt.Errorf("invalid tier configuration: %w", err)
	}
	log.Info("sleep schedule configured",
		"start", cfg.SleepStart, "end", cfg.SleepEnd, "timezone", cfg.Timezone, "enabled", cfg.SleepEnabled)

	// Status cache (Redis). The pipeline works without it; dashboards fall
	// back to the live API.
	var statusCache repository.StatusCache
	redisRepo := redisrepo.NewRedisRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	statusCache = redisRepo
	log.Info("redis status cache initialized", "addr", cfg.RedisAddr)

	// Donation history (ClickHouse), optional.
	chConfig := chrepo.ClickHouseConfig{
		Addr:     cfg.ClickhouseAddr,
		Username: cfg.ClickhouseUsername,
		Password: cfg.ClickhousePassword,
		Timeout:  cfg.ClickhouseTimeout,
	}
	clickhouseRepo, err := chrepo.NewClickHouseRepository(chConfig)
	if err != nil {
		log.Warn("failed to connect to ClickHouse, continuing without donation history", "error", err)
	} else {
		app.History = clickhouseRepo
		log.Info("clickhouse donation history initialized", "addr", cfg.ClickhouseAddr)
	}

	app.Broadcaster = ws.NewOverlayBroadcaster(log)
	sink := NewRecordedSink(app.Broadcaster, statusCache, app.History, log)

	app.Link = actuator.NewLink(actuator.Config{
		Addr:           cfg.ActuatorAddr,
		DialTimeout:    cfg.ActuatorDialTimeout,
		StartTimeout:   cfg.ActuatorStartTimeout,
		RunTimeout:     cfg.ActuatorRunTimeout,
		PingInterval:   cfg.ActuatorPingInterval,
		PingTimeout:    cfg.ActuatorPingTimeout,
		MaxMissedPings: cfg.ActuatorMaxMissed,
		ReconnectBase:  cfg.ReconnectBase,
		ReconnectMax:   cfg.ReconnectMax,
		MotorCount:     service.MotorCount,
	}, log)

	// The status service doubles as the override-aware sleep gate, so it is
	// created before the dispatch queue that consumes it.
	app.Status = NewStatusService(schedule, nil, app.Link, sink, statusCache, cfg.StatusInterval, log)
	app.Dispatcher = NewDispatchQueue(DispatchConfig{
		MinSpacing:                cfg.MinAlertGap,
		Capacity:                  cfg.QueueCapacity,
		MaxAttempts:               cfg.MaxAttempts,
		RetryBase:                 cfg.RetryBase,
		RetryFactor:               cfg.RetryFactor,
		SuppressVisualDuringSleep: cfg.SuppressVisual,
	}, sink, app.Status, app.Link, log)
	app.Status.queue = app.Dispatcher

	// Donation source: Kafka when brokers are configured, direct channel otherwise.
	if len(cfg.KafkaBrokers) > 0 {
		kafkaConfig := queue.KafkaConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
			BatchSize:     cfg.KafkaBatchSize,
			BatchTimeout:  cfg.KafkaBatchTimeout,
		}
		app.KafkaConsumer = queue.NewKafkaConsumer(kafkaConfig, log)
		app.KafkaProducer = queue.NewKafkaProducer(kafkaConfig)
		app.Pump = NewSourcePump(app.KafkaConsumer, nil, app.Dispatcher, tiers, log)
		log.Info("using Kafka for donation consumption", "topic", cfg.KafkaTopic)
	} else {
		app.DonationCh = make(chan *model.DonationEvent, cfg.EventBufferSize)
		app.Pump = NewSourcePump(nil, app.DonationCh, app.Dispatcher, tiers, log)
		log.Info("Kafka not configured, using direct donation channel")
	}

	return app, nil
}

// Cleanup performs graceful shutdown of all components
func (a *AppContext) Cleanup(log *slog.Logger) {
	if a.KafkaConsumer != nil {
		log.Info("closing Kafka consumer")
		if err := a.KafkaConsumer.Close(); err != nil {
			log.Warn("error closing Kafka consumer", "error", err)
		}
	}
	if a.KafkaProducer != nil {
		log.Info("closing Kafka producer")
		if err := a.KafkaProducer.Close(); err != nil {
			log.Warn("error closing Kafka producer", "error", err)
		}
	}
	if a.DonationCh != nil {
		close(a.DonationCh)
	}
	log.Info("all resources cleaned up")
}
