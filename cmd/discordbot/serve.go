package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nerrad567/discord-mqtt-bot/internal/api"
	"github.com/nerrad567/discord-mqtt-bot/internal/audit"
	"github.com/nerrad567/discord-mqtt-bot/internal/commands"
	"github.com/nerrad567/discord-mqtt-bot/internal/discord"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/config"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/database"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/influxdb"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/logging"
	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/mqtt"
	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
	"github.com/nerrad567/discord-mqtt-bot/internal/relay"
	"github.com/nerrad567/discord-mqtt-bot/migrations"
)

// shutdownTimeout bounds the dispatcher drain on exit.
const shutdownTimeout = 15 * time.Second

// newServeCmd creates the serve subcommand.
func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and MQTT and relay notifications",
		Long: `Connect to the Discord gateway and the MQTT broker, register the slash
commands and relay notifications until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireDiscord(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}
}

// run wires every component and blocks until ctx is cancelled.
//
// Deferred Close() calls run in reverse order:
//  1. API server (if enabled)
//  2. Dispatcher
//  3. Discord
//  4. MQTT
//  5. InfluxDB (if enabled)
//  6. Database (if enabled)
func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Logging, version)
	log.Info("discord bot starting", "version", version, "commit", commit)
	routeLibraryLogs(log)

	reg := registry.NewRegistry(registry.NewFileStore(cfg.Registry.Path))
	reg.SetLogger(log.With("component", "registry"))
	if err := reg.Load(); err != nil {
		return fmt.Errorf("loading registry %s: %w", cfg.Registry.Path, err)
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorders := []relay.Recorder{relay.NewMetrics(metrics)}
	checks := make(map[string]api.HealthChecker)

	// The interface stays nil when auditing is off.
	var auditRepo audit.Repository
	if cfg.Database.Enabled {
		db, err := database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}()
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("audit database ready", "path", db.Path())

		repo := audit.NewSQLiteRepository(db.DB)
		auditRepo = repo
		recorders = append(recorders, relay.NewAuditRecorder(repo, log.With("component", "audit")))
		checks["database"] = db
	} else {
		log.Info("audit database disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if err := influxClient.Close(); err != nil {
				log.Error("error closing InfluxDB", "error", err)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write failed", "error", err)
		})
		log.Info("connected to InfluxDB", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		recorders = append(recorders, relay.NewPointRecorder(influxClient))
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT broker %s: %w", cfg.BrokerAddress(), err)
	}
	defer func() {
		log.Info("closing MQTT connection")
		if err := mqttClient.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
	}()
	mqttLog := log.With("component", "mqtt")
	mqttClient.SetLogger(mqttLog)
	mqttClient.SetOnConnect(func() {
		mqttLog.Info("MQTT connected", "broker", cfg.BrokerAddress())
	})
	mqttClient.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT disconnected", "error", err)
	})
	log.Info("connected to MQTT broker", "broker", cfg.BrokerAddress())
	checks["mqtt"] = mqttClient

	handler, err := commands.NewHandler(commands.Options{
		Registry: reg,
		Topic:    cfg.MQTT.Topic,
		Audit:    auditRepo,
		Logger:   log.With("component", "commands"),
	})
	if err != nil {
		return fmt.Errorf("creating command handler: %w", err)
	}

	bot, err := discord.New(discord.Options{
		Token:        cfg.Discord.Token,
		GuildID:      cfg.Discord.GuildID,
		Commands:     handler,
		SyncAttempts: cfg.Discord.SyncAttempts,
		Logger:       log.With("component", "discord"),
	})
	if err != nil {
		return fmt.Errorf("creating Discord bot: %w", err)
	}
	defer func() {
		log.Info("closing Discord session")
		if err := bot.Close(); err != nil {
			log.Error("error closing Discord session", "error", err)
		}
	}()
	if err := bot.Start(ctx); err != nil {
		return fmt.Errorf("starting Discord bot: %w", err)
	}
	checks["discord"] = bot

	dispatcher, err := relay.NewDispatcher(relay.Options{
		Registry:        reg,
		Sender:          bot,
		Subscriber:      mqttSubscriber{client: mqttClient},
		Topic:           cfg.MQTT.Topic,
		QoS:             byte(cfg.MQTT.QoS),
		DeliveryTimeout: cfg.GetDeliveryTimeout(),
		DefaultSource:   cfg.Relay.DefaultSource,
		Recorders:       recorders,
		Logger:          log.With("component", "relay"),
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		dispatcher.Stop(stopCtx)
	}()

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log.With("component", "api"),
			Registry:   reg,
			Dispatcher: dispatcher,
			Audit:      auditRepo,
			Metrics:    metrics,
			Checks:     checks,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if err := server.Close(); err != nil {
				log.Error("error closing API server", "error", err)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"topic", cfg.MQTT.Topic,
		"registrations", reg.Count(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// routeLibraryLogs sends paho and discordgo diagnostics through log.
func routeLibraryLogs(log *logging.Logger) {
	paho := log.With("component", "paho")
	pahomqtt.CRITICAL = paho.Printer(slog.LevelError)
	pahomqtt.ERROR = paho.Printer(slog.LevelError)
	pahomqtt.WARN = paho.Printer(slog.LevelWarn)

	discord.RouteLibraryLogs(log.With("component", "discordgo"))
}

// mqttSubscriber adapts *mqtt.Client to relay.Subscriber. The two differ
// only in the named handler type.
type mqttSubscriber struct {
	client *mqtt.Client
}

var _ relay.Subscriber = mqttSubscriber{}

// Subscribe implements relay.Subscriber.
func (s mqttSubscriber) Subscribe(ctx context.Context, filter string, qos byte, handler func(topic string, payload []byte) error) error {
	return s.client.Subscribe(ctx, filter, qos, handler)
}

// Unsubscribe implements relay.Subscriber.
func (s mqttSubscriber) Unsubscribe(ctx context.Context, filter string) error {
	return s.client.Unsubscribe(ctx, filter)
}
