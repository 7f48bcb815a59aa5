// Gray Logic Climate Skill
//
// The climate skill turns parsed voice intents ("set the living room to 21",
// "turn off the heating upstairs") into commands for the building's climate
// devices and a single spoken reply. It runs alongside Gray Logic Core on the
// same MQTT bus and reads rooms and devices from the shared registry tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-climate/migrations"

	"github.com/nerrad567/gray-logic-climate/internal/api"
	"github.com/nerrad567/gray-logic-climate/internal/audit"
	"github.com/nerrad567/gray-logic-climate/internal/bridge"
	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-climate/internal/location"
	"github.com/nerrad567/gray-logic-climate/internal/registry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// auditQueueSize bounds command audit entries waiting for SQLite.
const auditQueueSize = 256

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Climate Skill",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Entity registry
	reg := registry.New(
		location.NewSQLiteRepository(db.DB),
		device.NewSQLiteRepository(db.DB),
		registry.Options{
			FuzzyThreshold:  cfg.Resolver.FuzzyThreshold,
			AmbiguityMargin: cfg.Resolver.AmbiguityMargin,
		},
	)
	reg.SetLogger(log)
	if refreshErr := reg.Refresh(ctx); refreshErr != nil {
		return fmt.Errorf("loading registry: %w", refreshErr)
	}
	stats := reg.Stats()
	log.Info("registry loaded", "rooms", stats.Rooms, "devices", stats.Devices, "skipped", stats.Skipped)

	renderer, err := climate.NewRenderer(cfg.Responses.TemplateDir)
	if err != nil {
		return fmt.Errorf("loading reply templates: %w", err)
	}

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Skill.ID)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	dispatcher := bridge.NewMQTTDispatcher(mqttClient, bridge.DispatcherOptions{
		Source:   cfg.Skill.ID,
		QoS:      byte(cfg.MQTT.QoS),
		AwaitAck: cfg.Dispatch.AwaitAck,
		Topics:   mqttClient.Topics(),
	})
	dispatcher.SetLogger(log)

	engine := climate.NewEngine(
		climate.NewResolver(reg, cfg.Resolver.FuzzyThreshold),
		renderer,
		dispatcher,
		climate.Config{
			MaxConcurrent:   cfg.Dispatch.MaxConcurrent,
			DispatchTimeout: cfg.GetDispatchTimeout(),
			RatePerSecond:   cfg.Dispatch.RatePerSecond,
			AmbiguityMargin: cfg.Resolver.AmbiguityMargin,
		},
	)
	engine.SetLogger(log)

	// Observers
	m := metrics.New(func() (int, int) {
		s := reg.Stats()
		return s.Rooms, s.Devices
	})
	engine.AddObserver(m)

	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, auditQueueSize)
	recorder.SetLogger(log)
	recorder.Start()
	defer recorder.Close()
	engine.AddObserver(recorder)

	influxClient, err := startInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		engine.AddObserver(influxdb.NewObserver(influxClient))
	}

	// Voice bus
	b, err := bridge.New(bridge.Options{
		Bus:           mqttClient,
		Handler:       engine,
		Registry:      reg,
		Dispatcher:    dispatcher,
		Topics:        mqttClient.Topics(),
		IntentTopic:   cfg.MQTT.Topics.Intents,
		RegistryTopic: cfg.MQTT.Topics.RegistryChanged,
		QoS:           byte(cfg.MQTT.QoS),
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if startErr := b.Start(); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	defer b.Stop()

	busHealth := busHealthCheck(mqttClient, b.IntentTopic())

	// HTTP API
	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db.HealthCheck,
			"mqtt":     busHealth,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient.HealthCheck
		}

		server, srvErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Handler:  engine,
			Registry: reg,
			Commands: auditRepo,
			Metrics:  m,
			Checks:   checks,
			Version:  version,
		})
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, busHealth, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API, bridge (drains in-flight
	// requests), InfluxDB, audit recorder, MQTT, database.
	return nil
}

// startInfluxDB connects to InfluxDB when enabled. A nil client means
// telemetry is off.
func startInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// subscriptionChecker is the part of the MQTT client the bus health
// check needs. *mqtt.Client satisfies it.
type subscriptionChecker interface {
	HealthCheck(ctx context.Context) error
	HasSubscription(topic string) bool
}

// busHealthCheck reports the bus as unhealthy when the broker is
// unreachable or the intent subscription is no longer tracked.
func busHealthCheck(client subscriptionChecker, intentTopic string) api.HealthChecker {
	return func(ctx context.Context) error {
		if err := client.HealthCheck(ctx); err != nil {
			return err
		}
		if !client.HasSubscription(intentTopic) {
			return fmt.Errorf("not subscribed to %s", intentTopic)
		}
		return nil
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, busHealth api.HealthChecker, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := busHealth(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
