// SporeHut Core - humidity-driven fogger controller.
//
// This is the main entry point. It wires the device owner, the humidity
// trigger engine and the presentation surfaces (HTML page, REST API,
// WebSocket hub and optional MQTT bridge) around one bounded command
// channel, then supervises them until a shutdown signal or a relay fault.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sporehut/sporehut-core/internal/api"
	"github.com/sporehut/sporehut-core/internal/audit"
	"github.com/sporehut/sporehut-core/internal/automation"
	"github.com/sporehut/sporehut-core/internal/bridge"
	"github.com/sporehut/sporehut-core/internal/controller"
	"github.com/sporehut/sporehut-core/internal/device"
	"github.com/sporehut/sporehut-core/internal/hal"
	"github.com/sporehut/sporehut-core/internal/infrastructure/config"
	"github.com/sporehut/sporehut-core/internal/infrastructure/database"
	"github.com/sporehut/sporehut-core/internal/infrastructure/influxdb"
	"github.com/sporehut/sporehut-core/internal/infrastructure/logging"
	"github.com/sporehut/sporehut-core/internal/infrastructure/metrics"
	"github.com/sporehut/sporehut-core/internal/infrastructure/mqtt"
	"github.com/sporehut/sporehut-core/internal/telemetry"
	"github.com/sporehut/sporehut-core/migrations"
)

// Build metadata, stamped with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// exitActuatorFault distinguishes a relay failure from ordinary
	// startup errors for the process supervisor.
	exitActuatorFault = 2

	auditPruneInterval = time.Hour
	simulatedStartRH   = 85.0
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, controller.ErrActuatorFault) {
			os.Exit(exitActuatorFault)
		}
		os.Exit(1)
	}
}

// run wires the system together and blocks until ctx is cancelled or a
// component fails. main only maps its error to an exit code.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure. A relay
//     fault is returned wrapping controller.ErrActuatorFault.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting SporeHut Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"devices", len(cfg.Devices),
		"simulated", cfg.Hardware.Simulated,
	)

	m := metrics.New()

	// Database and audit trail
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		Migrations:  migrations.FS,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Hardware
	hw, err := openHardware(ctx, cfg)
	if err != nil {
		return err
	}
	defer hw.close()

	// Device owner and command channel
	registry, err := device.NewRegistry(deviceRecords(cfg.Devices))
	if err != nil {
		return fmt.Errorf("building device registry: %w", err)
	}

	queue := controller.NewQueue(cfg.Controller.QueueCapacity, cfg.SendTimeout())
	owner := controller.NewOwner(registry, hw.actuator, queue)
	owner.SetLogger(log.Component("controller"))
	owner.SetMetrics(m)
	if syncErr := owner.Sync(); syncErr != nil {
		return syncErr
	}

	newClient := func(source string) *controller.Client {
		c := controller.NewClient(queue, cfg.ReplyTimeout()).WithSource(source)
		c.SetMetrics(m)
		return c
	}

	var workers []func(context.Context) error
	async := func(name string, obs controller.Observer) controller.Observer {
		a := controller.NewAsyncObserver(name, obs, cfg.Controller.ObserverBuffer)
		a.SetLogger(log.Component("observer." + name))
		a.SetMetrics(m)
		workers = append(workers, a.Run)
		return a
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	workers = append(workers, hub.Run)
	owner.AddObserver(hub)

	recorder := audit.NewRecorder(auditRepo)
	recorder.SetLogger(log.Component("audit"))
	owner.AddObserver(async("audit", recorder))

	pruner := audit.NewPruner(auditRepo, time.Duration(cfg.Database.AuditRetentionDays)*24*time.Hour, auditPruneInterval)
	pruner.SetLogger(log.Component("audit"))
	if cfg.Database.AuditRetentionDays > 0 {
		workers = append(workers, pruner.Run)
	}

	sensor := telemetry.NewSensor(cfg.Hardware.Sensor.Name, hw.sensor)
	sensor.SetMetrics(m)
	sensor.SetLogger(log.Component("sensor"))
	sensor.AddObserver(hub)

	triggerHubs := telemetry.MultiHub{hub}
	checks := map[string]api.HealthChecker{"database": db}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		sink := telemetry.NewInflux(influxClient)
		owner.AddObserver(async("influxdb", sink))
		sensor.AddObserver(sink)
		triggerHubs = append(triggerHubs, sink)
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttDevices := newClient("mqtt")

		publisher := bridge.NewStatePublisher(mqttClient, cfg.Controller.ObserverBuffer)
		publisher.SetLogger(log.Component("mqtt.state"))
		publisher.SetMetrics(m)
		workers = append(workers, publisher.Run)
		owner.AddObserver(publisher)
		sensor.AddObserver(publisher)
		triggerHubs = append(triggerHubs, publisher)

		commands := bridge.NewCommands(mqttDevices, mqttClient, cfg.ReplyTimeout())
		commands.SetLogger(log.Component("mqtt.commands"))
		if subErr := commands.Subscribe(mqttClient, mqttClient.QoS()); subErr != nil {
			return fmt.Errorf("subscribing to MQTT commands: %w", subErr)
		}

		// Retained state must be republished after every reconnect; the
		// broker may have lost it.
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			snapCtx, cancel := context.WithTimeout(ctx, cfg.ReplyTimeout())
			defer cancel()
			if snapErr := publisher.PublishSnapshot(snapCtx, mqttDevices); snapErr != nil {
				log.Warn("MQTT state snapshot failed", "error", snapErr)
			}
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		workers = append(workers, func(ctx context.Context) error {
			snapCtx, cancel := context.WithTimeout(ctx, cfg.ReplyTimeout())
			defer cancel()
			if snapErr := publisher.PublishSnapshot(snapCtx, mqttDevices); snapErr != nil {
				log.Warn("MQTT state snapshot failed", "error", snapErr)
			}
			return nil
		})
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Trigger engine
	engine := automation.NewEngine(cfg.TriggerPeriod(), log.Component("automation"))
	engine.SetMetrics(m)
	engine.SetHub(triggerHubs)
	if cfg.Automation.Enabled {
		h := cfg.Automation.Humidity
		triggers, trigErr := automation.HumidityTriggers(automation.HumidityConfig{
			Low:      h.LowThreshold,
			High:     h.HighThreshold,
			FoggerID: h.FoggerID,
			FanID:    h.FanID,
		}, sensor, func(triggerID string) automation.Dispatcher {
			return newClient("trigger:" + triggerID)
		})
		if trigErr != nil {
			return fmt.Errorf("building humidity triggers: %w", trigErr)
		}
		for _, t := range triggers {
			if regErr := engine.Register(t); regErr != nil {
				return fmt.Errorf("registering trigger %s: %w", t.ID, regErr)
			}
		}
		log.Info("humidity automation enabled",
			"low_threshold", h.LowThreshold,
			"high_threshold", h.HighThreshold,
			"period", cfg.TriggerPeriod().String(),
		)
	} else {
		log.Info("automation disabled")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.Component("api"),
		Client:      newClient("api"),
		SiteName:    cfg.Site.Name,
		Audit:       auditRepo,
		Triggers:    engine,
		Environment: sensor,
		Metrics:     m,
		Checks:      checks,
		Hub:         hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return owner.Run(gctx) })
	g.Go(func() error { return engine.Run(gctx) })
	for _, w := range workers {
		w := w
		g.Go(func() error { return w(gctx) })
	}

	if startErr := server.Start(gctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	g.Go(func() error {
		<-gctx.Done()
		return server.Close()
	})

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil {
		log.Error("SporeHut Core stopped with error", "error", err)
		return err
	}

	log.Info("SporeHut Core stopped")
	return nil
}

// getConfigPath honours SPOREHUT_CONFIG and falls back to the bundled sample.
func getConfigPath() string {
	if path := os.Getenv("SPOREHUT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func deviceRecords(devices []config.DeviceConfig) []device.Record {
	records := make([]device.Record, 0, len(devices))
	for _, d := range devices {
		records = append(records, device.Record{
			ID:    d.ID,
			Name:  d.Name,
			Pin:   d.Pin,
			State: device.StateOff,
		})
	}
	return records
}

// hardware bundles the relay driver and the environment sensor.
type hardware struct {
	actuator hal.Actuator
	sensor   hal.Sensor
	closers  []func() error
}

func (h *hardware) close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		_ = h.closers[i]()
	}
}

// openHardware opens the GPIO relays and the SCD41, or in-memory fakes
// when hardware.simulated is set. A simulated sensor on real relays has no
// fogger feedback and simply holds its humidity.
func openHardware(ctx context.Context, cfg *config.Config) (*hardware, error) {
	pins := make([]int, 0, len(cfg.Devices))
	foggerPin := -1
	for _, d := range cfg.Devices {
		pins = append(pins, d.Pin)
		if d.ID == cfg.Automation.Humidity.FoggerID {
			foggerPin = d.Pin
		}
	}

	hw := &hardware{}
	var memory *hal.MemoryActuator
	if cfg.Hardware.Simulated {
		memory = hal.NewMemoryActuator(pins...)
		hw.actuator = memory
	} else {
		relays, err := hal.OpenGPIORelays(pins, cfg.Hardware.GPIO.ActiveLow)
		if err != nil {
			return nil, fmt.Errorf("%w: opening relays: %w", controller.ErrActuatorFault, err)
		}
		hw.actuator = relays
		hw.closers = append(hw.closers, relays.Close)
	}

	if cfg.Hardware.Simulated || cfg.Hardware.Sensor.Type == "simulated" {
		hw.sensor = hal.NewSimulatedSensor(time.Second, simulatedStartRH, memory, foggerPin)
		return hw, nil
	}

	scd41, err := hal.OpenSCD41(ctx, hal.SCD41Config{
		Bus:            cfg.Hardware.Sensor.I2CBus,
		Address:        cfg.Hardware.Sensor.Address,
		PollInterval:   cfg.SensorPollInterval(),
		StartupRetries: uint64(max(cfg.Hardware.Sensor.StartupRetries, 0)),
	})
	if err != nil {
		hw.close()
		return nil, fmt.Errorf("opening sensor: %w", err)
	}
	hw.sensor = scd41
	hw.closers = append(hw.closers, scd41.Close)
	return hw, nil
}
