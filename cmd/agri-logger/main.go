// Command agri-logger subscribes to irrigation controller telemetry over MQTT
// and appends it, together with detected irrigation and manual-mode
// transitions, to CSV logs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/agri-logger/internal/config"
	"github.com/sweeney/agri-logger/internal/csvlog"
	"github.com/sweeney/agri-logger/internal/ingest"
	"github.com/sweeney/agri-logger/internal/metrics"
	"github.com/sweeney/agri-logger/internal/mqtt"
	"github.com/sweeney/agri-logger/internal/status"
	"github.com/sweeney/agri-logger/internal/web"
)

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig parses args, loads the environment (and the -env-file, if given)
// and applies any flags set explicitly on top. A nil environ reads the
// process environment.
func loadConfig(fs *flag.FlagSet, args []string, environ map[string]string) (config.Config, error) {
	envFile := fs.String("env-file", "", "Load environment variables from this file first")
	brokerHost := fs.String("broker-host", "", "MQTT broker host (env AGRI_BROKER_HOST)")
	brokerPort := fs.Int("broker-port", 0, "MQTT broker port (env AGRI_BROKER_PORT)")
	topic := fs.String("topic", "", "Topic to subscribe to (env AGRI_TOPIC)")
	clientID := fs.String("client-id", "", "MQTT client ID (env AGRI_CLIENT_ID)")
	logDir := fs.String("log-dir", "", "Directory for the CSV logs (env AGRI_LOG_DIR)")
	generalLog := fs.String("general-log", "", "General log file name (env AGRI_GENERAL_LOG)")
	irrigationLog := fs.String("irrigation-log", "", "Irrigation log file name (env AGRI_IRRIGATION_LOG)")
	manualLog := fs.String("manual-log", "", "Manual mode log file name (env AGRI_MANUAL_LOG)")
	httpAddr := fs.String("http", "", "HTTP status address, empty to disable (env AGRI_HTTP_ADDR)")
	heartbeat := fs.Duration("heartbeat", 0, "Summary log interval, 0 to disable (env AGRI_HEARTBEAT)")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(config.Options{EnvFile: *envFile, Environment: environ})
	if err != nil {
		return config.Config{}, err
	}

	// Only flags given on the command line override the environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker-host":
			cfg.BrokerHost = *brokerHost
		case "broker-port":
			cfg.BrokerPort = *brokerPort
		case "topic":
			cfg.Topic = *topic
		case "client-id":
			cfg.ClientID = *clientID
		case "log-dir":
			cfg.LogDir = *logDir
		case "general-log":
			cfg.GeneralLog = *generalLog
		case "irrigation-log":
			cfg.IrrigationLog = *irrigationLog
		case "manual-log":
			cfg.ManualLog = *manualLog
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(cfg config.Config) error {
	writer, err := csvlog.NewFileWriter(cfg.LogDir, cfg.Files())
	if err != nil {
		return fmt.Errorf("init logs: %w", err)
	}

	broker := cfg.BrokerURL()
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:        broker,
		Topic:         cfg.Topic,
		LogDir:        cfg.LogDir,
		GeneralLog:    cfg.GeneralLog,
		IrrigationLog: cfg.IrrigationLog,
		ManualLog:     cfg.ManualLog,
		HTTPAddr:      cfg.HTTPAddr,
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
	})
	m := metrics.New("agri_logger")
	handler := ingest.NewHandler(writer, tracker, m, time.Now)

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	subscriber, err := mqtt.NewRealSubscriber(mqtt.SubscriberConfig{
		Broker:   broker,
		ClientID: cfg.ClientID,
		Topic:    cfg.Topic,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer subscriber.Close()
	tracker.SetMQTTConnected(subscriber.IsConnected())

	log.Printf("started: broker=%s topic=%s logs=%s heartbeat=%v", broker, cfg.Topic, cfg.LogDir, cfg.Heartbeat)

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(subscriber.Messages(), handler, subscriber, tracker, heartbeat, sigCh)
}

// runLoop handles messages one at a time until a signal arrives or the
// message channel is closed. Handling errors are logged by the handler and
// never stop the loop.
func runLoop(msgs <-chan mqtt.Message, handler *ingest.Handler, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if tracker != nil {
				logSummary("shutdown", tracker.Snapshot())
			}
			return nil

		case msg, ok := <-msgs:
			if !ok {
				log.Printf("message channel closed, stopping")
				return nil
			}
			handler.Handle(msg)
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

		case <-heartbeat:
			if tracker == nil {
				continue
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			logSummary("heartbeat", tracker.Snapshot())
		}
	}
}

func logSummary(prefix string, snap status.Snapshot) {
	log.Printf("%s: uptime=%v mqtt=%v messages=%d decode_errors=%d write_errors=%d irrigation=%s mode=%s irrigation_on=%d entered_manual=%d resumed_auto=%d",
		prefix,
		snap.Uptime().Truncate(time.Second),
		snap.MQTTConnected,
		snap.Messages,
		snap.DecodeErrors,
		snap.WriteErrors,
		status.IrrigationState(snap.Irrigation),
		status.ManualModeState(snap.ManualMode),
		snap.Counts.IrrigationOn,
		snap.Counts.ManualEntered,
		snap.Counts.ManualResumed,
	)
}
