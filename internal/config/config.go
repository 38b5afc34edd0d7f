// Package config loads the agri-logger configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/subosito/gotenv"

	"github.com/sweeney/agri-logger/internal/csvlog"
)

var (
	errEmptyHost  = errors.New("broker host is empty")
	errBadPort    = errors.New("broker port must be between 1 and 65535")
	errEmptyTopic = errors.New("topic is empty")
	errEmptyFile  = errors.New("log file name is empty")
	errHeartbeat  = errors.New("heartbeat must not be negative")
)

// Config is the daemon configuration. Flags may override these values after Load.
type Config struct {
	BrokerHost    string        `env:"BROKER_HOST"    envDefault:"broker.emqx.io"`
	BrokerPort    int           `env:"BROKER_PORT"    envDefault:"1883"`
	Topic         string        `env:"TOPIC"          envDefault:"esp32/agri/data"`
	ClientID      string        `env:"CLIENT_ID"      envDefault:"LoggerClient"`
	LogDir        string        `env:"LOG_DIR"        envDefault:"."`
	GeneralLog    string        `env:"GENERAL_LOG"    envDefault:"mqtt_log.csv"`
	IrrigationLog string        `env:"IRRIGATION_LOG" envDefault:"irrigation_log.csv"`
	ManualLog     string        `env:"MANUAL_LOG"     envDefault:"manual_mode_log.csv"`
	HTTPAddr      string        `env:"HTTP_ADDR"      envDefault:":8080"`
	Heartbeat     time.Duration `env:"HEARTBEAT"      envDefault:"15m"`
}

// EnvPrefix prefixes every environment variable name.
const EnvPrefix = "AGRI_"

// Options tweaks how Load reads the environment.
type Options struct {
	// EnvFile, if set, is read before parsing. Variables already set in the
	// environment take precedence over the file.
	EnvFile string

	// Environment replaces the process environment. Used by tests.
	// EnvFile values are merged underneath it.
	Environment map[string]string
}

// Load reads the configuration from the environment.
func Load(opts Options) (Config, error) {
	environ := opts.Environment
	if opts.EnvFile != "" {
		fileEnv, err := gotenv.Read(opts.EnvFile)
		if err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
		if environ == nil {
			environ = processEnv()
		}
		environ = merge(fileEnv, environ)
	}

	var cfg Config
	if err := env.Parse(&cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid option.
func (c Config) Validate() error {
	switch {
	case c.BrokerHost == "":
		return errEmptyHost
	case c.BrokerPort < 1 || c.BrokerPort > 65535:
		return errBadPort
	case c.Topic == "":
		return errEmptyTopic
	case c.GeneralLog == "" || c.IrrigationLog == "" || c.ManualLog == "":
		return errEmptyFile
	case c.Heartbeat < 0:
		return errHeartbeat
	}
	return nil
}

// BrokerURL returns the paho broker address, e.g. tcp://broker.emqx.io:1883.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.BrokerHost, c.BrokerPort)
}

// Files returns the log file names.
func (c Config) Files() csvlog.Files {
	return csvlog.Files{
		General:    c.GeneralLog,
		Irrigation: c.IrrigationLog,
		ManualMode: c.ManualLog,
	}
}

func processEnv() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

// merge returns base with override applied on top.
func merge(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
