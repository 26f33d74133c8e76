package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Logbook backends.
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

// Config lists the tunable parameters for the spotter.
type Config struct {
	ListenAddress      string        `yaml:"listen_address"`
	MulticastGroup     string        `yaml:"multicast_group"`
	MulticastInterface string        `yaml:"multicast_interface"`
	CtyPath            string        `yaml:"cty_path"`
	CtyURL             string        `yaml:"cty_url"`
	CtyAPIKey          string        `yaml:"cty_api_key"`
	CtyRefresh         time.Duration `yaml:"cty_refresh"`
	LogbookBackend     string        `yaml:"logbook_backend"`
	LogbookURL         string        `yaml:"logbook_url"`
	LogbookPath        string        `yaml:"logbook_path"`
	Band               int           `yaml:"band"`
	Mode               string        `yaml:"mode"`
	RetryInitial       time.Duration `yaml:"retry_initial"`
	RetryMax           time.Duration `yaml:"retry_max"`
	HTTPPort           int           `yaml:"http_port"`
	MQTTBroker         string        `yaml:"mqtt_broker"`
	MQTTTopic          string        `yaml:"mqtt_topic"`
	MDNS               bool          `yaml:"mdns"`
	LogLevel           string        `yaml:"log_level"`
}

const (
	defaultListenAddress  = ":2237"
	defaultCtyPath        = "cty.xml"
	defaultCtyURL         = "https://cdn.clublog.org/cty.php"
	defaultLogbookBackend = BackendHTTP
	defaultLogbookPath    = "data/logbook.db"
	defaultBand           = 20
	defaultMode           = "FT8"
	defaultRetryInitial   = time.Second
	defaultRetryMax       = time.Minute
	defaultHTTPPort       = 8080
	defaultMQTTTopic      = "ft8spotter/spots"
	defaultLogLevel       = "info"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddress:  defaultListenAddress,
		CtyPath:        defaultCtyPath,
		CtyURL:         defaultCtyURL,
		LogbookBackend: defaultLogbookBackend,
		LogbookPath:    defaultLogbookPath,
		Band:           defaultBand,
		Mode:           defaultMode,
		RetryInitial:   defaultRetryInitial,
		RetryMax:       defaultRetryMax,
		HTTPPort:       defaultHTTPPort,
		MQTTTopic:      defaultMQTTTopic,
		LogLevel:       defaultLogLevel,
	}
}

// Load starts from the defaults, applies the YAML file at path if path is
// not empty, then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	strs := map[string]*string{
		"FT8SPOTTER_LISTEN":              &cfg.ListenAddress,
		"FT8SPOTTER_MULTICAST_GROUP":     &cfg.MulticastGroup,
		"FT8SPOTTER_MULTICAST_INTERFACE": &cfg.MulticastInterface,
		"FT8SPOTTER_CTY_PATH":            &cfg.CtyPath,
		"FT8SPOTTER_CTY_URL":             &cfg.CtyURL,
		"FT8SPOTTER_CTY_API_KEY":         &cfg.CtyAPIKey,
		"FT8SPOTTER_LOGBOOK_BACKEND":     &cfg.LogbookBackend,
		"FT8SPOTTER_LOGBOOK_URL":         &cfg.LogbookURL,
		"FT8SPOTTER_LOGBOOK_PATH":        &cfg.LogbookPath,
		"FT8SPOTTER_MODE":                &cfg.Mode,
		"FT8SPOTTER_MQTT_BROKER":         &cfg.MQTTBroker,
		"FT8SPOTTER_MQTT_TOPIC":          &cfg.MQTTTopic,
		"FT8SPOTTER_LOG_LEVEL":           &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"FT8SPOTTER_BAND":      &cfg.Band,
		"FT8SPOTTER_HTTP_PORT": &cfg.HTTPPort,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"FT8SPOTTER_CTY_REFRESH":   &cfg.CtyRefresh,
		"FT8SPOTTER_RETRY_INITIAL": &cfg.RetryInitial,
		"FT8SPOTTER_RETRY_MAX":     &cfg.RetryMax,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("FT8SPOTTER_MDNS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FT8SPOTTER_MDNS: %w", err)
		}
		cfg.MDNS = enabled
	}

	return nil
}

// Validate reports every inconsistent setting at once.
func (cfg Config) Validate() error {
	var errs []error

	switch cfg.LogbookBackend {
	case BackendHTTP:
		if cfg.LogbookURL == "" {
			errs = append(errs, errors.New("logbook_url is required for the http backend"))
		}
	case BackendSQLite:
		if cfg.LogbookPath == "" {
			errs = append(errs, errors.New("logbook_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown logbook_backend %q", cfg.LogbookBackend))
	}

	if cfg.Band <= 0 {
		errs = append(errs, fmt.Errorf("band must be positive, got %d", cfg.Band))
	}
	if cfg.Mode == "" {
		errs = append(errs, errors.New("mode is required"))
	}
	if cfg.RetryInitial <= 0 {
		errs = append(errs, fmt.Errorf("retry_initial must be positive, got %s", cfg.RetryInitial))
	}
	if cfg.RetryMax < cfg.RetryInitial {
		errs = append(errs, fmt.Errorf("retry_max %s is below retry_initial %s", cfg.RetryMax, cfg.RetryInitial))
	}
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port must be between 0 and 65535, got %d", cfg.HTTPPort))
	}
	if cfg.CtyPath == "" {
		errs = append(errs, errors.New("cty_path is required"))
	}

	return errors.Join(errs...)
}
