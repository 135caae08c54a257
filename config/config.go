package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for wicketd.
// Embedders of the library typically use only ServerConfig and
// WebSocketConfig and build them directly.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Static    []StaticMount   `yaml:"static"`
	Archives  []ArchiveMount  `yaml:"archives"`
	Relay     RelayConfig     `yaml:"relay"`
}

// ServerConfig contains listener and transport settings.
type ServerConfig struct {
	// Host is the interface to bind. Empty binds all interfaces.
	Host string `yaml:"host"`

	// Port is the TCP port to bind. 0 selects an ephemeral port; the
	// actual port is returned by Start.
	Port int `yaml:"port"`

	// NativeTransport prefers OS-optimised event notification where
	// available. The Go runtime netpoller already uses epoll/kqueue, so
	// this is informational and logged at startup.
	NativeTransport bool `yaml:"native_transport"`

	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig contains per-connection timeout settings, in seconds.
// A zero value disables the corresponding deadline.
type TimeoutConfig struct {
	Read     int `yaml:"read"`
	Write    int `yaml:"write"`
	Idle     int `yaml:"idle"`
	Shutdown int `yaml:"shutdown"`
}

// WebSocketConfig contains WebSocket peer settings.
type WebSocketConfig struct {
	// SendBuffer is the per-peer outbound frame buffer size.
	SendBuffer int `yaml:"send_buffer"`

	// MaxMessageSize is the largest inbound frame accepted, in bytes.
	MaxMessageSize int `yaml:"max_message_size"`

	// ReadBuffer and WriteBuffer size the upgrade I/O buffers, in bytes.
	ReadBuffer  int `yaml:"read_buffer"`
	WriteBuffer int `yaml:"write_buffer"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StaticMount maps a route prefix to a directory on disk.
type StaticMount struct {
	Path      string `yaml:"path"`
	Directory string `yaml:"directory"`
}

// ArchiveMount maps a route prefix to a zip archive on disk. The archive
// is loaded into memory once at startup.
type ArchiveMount struct {
	Path    string `yaml:"path"`
	Archive string `yaml:"archive"`
}

// RelayConfig contains the optional MQTT-to-WebSocket relay settings used
// by wicketd. Payloads received on Topic are re-broadcast as text frames
// to all connected WebSocket peers.
type RelayConfig struct {
	Enabled bool              `yaml:"enabled"`
	Broker  RelayBrokerConfig `yaml:"broker"`
	Topic   string            `yaml:"topic"`
	QoS     int               `yaml:"qos"`
}

// RelayBrokerConfig contains MQTT broker connection details for the relay.
type RelayBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// Environment variables follow the pattern: WICKET_SECTION_KEY
// For example: WICKET_SERVER_HOST, WICKET_LOG_LEVEL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults and no mounts.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			NativeTransport: true,
			Timeouts: TimeoutConfig{
				Read:     30,
				Write:    30,
				Idle:     60,
				Shutdown: 10,
			},
		},
		WebSocket: WebSocketConfig{
			SendBuffer:     256,
			MaxMessageSize: 8192,
			ReadBuffer:     1024,
			WriteBuffer:    1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Relay: RelayConfig{
			Broker: RelayBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "wicketd",
			},
			QoS: 1,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables follow the pattern: WICKET_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("WICKET_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("WICKET_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Logging
	if v := os.Getenv("WICKET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Relay
	if v := os.Getenv("WICKET_RELAY_BROKER_HOST"); v != "" {
		cfg.Relay.Broker.Host = v
	}
	if v := os.Getenv("WICKET_RELAY_USERNAME"); v != "" {
		cfg.Relay.Broker.Username = v
	}
	if v := os.Getenv("WICKET_RELAY_PASSWORD"); v != "" {
		cfg.Relay.Broker.Password = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}

	for i, m := range c.Static {
		if m.Path == "" || m.Directory == "" {
			errs = append(errs, fmt.Sprintf("static[%d] requires both path and directory", i))
		}
	}
	for i, m := range c.Archives {
		if m.Path == "" || m.Archive == "" {
			errs = append(errs, fmt.Sprintf("archives[%d] requires both path and archive", i))
		}
	}

	if c.Relay.Enabled {
		if c.Relay.Topic == "" {
			errs = append(errs, "relay.topic is required when the relay is enabled")
		}
		if c.Relay.QoS < 0 || c.Relay.QoS > 2 {
			errs = append(errs, "relay.qos must be 0, 1, or 2")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Normalise fills zero-valued WebSocket settings with defaults. Embedders
// that construct the structs directly call this through the server; YAML
// loading applies the same defaults up front.
func (w *WebSocketConfig) Normalise() {
	def := defaultConfig().WebSocket
	if w.SendBuffer <= 0 {
		w.SendBuffer = def.SendBuffer
	}
	if w.MaxMessageSize <= 0 {
		w.MaxMessageSize = def.MaxMessageSize
	}
	if w.ReadBuffer <= 0 {
		w.ReadBuffer = def.ReadBuffer
	}
	if w.WriteBuffer <= 0 {
		w.WriteBuffer = def.WriteBuffer
	}
}

// ReadTimeout returns the per-request read deadline as a Duration.
func (s *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.Timeouts.Read) * time.Second
}

// WriteTimeout returns the per-response write deadline as a Duration.
func (s *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.Timeouts.Write) * time.Second
}

// IdleTimeout returns the keep-alive idle deadline as a Duration.
func (s *ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.Timeouts.Idle) * time.Second
}

// ShutdownTimeout returns the graceful shutdown limit as a Duration.
func (s *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.Timeouts.Shutdown) * time.Second
}
