// wicketd - a small host daemon around the wicket server library.
//
// wicketd binds the library to a YAML configuration: REST health
// endpoint, static directory and zip archive mounts, and an optional
// MQTT relay that re-broadcasts bus payloads to all connected WebSocket
// peers. It exists both as a usable daemon and as the reference for
// embedding the library in a host process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/wicket"
	"github.com/nerrad567/wicket/config"
	"github.com/nerrad567/wicket/logging"
	"github.com/nerrad567/wicket/web"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0"
var version = "dev"

// relayDisconnectMillis is the grace period for the MQTT disconnect.
const relayDisconnectMillis = 250

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual daemon logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting wicketd", "version", version)

	srv, err := buildServer(cfg, log)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	port, err := srv.Start(cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	log.Info("listening", "host", cfg.Server.Host, "port", port)

	relay, err := startRelay(cfg, srv, log)
	if err != nil {
		// The relay is an optional collaborator; the server keeps
		// running without it.
		log.Warn("mqtt relay unavailable", "error", err)
	}

	<-ctx.Done()
	log.Info("shutting down")

	if relay != nil {
		relay.Disconnect(relayDisconnectMillis)
	}
	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}

// loadConfig loads the YAML file when a path is given, defaults
// otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildServer assembles a server from the configuration: health route,
// static directory mounts, and zip archive mounts.
func buildServer(cfg *config.Config, log *logging.Logger) (*wicket.Server, error) {
	srv := wicket.New(wicket.Options{
		Logger:    log,
		Server:    cfg.Server,
		WebSocket: cfg.WebSocket,
	})

	if err := srv.Get("/health", handleHealth); err != nil {
		return nil, err
	}

	for _, m := range cfg.Static {
		if err := srv.File(m.Path, m.Directory); err != nil {
			return nil, err
		}
	}
	for _, m := range cfg.Archives {
		data, err := os.ReadFile(m.Archive)
		if err != nil {
			return nil, fmt.Errorf("reading archive %s: %w", m.Archive, err)
		}
		if err := srv.Zip(m.Path, data); err != nil {
			return nil, err
		}
	}

	return srv, nil
}

// handleHealth reports daemon liveness.
func handleHealth(_ context.Context, _ *wicket.Request) *wicket.Response {
	return web.JSON(200, map[string]any{
		"status":  "ok",
		"version": version,
	})
}

// startRelay connects to the MQTT broker and re-broadcasts every payload
// received on the configured topic as a WebSocket text frame.
func startRelay(cfg *config.Config, srv *wicket.Server, log *logging.Logger) (mqtt.Client, error) {
	if !cfg.Relay.Enabled {
		return nil, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Relay.Broker.Host, cfg.Relay.Broker.Port)).
		SetClientID(cfg.Relay.Broker.ClientID).
		SetAutoReconnect(true)
	if cfg.Relay.Broker.Username != "" {
		opts.SetUsername(cfg.Relay.Broker.Username)
		opts.SetPassword(cfg.Relay.Broker.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker: %w", token.Error())
	}

	log.Info("relaying mqtt topic to websocket peers", "topic", cfg.Relay.Topic)
	token := client.Subscribe(cfg.Relay.Topic, byte(cfg.Relay.QoS), func(_ mqtt.Client, msg mqtt.Message) {
		log.Debug("relaying message", "topic", msg.Topic(), "bytes", len(msg.Payload()))
		srv.Broadcast(string(msg.Payload()))
	})
	if token.Wait() && token.Error() != nil {
		client.Disconnect(relayDisconnectMillis)
		return nil, fmt.Errorf("subscribing to %s: %w", cfg.Relay.Topic, token.Error())
	}

	return client, nil
}
