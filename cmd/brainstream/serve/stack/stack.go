// Package stack resolves viper settings into the components the serve
// commands run: relay config, frame tap, archive, dashboard session and the
// API server config.
package stack

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/brainstream/api"
	"github.com/papercomputeco/brainstream/pkg/dashboard"
	"github.com/papercomputeco/brainstream/pkg/dotdir"
	"github.com/papercomputeco/brainstream/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/brainstream/pkg/eventstream/utils"
	"github.com/papercomputeco/brainstream/pkg/logger"
	"github.com/papercomputeco/brainstream/pkg/storage"
	storageutils "github.com/papercomputeco/brainstream/pkg/storage/utils"
	"github.com/papercomputeco/brainstream/pkg/subscriber"
	"github.com/papercomputeco/brainstream/relay"
)

// RelayConfig maps relay.* keys onto relay.Config. A zero max_lifetime or
// max_opens_per_second in config means "off", which relay.Config spells as a
// negative value.
func RelayConfig(v *viper.Viper) relay.Config {
	cfg := relay.Config{
		ListenAddr:        v.GetString("relay.listen"),
		UpstreamURL:       v.GetString("relay.upstream"),
		UpstreamPath:      v.GetString("relay.upstream_path"),
		StreamPath:        v.GetString("relay.stream_path"),
		DemoPath:          v.GetString("relay.demo_path"),
		MaxLifetime:       v.GetDuration("relay.max_lifetime"),
		KeepAliveInterval: v.GetDuration("relay.keepalive_interval"),
		DemoInterval:      v.GetDuration("relay.demo_interval"),
		StaleAfter:        v.GetDuration("store.stale_after"),
		ProxyKeepAlive:    v.GetBool("relay.proxy_keepalive"),
		MaxOpensPerSecond: v.GetFloat64("relay.max_opens_per_second"),
	}
	if cfg.MaxLifetime == 0 {
		cfg.MaxLifetime = -1
	}
	if cfg.MaxOpensPerSecond == 0 {
		cfg.MaxOpensPerSecond = -1
	}
	return cfg
}

// Archive opens the frame archive named by tap.archive. A sqlite archive
// without a target lives in the resolved .brainstream/ directory.
func Archive(ctx context.Context, v *viper.Viper, configDir string, log *slog.Logger) (storage.Driver, error) {
	provider := v.GetString("tap.archive")
	target := v.GetString("tap.archive_target")

	if provider == storageutils.ProviderSQLite && target == "" {
		path, err := dotdir.NewManager().ArchivePath(configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving archive path: %w", err)
		}
		target = path
	}

	return storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		ProviderType: provider,
		Target:       target,
		Logger:       log,
	})
}

// Publisher builds the kafka frame publisher, or returns nil when no brokers
// are configured.
func Publisher(v *viper.Viper, log *slog.Logger) (eventstream.Publisher, error) {
	brokers := v.GetString("tap.kafka_brokers")
	if len(eventstreamutils.SplitBrokers(brokers)) == 0 {
		log.Debug("kafka frame tap disabled")
		return nil, nil
	}

	pub, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: eventstreamutils.ProviderKafka,
		Brokers:      brokers,
		Topic:        v.GetString("tap.kafka_topic"),
		WriteTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	log.Info("kafka frame tap enabled",
		"brokers", brokers,
		"topic", v.GetString("tap.kafka_topic"),
	)
	return pub, nil
}

// LocalURL is the loopback http URL of path on a listener bound to addr.
// Wildcard hosts map to 127.0.0.1.
func LocalURL(addr net.Addr, path string) string {
	host := "127.0.0.1"
	port := 0
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
		if tcp.IP != nil && !tcp.IP.IsUnspecified() {
			host = tcp.IP.String()
		}
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path
}

// Session builds a dashboard session against relayURL, or client.relay_target
// when relayURL is empty. Long-running callers pass retryForever so a brain
// restart never ends the session.
func Session(v *viper.Viper, log *slog.Logger, relayURL string, retryForever bool) (*dashboard.Session, error) {
	if relayURL == "" {
		relayURL = v.GetString("client.relay_target")
	}

	backoff := subscriber.DefaultBackoff()
	if retryForever {
		backoff.MaxRetries = 0
	}

	return dashboard.NewSession(dashboard.Config{
		RelayURL:   relayURL,
		BrainURL:   v.GetString("client.brain_target"),
		Capacity:   v.GetInt("store.capacity"),
		StaleAfter: v.GetDuration("store.stale_after"),
		Backoff:    backoff,
	}, dashboard.WithLogger(log))
}

// APIConfig maps api.* and manifest.* keys onto api.Config. Without an explicit
// manifest path the one in the resolved .brainstream/ directory is served, if
// it exists.
func APIConfig(v *viper.Viper, configDir string) (api.Config, error) {
	cfg := api.Config{
		ListenAddr:   v.GetString("api.listen"),
		ManifestPath: v.GetString("manifest.path"),
	}
	if cfg.ManifestPath == "" {
		path, err := dotdir.NewManager().ManifestPath(configDir)
		if err != nil {
			return cfg, fmt.Errorf("resolving manifest path: %w", err)
		}
		cfg.ManifestPath = path
	}
	return cfg, nil
}

// Logger returns the service logger. With a log file, records also go to the
// file as JSON. The returned func closes the file.
func Logger(debug bool, logFile string) (*slog.Logger, func(), error) {
	stdout := logger.NewLogger(debug)
	if logFile == "" {
		return stdout, func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(stdout, file), func() { _ = f.Close() }, nil
}
