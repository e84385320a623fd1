package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/adapters/api"
	"github.com/mikey-austin/signage/internal/adapters/credentials"
	"github.com/mikey-austin/signage/internal/adapters/idgen"
	"github.com/mikey-austin/signage/internal/adapters/mqtt"
	embeddedmqtt "github.com/mikey-austin/signage/internal/modules/embedded_mqtt"
	feedimport "github.com/mikey-austin/signage/internal/modules/feed_import"
	"github.com/mikey-austin/signage/internal/sgd"
	"github.com/mikey-austin/signage/pkg/signage"
)

func main() {
	var (
		configPath  string
		broker      string
		backend     string
		topicBase   string
		logLevel    string
		logFormat   string
		logOutput   string
		logSource   bool
		logUTC      bool
		printConfig bool
		dryRun      bool
		moduleOnly  string
	)

	defaultConfig, err := sgd.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&configPath, "config", defaultConfig, "config file path")
	flag.StringVar(&broker, "broker", "", "MQTT broker URL override")
	flag.StringVar(&backend, "backend", "", "backend base URL override")
	flag.StringVar(&topicBase, "topic-base", "", "topic base override")
	flag.StringVar(&logLevel, "log-level", "", "log level override")
	flag.StringVar(&logFormat, "log-format", "", "log format override (console|json)")
	flag.StringVar(&logOutput, "log-output", "", "log output override (stdout|stderr)")
	flag.BoolVar(&logSource, "log-source", false, "include source file in logs")
	flag.BoolVar(&logUTC, "log-utc", false, "use UTC timestamps in logs")
	flag.StringVar(&moduleOnly, "module", "", "limit to a single module")
	flag.BoolVar(&printConfig, "print-config", false, "print resolved config and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "validate config and exit")
	flag.Parse()

	cfg, err := sgd.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyOverrides(&cfg, overrides{
		broker:    broker,
		backend:   backend,
		topicBase: topicBase,
		logLevel:  logLevel,
		logFormat: logFormat,
		logOutput: logOutput,
		logSource: logSource,
		logUTC:    logUTC,
	})

	if printConfig {
		if err := printResolvedConfig(os.Stdout, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if dryRun {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger, err := sgd.NewLogger(sgd.LogConfig{
		Level:     cfg.Server.LogLevel,
		Format:    cfg.Server.LogFormat,
		Output:    cfg.Server.LogOutput,
		AddSource: cfg.Server.LogSource,
		UTC:       cfg.Server.LogUTC,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embeddedURL := embeddedBrokerURL(cfg)
	skipEmbedded := false

	if moduleOnly != "embedded_mqtt" && cfg.Modules.EmbeddedMQTT.Enabled && cfg.Server.Broker == embeddedURL {
		if err := startEmbeddedBroker(ctx, cfg, logger, cancel); err != nil {
			logger.Error("embedded mqtt failed", zap.Error(err))
			os.Exit(1)
		}
		skipEmbedded = true
	}

	logger.Info("sgd starting",
		zap.String("broker", cfg.Server.Broker),
		zap.String("backend", cfg.Server.Backend),
		zap.String("topic_base", cfg.Server.TopicBase),
		zap.String("log_level", cfg.Server.LogLevel),
		zap.String("log_format", cfg.Server.LogFormat),
		zap.Strings("modules", enabledModules(cfg)),
	)

	var client *mqtt.Client
	if moduleOnly != "embedded_mqtt" && cfg.Server.Broker != "" {
		client, err = mqtt.NewClient(mqtt.Options{
			BrokerURL: cfg.Server.Broker,
			ClientID:  "sgd-" + idgen.Generator{}.NewID(),
			Username:  cfg.Server.Auth.User,
			Password:  cfg.Server.Auth.Pass,
			TLSCA:     cfg.Server.TLS.CA,
			TLSCert:   cfg.Server.TLS.Cert,
			TLSKey:    cfg.Server.TLS.Key,
			TopicBase: cfg.Server.TopicBase,
			Timeout:   2 * time.Second,
			Logger:    logger.With(zap.String("component", "mqtt")),
		})
		if err != nil {
			logger.Error("mqtt connection failed", zap.Error(err))
			os.Exit(1)
		}
		defer client.Close()
	} else if moduleOnly != "embedded_mqtt" {
		logger.Warn("no broker configured; invalidation events are not published")
	}

	modules, err := buildModules(cfg, client, logger, moduleOnly, skipEmbedded)
	if err != nil {
		logger.Error("failed to build modules", zap.Error(err))
		os.Exit(1)
	}

	supervisor := sgd.Supervisor{Logger: logger}
	if err := supervisor.Run(ctx, modules); err != nil {
		logger.Error("supervisor error", zap.Error(err))
		os.Exit(1)
	}
}

type overrides struct {
	broker    string
	backend   string
	topicBase string
	logLevel  string
	logFormat string
	logOutput string
	logSource bool
	logUTC    bool
}

func applyOverrides(cfg *sgd.Config, o overrides) {
	if o.broker != "" {
		cfg.Server.Broker = o.broker
	}
	if o.backend != "" {
		cfg.Server.Backend = o.backend
	}
	if o.topicBase != "" {
		cfg.Server.TopicBase = o.topicBase
	}
	if o.logLevel != "" {
		cfg.Server.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Server.LogFormat = o.logFormat
	}
	if o.logOutput != "" {
		cfg.Server.LogOutput = o.logOutput
	}
	if o.logSource {
		cfg.Server.LogSource = true
	}
	if o.logUTC {
		cfg.Server.LogUTC = true
	}
	if cfg.Server.TopicBase == "" {
		cfg.Server.TopicBase = signage.BaseTopic
	}
	if cfg.Server.Broker == "" && cfg.Modules.EmbeddedMQTT.Enabled {
		cfg.Server.Broker = embeddedBrokerURL(*cfg)
	}
}

func buildModules(cfg sgd.Config, client *mqtt.Client, logger *zap.Logger, moduleOnly string, skipEmbedded bool) ([]sgd.ModuleRunner, error) {
	modules := []sgd.ModuleRunner{}
	if cfg.Modules.EmbeddedMQTT.Enabled && !skipEmbedded {
		if moduleOnly == "" || moduleOnly == "embedded_mqtt" {
			mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedConfig(cfg))
			if err != nil {
				return nil, err
			}
			modules = append(modules, sgd.ModuleRunner{
				Name: "embedded_mqtt",
				Run:  mod.Run,
			})
		}
	}

	if cfg.Modules.FeedImport.Enabled {
		if moduleOnly == "" || moduleOnly == "feed_import" {
			mod, err := newFeedImport(cfg, client, logger.With(zap.String("module", "feed_import")))
			if err != nil {
				return nil, err
			}
			modules = append(modules, sgd.ModuleRunner{
				Name: "feed_import",
				Run:  mod.Run,
			})
		}
	}

	if moduleOnly != "" && len(modules) == 0 {
		return nil, errors.New("no modules enabled")
	}
	return modules, nil
}

func newFeedImport(cfg sgd.Config, client *mqtt.Client, logger *zap.Logger) (*feedimport.Module, error) {
	fi := cfg.Modules.FeedImport

	credsPath := fi.CredentialsPath
	if credsPath == "" {
		dir, err := sgd.DefaultStateDir()
		if err != nil {
			return nil, err
		}
		credsPath = filepath.Join(dir, "credentials.json")
	}
	creds := credentials.NewStoreAt(credsPath, filepath.Join(filepath.Dir(credsPath), "session.json"))
	backend := api.New(cfg.Server.Backend, nil, creds, logger)

	feeds := make([]feedimport.Feed, 0, len(fi.Feeds))
	for _, f := range fi.Feeds {
		feeds = append(feeds, feedimport.Feed{URL: f.URL, FolderID: f.Folder})
	}

	var bus feedimport.Publisher
	if client != nil {
		bus = client
	}
	mod, err := feedimport.NewModule(logger, backend, bus, nil, nil, feedimport.Config{
		Feeds:        feeds,
		Interval:     fi.Interval.Duration,
		Timeout:      fi.Timeout.Duration,
		MaxBytes:     fi.MaxBytes,
		SkipExisting: fi.SkipExisting,
	})
	if err != nil {
		return nil, err
	}
	if fi.Email != "" {
		mod.Login = func(ctx context.Context) error {
			tokens, err := backend.Login(ctx, signage.LoginBody{Email: fi.Email, Password: fi.Password})
			if err != nil {
				return err
			}
			return creds.Set(tokens, true)
		}
	}
	return mod, nil
}

func enabledModules(cfg sgd.Config) []string {
	out := []string{}
	if cfg.Modules.EmbeddedMQTT.Enabled {
		out = append(out, "embedded_mqtt")
	}
	if cfg.Modules.FeedImport.Enabled {
		out = append(out, "feed_import")
	}
	return out
}

// printResolvedConfig writes cfg as TOML with secrets masked.
func printResolvedConfig(w io.Writer, cfg sgd.Config) error {
	mask := func(s *string) {
		if *s != "" {
			*s = "********"
		}
	}
	mask(&cfg.Server.Auth.Pass)
	mask(&cfg.Modules.EmbeddedMQTT.Password)
	mask(&cfg.Modules.FeedImport.Password)
	return toml.NewEncoder(w).Encode(cfg)
}

func embeddedConfig(cfg sgd.Config) embeddedmqtt.Config {
	return embeddedmqtt.Config{
		Listen:         cfg.Modules.EmbeddedMQTT.Listen,
		AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
		Username:       cfg.Modules.EmbeddedMQTT.Username,
		Password:       cfg.Modules.EmbeddedMQTT.Password,
		TLSCA:          cfg.Modules.EmbeddedMQTT.TLSCA,
		TLSCert:        cfg.Modules.EmbeddedMQTT.TLSCert,
		TLSKey:         cfg.Modules.EmbeddedMQTT.TLSKey,
		TopicBase:      cfg.Server.TopicBase,
	}
}

func embeddedListen(cfg sgd.Config) string {
	if cfg.Modules.EmbeddedMQTT.Listen == "" {
		return "127.0.0.1:1883"
	}
	return cfg.Modules.EmbeddedMQTT.Listen
}

func embeddedBrokerURL(cfg sgd.Config) string {
	e := cfg.Modules.EmbeddedMQTT
	tlsEnabled := e.TLSCert != "" || e.TLSKey != "" || e.TLSCA != ""
	return embeddedmqtt.BrokerURL(embeddedListen(cfg), tlsEnabled)
}

func startEmbeddedBroker(ctx context.Context, cfg sgd.Config, logger *zap.Logger, cancel context.CancelFunc) error {
	mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedConfig(cfg))
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- mod.Run(ctx)
	}()
	go func() {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("embedded mqtt exited", zap.Error(err))
			cancel()
		}
	}()
	return waitForListen(embeddedListen(cfg), 3*time.Second)
}

func waitForListen(listen string, timeout time.Duration) error {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("embedded mqtt not ready at %s", addr)
}
