package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/adapters/api"
	"github.com/mikey-austin/signage/internal/adapters/clock"
	"github.com/mikey-austin/signage/internal/adapters/config"
	"github.com/mikey-austin/signage/internal/adapters/credentials"
	"github.com/mikey-austin/signage/internal/adapters/idgen"
	"github.com/mikey-austin/signage/internal/adapters/mqtt"
	"github.com/mikey-austin/signage/internal/adapters/output"
	"github.com/mikey-austin/signage/internal/core"
	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/internal/querycache"
	"github.com/mikey-austin/signage/pkg/signage"
)

const defaultTimeout = 10 * time.Second

type app struct {
	service *core.Service
	printer output.Printer
	creds   *credentials.Store
	bus     *mqtt.Client
	config  core.Config
	logger  *zap.Logger
	quiet   bool
	json    bool
	timeout time.Duration
	stdin   io.Reader
}

func main() {
	root := &cobra.Command{
		Use:   "sg",
		Short: "Signage admin CLI",
	}

	var (
		backend   string
		broker    string
		topicBase string
		timeout   time.Duration
		quiet     bool
		jsonOut   bool
		verbose   bool
		tlsCA     string
		tlsCert   string
		tlsKey    string
		userOpt   string
		passOpt   string
	)

	root.PersistentFlags().StringVar(&backend, "backend", "", "backend base URL")
	root.PersistentFlags().StringVarP(&broker, "broker", "b", "", "MQTT broker URL for invalidation events")
	root.PersistentFlags().StringVar(&topicBase, "topic-base", signage.BaseTopic, "MQTT topic base")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "command timeout")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().StringVar(&tlsCA, "tls-ca", "", "TLS CA path")
	root.PersistentFlags().StringVar(&tlsCert, "tls-cert", "", "TLS cert path")
	root.PersistentFlags().StringVar(&tlsKey, "tls-key", "", "TLS key path")
	root.PersistentFlags().StringVar(&userOpt, "user", "", "MQTT username")
	root.PersistentFlags().StringVar(&passOpt, "pass", "", "MQTT password")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return core.WrapError(core.ExitUsage, "load config", err)
		}
		coreCfg := mergeConfig(cfg, backend, broker, topicBase, timeout)
		if coreCfg.Backend == "" {
			return core.UsageError("backend is required (set --backend or config)")
		}

		logger, err := newLogger(verbose)
		if err != nil {
			return err
		}

		creds, err := credentials.NewStore()
		if err != nil {
			return core.WrapError(core.ExitRuntime, "open credentials", err)
		}

		origin := "sg-" + idgen.Generator{}.NewID()
		var bus *mqtt.Client
		if coreCfg.Broker != "" {
			bus, err = mqtt.NewClient(mqtt.Options{
				BrokerURL: coreCfg.Broker,
				ClientID:  origin,
				Username:  userOpt,
				Password:  passOpt,
				TLSCA:     tlsCA,
				TLSCert:   tlsCert,
				TLSKey:    tlsKey,
				TopicBase: coreCfg.TopicBase,
				Timeout:   coreCfg.Timeout,
				Logger:    logger,
				Debug:     verbose,
			})
			if err != nil {
				if cmd.Name() == "watch" {
					return core.WrapError(core.ExitRuntime, "connect broker", err)
				}
				logger.Warn("event bus unavailable", zap.String("broker", coreCfg.Broker), zap.Error(err))
				bus = nil
			}
		}

		client := api.New(coreCfg.Backend, nil, creds, logger)
		service := core.NewService(client, eventBus(bus), clock.Clock{}, origin, logger)
		service.Config = coreCfg

		var printer output.Printer
		if jsonOut {
			printer = output.JSONPrinter{}
		} else {
			printer = output.HumanPrinter{Now: clock.Clock{}.Now}
		}

		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{
			service: service,
			printer: printer,
			creds:   creds,
			bus:     bus,
			config:  coreCfg,
			logger:  logger,
			quiet:   quiet,
			json:    jsonOut,
			timeout: coreCfg.Timeout,
			stdin:   os.Stdin,
		}))
		return nil
	}

	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		app := fromContext(cmd)
		if app == nil {
			return
		}
		if app.bus != nil {
			app.bus.Close()
		}
		_ = app.logger.Sync()
	}

	root.AddCommand(loginCommand())
	root.AddCommand(logoutCommand())
	root.AddCommand(mediaCommand())
	root.AddCommand(filesCommand())
	root.AddCommand(playlistCommand())
	root.AddCommand(playerCommand())
	root.AddCommand(trashCommand())
	root.AddCommand(uploadCommand())
	root.AddCommand(watchCommand())

	if err := root.Execute(); err != nil {
		os.Exit(core.ExitCode(err))
	}
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// mergeConfig applies flag values over config file values.
func mergeConfig(cfg config.Config, backend, broker, topicBase string, timeout time.Duration) core.Config {
	out := core.Config{
		Backend:       cfg.Backend,
		Timeout:       cfg.Timeout.Duration,
		Broker:        cfg.Broker,
		TopicBase:     cfg.TopicBase,
		MaxFiles:      cfg.Upload.MaxFiles,
		DefaultFolder: cfg.Defaults.Folder,
		Remember:      cfg.Defaults.Remember,
		DefaultRange:  cfg.Defaults.Range,
	}
	if backend != "" {
		out.Backend = backend
	}
	out.Backend = strings.TrimRight(out.Backend, "/")
	if broker != "" {
		out.Broker = broker
	}
	if topicBase != signage.BaseTopic || out.TopicBase == "" {
		out.TopicBase = topicBase
	}
	if timeout > 0 {
		out.Timeout = timeout
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultTimeout
	}
	return out
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopmentConfig().Build()
}

// eventBus keeps a nil client from becoming a non-nil interface.
func eventBus(bus *mqtt.Client) ports.EventBus {
	if bus == nil {
		return nil
	}
	return bus
}

// done prints a confirmation unless --quiet is set.
func (a *app) done(msg string) error {
	if a.quiet {
		return nil
	}
	return a.printer.Print(core.MessageResult{Message: msg})
}

// confirm asks for a y/N answer on stdin unless yes is set.
func (a *app) confirm(cmd *cobra.Command, prompt string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.UsageError(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

func parseIDs(name string, raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(name, r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalID(name, raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(name, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// confirmed holds id in a confirm gate, asks the user and runs fn once they
// agree. The timeout starts after the answer.
func confirmed[ID comparable](cmd *cobra.Command, a *app, id ID, prompt string, yes bool, fn func(context.Context, ID) error, msg string) error {
	var gate querycache.ConfirmGate[ID]
	gate.Open(id)
	ok, err := a.confirm(cmd, prompt, yes)
	if err != nil {
		return err
	}
	if !ok {
		gate.Cancel()
		return a.done("Canceled")
	}
	ctx, cancel := withTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := gate.Confirm(ctx, fn); err != nil {
		return err
	}
	return a.done(msg)
}
