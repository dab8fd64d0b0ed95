// Package cli implements the daybook command line on top of cobra.
// Every command talks to the local store first; the network is used
// only by sync, login and the daemon.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/daybook/internal/client/config"
	"github.com/iudanet/daybook/internal/client/data"
	"github.com/iudanet/daybook/internal/client/iocli"
	"github.com/iudanet/daybook/internal/client/storage"
	"github.com/iudanet/daybook/internal/client/sync"
	"github.com/iudanet/daybook/internal/logging"
)

// PasswordEnv - переменная окружения с паролем для неинтерактивного входа
const PasswordEnv = "DAYBOOK_PASSWORD"

//go:generate moq -out authenticator_mock.go . Authenticator

// Authenticator - вход и выход пользователя
type Authenticator interface {
	Register(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (*storage.AuthData, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*storage.AuthData, error)
}

//go:generate moq -out syncer_mock.go . Syncer

// Syncer - движок синхронизации
type Syncer interface {
	Reconcile(ctx context.Context, collection, reason string) (*sync.CycleResult, error)
	ReconcileAll(ctx context.Context, reason string) (map[string]*sync.CycleResult, error)
	Status(ctx context.Context, collection string) (sync.Status, error)
}

// Daemon - фоновая синхронизация
type Daemon interface {
	Run(ctx context.Context) error
}

// Runtime - зависимости команд, собранные после загрузки конфигурации
type Runtime struct {
	Auth   Authenticator
	Data   data.Service
	Sync   Syncer
	Daemon Daemon
	Close  func() error
}

// Loader builds the runtime for a loaded configuration
type Loader func(ctx context.Context, cfg *config.Config, io iocli.IO, logger *slog.Logger) (*Runtime, error)

// VersionInfo is set via ldflags in cmd/client
type VersionInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Cli - корневая команда и ее состояние
type Cli struct {
	io         iocli.IO
	loader     Loader
	viper      *viper.Viper
	cfg        *config.Config
	rt         *Runtime
	logger     *slog.Logger
	logCloser  io.Closer
	now        func() time.Time
	version    VersionInfo
	configFile string
}

// New creates the command line application
func New(loader Loader, console iocli.IO, version VersionInfo) *Cli {
	return &Cli{
		io:      console,
		loader:  loader,
		viper:   viper.New(),
		now:     time.Now,
		version: version,
	}
}

// annotation that marks commands which do not need the local database
const skipRuntime = "skip-runtime"

// Command builds the cobra command tree
func (c *Cli) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "daybook",
		Short: "Offline-first schedule and expense book",
		Long: `daybook keeps appointments, expenses and clients on this device and
synchronizes them with your other devices through a shared remote store.
Edits never wait for the network.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(c.io)
	root.SetErr(c.io)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default $HOME/.daybook/config.yaml)")
	flags.String("server", "", "daybook server URL")
	flags.String("db", "", "path to the local database")
	flags.String("backend", "", "remote store backend: http or couchdb")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	_ = c.viper.BindPFlag("server", flags.Lookup("server"))
	_ = c.viper.BindPFlag("db", flags.Lookup("db"))
	_ = c.viper.BindPFlag("remote.backend", flags.Lookup("backend"))
	_ = c.viper.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		c.versionCommand(),
		c.registerCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.addCommand(),
		c.editCommand(),
		c.getCommand(),
		c.listCommand(),
		c.deleteCommand(),
		c.syncCommand(),
		c.statusCommand(),
		c.daemonCommand(),
	)
	return root
}

// Execute runs the command line with args and releases the runtime afterwards
func (c *Cli) Execute(ctx context.Context, args []string) error {
	root := c.Command()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := c.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close releases the runtime and the log file
func (c *Cli) Close() error {
	var errs []error
	if c.rt != nil && c.rt.Close != nil {
		errs = append(errs, c.rt.Close())
		c.rt = nil
	}
	if c.logCloser != nil {
		errs = append(errs, c.logCloser.Close())
		c.logCloser = nil
	}
	return errors.Join(errs...)
}

func (c *Cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipRuntime] == "true" {
		return nil
	}

	cfg, err := config.Load(c.viper, c.configFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	c.logger, c.logCloser = logger, closer

	rt, err := c.loader(cmd.Context(), cfg, c.io, logger)
	if err != nil {
		return err
	}
	c.rt = rt
	return nil
}

func (c *Cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipRuntime: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			c.io.Println("daybook client")
			c.io.Printf("Version:    %s\n", c.version.Version)
			c.io.Printf("Build Date: %s\n", c.version.BuildDate)
			c.io.Printf("Git Commit: %s\n", c.version.GitCommit)
		},
	}
}
