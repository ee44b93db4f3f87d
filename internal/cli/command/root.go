package command

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokvault-go/internal/cli/output"
	"github.com/yndnr/tokvault-go/internal/config"
	"github.com/yndnr/tokvault-go/internal/infra/buildinfo"
	"github.com/yndnr/tokvault-go/internal/infra/confloader"
	"github.com/yndnr/tokvault-go/internal/telemetry/logger"
)

const runtimeKey = "tokvault.runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "tokvault",
		Usage:   "Encrypted local storage for tokens, sessions and settings",
		Version: buildinfo.Get().Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenCommand(),
			SessionCommand(),
			PrefsCommand(),
			QueryCommand(),
			SettingsCommand(),
			LogoutCommand(),
			KeysCommand(),
			StatsCommand(),
			SweepCommand(),
			ClearCommand(),
			BackupCommand(),
			RestoreCommand(),
			RunCommand(),
			VersionCommand(),
		},
		Before: before,
		After:  after,

		// main maps errors to exit codes.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"TOKVAULT_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Directory of the badger store",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Storage engine: badger or memory",
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Usage:   "Passphrase the master key is derived from",
			EnvVars: []string{"TOKVAULT_PASSPHRASE"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// before loads configuration and sets up logging for every command.
func before(c *cli.Context) error {
	cfg, loader, err := loadConfig(c)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	ctx := logger.WithLogger(c.Context, log)
	ctx = logger.WithOperationID(ctx, ulid.Make().String())
	c.Context = ctx

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[runtimeKey] = &runtime{
		cfg:        cfg,
		cfgPath:    c.String("config"),
		loader:     loader,
		passphrase: c.String("passphrase"),
		log:        log,
		formatter:  output.NewFormatter(format),
		stdout:     c.App.Writer,
		stderr:     c.App.ErrWriter,
	}
	return nil
}

// after releases whatever the command opened.
func after(c *cli.Context) error {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, runtimeKey)

	err := rt.close()
	logger.L(c.Context).Debug("command finished", "command", c.Args().First())
	return err
}

func loadConfig(c *cli.Context) (*config.Config, *confloader.Loader, error) {
	overrides := map[string]any{}
	if c.IsSet("data-dir") {
		overrides["storage.data_dir"] = c.String("data-dir")
	}
	if c.IsSet("engine") {
		overrides["storage.engine"] = c.String("engine")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}

	cfg := config.Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(c.String("config")),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loader, nil
}

func runtimeFrom(c *cli.Context) (*runtime, error) {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil, errors.New("command runtime not initialized")
	}
	return rt, nil
}
