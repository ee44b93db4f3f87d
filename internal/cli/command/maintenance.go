package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokvault-go/internal/cli/output"
	"github.com/yndnr/tokvault-go/internal/infra/buildinfo"
)

// KeysCommand lists the names of live records.
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "List stored record names",
		Action: func(c *cli.Context) error {
			rt, err := unlocked(c)
			if err != nil {
				return err
			}
			keys, err := rt.svc.Keys(c.Context)
			if err != nil {
				return err
			}
			return rt.print(keys)
		},
	}
}

// StatsCommand prints storage statistics.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show storage statistics",
		Action: func(c *cli.Context) error {
			rt, err := unlocked(c)
			if err != nil {
				return err
			}
			stats, err := rt.svc.GetStorageStats(c.Context)
			if err != nil {
				return err
			}
			return rt.print(stats)
		},
	}
}

type countResult struct {
	Removed int `json:"removed" yaml:"removed"`
}

// SweepCommand removes expired records now.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove expired records",
		Action: func(c *cli.Context) error {
			rt, err := unlocked(c)
			if err != nil {
				return err
			}
			n, err := rt.svc.SweepExpired(c.Context)
			if err != nil {
				return err
			}
			return rt.print(countResult{Removed: n})
		},
	}
}

// ClearCommand removes every record, and with --purge the salt as well.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every stored record",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "purge",
				Usage: "Also remove the salt; the passphrase no longer derives the old key",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Do not ask for confirmation",
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			purge := c.Bool("purge")

			if !c.Bool("force") {
				prompt := "Remove every stored record?"
				if purge {
					prompt = "Remove every stored record and the salt?"
				}
				ok, err := confirm(rt, prompt)
				if err != nil {
					return err
				}
				if !ok {
					return cli.Exit("aborted", ExitFailure)
				}
			}

			if err := rt.unlock(c.Context, openOptions{}); err != nil {
				return err
			}
			var n int
			if purge {
				n, err = rt.svc.Purge(c.Context)
			} else {
				n, err = rt.svc.ClearAll(c.Context)
			}
			if err != nil {
				return err
			}
			return rt.print(countResult{Removed: n})
		},
	}
}

// confirm asks a yes/no question on an interactive terminal. Without one,
// --force is required.
func confirm(rt *runtime, prompt string) (bool, error) {
	if !isTerminal(os.Stdin) {
		return false, cli.Exit("refusing to clear without a terminal; pass --force", ExitUsage)
	}
	fmt.Fprintf(rt.stderr, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// BackupCommand writes a full backup of the badger store to a file.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:      "backup",
		Usage:     "Write a backup of the store",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			path, err := singleArg(c, "FILE")
			if err != nil {
				return err
			}
			rt, err := badgerRuntime(c)
			if err != nil {
				return err
			}

			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			defer f.Close()

			var (
				dst io.Writer = f
				bar *output.ProgressBar
			)
			if isTerminal(os.Stderr) {
				bar = output.NewProgressBar(rt.stderr, "backup", 0)
				dst = bar.Writer(f)
			}

			version, err := rt.badger.Backup(c.Context, dst)
			if bar != nil {
				bar.Finish()
			}
			if err != nil {
				return err
			}
			if err := f.Sync(); err != nil {
				return fmt.Errorf("sync backup file: %w", err)
			}
			rt.log.Info("backup written", "path", path, "version", version)
			return nil
		},
	}
}

// RestoreCommand replaces the badger store contents with a backup.
func RestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Replace the store contents with a backup",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			path, err := singleArg(c, "FILE")
			if err != nil {
				return err
			}
			rt, err := badgerRuntime(c)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open backup file: %w", err)
			}
			defer f.Close()

			var (
				src io.Reader = f
				bar *output.ProgressBar
			)
			if isTerminal(os.Stderr) {
				var total int64
				if info, err := f.Stat(); err == nil {
					total = info.Size()
				}
				bar = output.NewProgressBar(rt.stderr, "restore", total)
				src = bar.Reader(f)
			}

			err = rt.badger.Restore(c.Context, src)
			if bar != nil {
				bar.Finish()
			}
			if err != nil {
				return err
			}
			rt.log.Info("backup restored", "path", path)
			return nil
		},
	}
}

// badgerRuntime opens the store without unlocking it and requires the
// badger engine.
func badgerRuntime(c *cli.Context) (*runtime, error) {
	rt, err := runtimeFrom(c)
	if err != nil {
		return nil, err
	}
	if err := rt.open(openOptions{}); err != nil {
		return nil, err
	}
	if rt.badger == nil {
		return nil, cli.Exit(c.Command.Name+" requires the badger engine", ExitUsage)
	}
	return rt, nil
}

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			return rt.print(buildinfo.Get())
		},
	}
}
