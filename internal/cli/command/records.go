package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

// ExitNotFound is the exit code of a get for an absent record.
const ExitNotFound = 3

// TokenCommand stores and reads the auth token.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Manage the auth token",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store the auth token",
				ArgsUsage: "TOKEN",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "expires-in",
						Usage: "Token lifetime (default from policy.auth_token_ttl)",
					},
				},
				Action: func(c *cli.Context) error {
					token, err := singleArg(c, "TOKEN")
					if err != nil {
						return err
					}
					rt, err := unlocked(c)
					if err != nil {
						return err
					}
					if err := rt.svc.StoreAuthToken(c.Context, token, c.Duration("expires-in")); err != nil {
						return err
					}
					rt.log.Info("auth token stored")
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Print the auth token",
				Action: func(c *cli.Context) error {
					rt, err := unlocked(c)
					if err != nil {
						return err
					}
					token, ok, err := rt.svc.GetAuthToken(c.Context)
					if err != nil {
						return err
					}
					if !ok {
						return notFound("auth token")
					}
					return rt.print(token)
				},
			},
		},
	}
}

// SessionCommand stores and reads session data.
func SessionCommand() *cli.Command {
	return valueCommand("session", "session data", valueOps{
		store: func(rt *runtime, ctx context.Context, v any) error { return rt.svc.StoreSessionData(ctx, v) },
		get:   func(rt *runtime, ctx context.Context, dst any) (bool, error) { return rt.svc.GetSessionData(ctx, dst) },
	})
}

// PrefsCommand stores and reads user preferences.
func PrefsCommand() *cli.Command {
	return valueCommand("prefs", "user preferences", valueOps{
		store: func(rt *runtime, ctx context.Context, v any) error { return rt.svc.StoreUserPreferences(ctx, v) },
		get:   func(rt *runtime, ctx context.Context, dst any) (bool, error) { return rt.svc.GetUserPreferences(ctx, dst) },
	})
}

// SettingsCommand stores and reads sensitive settings.
func SettingsCommand() *cli.Command {
	return valueCommand("settings", "sensitive settings", valueOps{
		store: func(rt *runtime, ctx context.Context, v any) error { return rt.svc.StoreSensitiveSettings(ctx, v) },
		get:   func(rt *runtime, ctx context.Context, dst any) (bool, error) { return rt.svc.GetSensitiveSettings(ctx, dst) },
	})
}

// QueryCommand stores and reads cached query results.
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Manage cached query results",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Cache a query result",
				ArgsUsage: "ID VALUE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: query set ID VALUE", ExitUsage)
					}
					rt, err := unlocked(c)
					if err != nil {
						return err
					}
					id := c.Args().Get(0)
					if err := rt.svc.StoreCachedQuery(c.Context, id, parseValue(c.Args().Get(1))); err != nil {
						return err
					}
					rt.log.Info("query result cached", "query_id", id)
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "Print a cached query result",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := singleArg(c, "ID")
					if err != nil {
						return err
					}
					rt, err := unlocked(c)
					if err != nil {
						return err
					}
					var v any
					ok, err := rt.svc.GetCachedQuery(c.Context, id, &v)
					if err != nil {
						return err
					}
					if !ok {
						return notFound("cached query " + id)
					}
					return rt.print(v)
				},
			},
		},
	}
}

// LogoutCommand removes the auth token and session data.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Remove the auth token and session data",
		Action: func(c *cli.Context) error {
			rt, err := unlocked(c)
			if err != nil {
				return err
			}
			return rt.svc.Logout(c.Context)
		},
	}
}

type valueOps struct {
	store func(rt *runtime, ctx context.Context, v any) error
	get   func(rt *runtime, ctx context.Context, dst any) (bool, error)
}

func valueCommand(name, what string, ops valueOps) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: "Manage " + what,
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store " + what + " (JSON or a plain string)",
				ArgsUsage: "VALUE",
				Action: func(c *cli.Context) error {
					raw, err := singleArg(c, "VALUE")
					if err != nil {
						return err
					}
					rt, err := unlocked(c)
					if err != nil {
						return err
					}
					if err := ops.store(rt, c.Context, parseValue(raw)); err != nil {
						return err
					}
					rt.log.Info(what + " stored")
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Print " + what,
				Action: func(c *cli.Context) error {
					rt, err := unlocked(c)
					if err != nil {
						return err
					}
					var v any
					ok, err := ops.get(rt, c.Context, &v)
					if err != nil {
						return err
					}
					if !ok {
						return notFound(what)
					}
					return rt.print(v)
				},
			},
		},
	}
}

// unlocked returns the runtime with the store opened and the key set.
func unlocked(c *cli.Context) (*runtime, error) {
	rt, err := runtimeFrom(c)
	if err != nil {
		return nil, err
	}
	if err := rt.unlock(c.Context, openOptions{}); err != nil {
		return nil, err
	}
	return rt, nil
}

// parseValue keeps valid JSON as is and stores anything else as a string.
func parseValue(s string) any {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return s
}

func singleArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("expected exactly one argument: %s", name), ExitUsage)
	}
	return c.Args().First(), nil
}

func notFound(what string) error {
	return cli.Exit(what+": not found", ExitNotFound)
}
