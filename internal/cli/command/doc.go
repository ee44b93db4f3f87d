// Package command defines the tokvault command-line interface.
//
// It uses urfave/cli/v2. Every invocation loads configuration, opens the
// configured dictionary, and closes it again when the command returns;
// "run" keeps the store open with the background sweeper until the
// process is signalled.
package command
