// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command lcm-codec inspects, converts and relays encoded messages.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luxfi/lcm"
	"github.com/luxfi/lcm/lcmtypes"
)

// app holds the state shared by every subcommand.
type app struct {
	schemaPath string
	logLevel   string
	logFormat  string

	log zerolog.Logger
	reg *lcm.Registry
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "lcm-codec",
		Short: "Encode, decode and relay fixed-schema binary messages",
		Long: `lcm-codec works with messages in the compact binary layout: an 8-byte
type fingerprint followed by big-endian fields in declaration order.

Types come from a YAML schema file (--schema) or, by default, the built-in
robot command and status types.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.schemaPath, "schema", "", "YAML schema file (default: built-in types)")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "console", "log format (console, json)")

	root.AddCommand(
		a.fingerprintCmd(),
		a.decodeCmd(),
		a.encodeCmd(),
		a.relayCmd(),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	level, err := zerolog.ParseLevel(a.logLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	var w io.Writer
	switch a.logFormat {
	case "console":
		w = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	case "json":
		w = stderr
	default:
		return errors.Errorf("unknown log format %q", a.logFormat)
	}
	a.log = zerolog.New(w).Level(level).With().Timestamp().Logger()

	if a.schemaPath == "" {
		a.reg = lcmtypes.Registry
		return nil
	}
	schemas, err := lcm.LoadSchemaFile(a.schemaPath)
	if err != nil {
		return err
	}
	a.reg, err = lcm.NewRegistry(schemas, lcm.WithLogger(a.log))
	if err != nil {
		return errors.WithMessagef(err, "schema file %s", a.schemaPath)
	}
	a.log.Debug().Str("path", a.schemaPath).Int("types", len(schemas)).Msg("loaded schemas")
	return nil
}

// lookup resolves the named type or, when name is empty, the type whose
// fingerprint heads data.
func (a *app) lookup(name string, data []byte) (*lcm.Type, error) {
	if name != "" {
		return a.reg.Type(name)
	}
	fp, err := lcm.PeekFingerprint(data)
	if err != nil {
		return nil, err
	}
	for _, t := range a.reg.Types() {
		if t.Fingerprint() == fp {
			return t, nil
		}
	}
	return nil, errors.WithMessagef(lcm.ErrUnknownType, "no type has fingerprint 0x%016x", fp)
}

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	return data, nil
}
