// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/lcm"
)

// cborMode renders decoded values with core deterministic encoding.
var cborMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("lcm-codec: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

func (a *app) decodeCmd() *cobra.Command {
	var (
		typeName string
		output   string
		hexInput bool
	)

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a message and print its fields",
		Long: `Decode one encoded message read from file or stdin. Without --type the
type is chosen by the fingerprint at the front of the message.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if hexInput {
				data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
				if err != nil {
					return errors.Wrap(err, "hex input")
				}
			}

			t, err := a.lookup(typeName, data)
			if err != nil {
				return err
			}
			v, n, err := t.DecodeFrom(data, 0, len(data))
			if err != nil {
				return err
			}
			if n < len(data) {
				a.log.Warn().Int("trailing", len(data)-n).Str("type", t.Name()).Msg("ignoring bytes past the end of the message")
			}

			out, err := render(v, output)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "message type (default: detect by fingerprint)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml, cbor)")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "input is hex text")

	return cmd
}

func render(v lcm.Value, format string) ([]byte, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "render json")
		}
		return append(out, '\n'), nil
	case "yaml":
		out, err := yaml.Marshal(v)
		return out, errors.Wrap(err, "render yaml")
	case "cbor":
		out, err := cborMode.Marshal(v)
		return out, errors.Wrap(err, "render cbor")
	}
	return nil, errors.Errorf("unknown output format %q", format)
}
