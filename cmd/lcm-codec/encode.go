// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

func (a *app) encodeCmd() *cobra.Command {
	var (
		typeName  string
		input     string
		hexOutput bool
	)

	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a message from its fields",
		Long: `Encode one message whose fields are given as a JSON (comments and trailing
commas allowed) or YAML object. Count fields may be omitted; they are taken
from the arrays they govern.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.reg.Type(typeName)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			fields, err := parseFields(data, input)
			if err != nil {
				return err
			}

			v, err := t.Coerce(fields)
			if err != nil {
				return err
			}
			out, err := t.Encode(v)
			if err != nil {
				return err
			}
			a.log.Debug().Str("type", t.Name()).Int("bytes", len(out)).Msg("encoded message")

			if hexOutput {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(out))
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "message type")
	cmd.Flags().StringVarP(&input, "input", "i", "json", "input format (json, yaml)")
	cmd.Flags().BoolVar(&hexOutput, "hex", false, "write hex text instead of raw bytes")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func parseFields(data []byte, format string) (map[string]any, error) {
	var fields map[string]any
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return nil, errors.Wrap(err, "parse json")
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, errors.Wrap(err, "parse yaml")
		}
	default:
		return nil, errors.Errorf("unknown input format %q", format)
	}
	return fields, nil
}
