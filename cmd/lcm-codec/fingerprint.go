// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luxfi/lcm"
)

func (a *app) fingerprintCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "fingerprint [type...]",
		Short: "Print type fingerprints",
		Long:  `Print the fingerprint of each named type, or of every known type.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var types []*lcm.Type
			if len(args) == 0 {
				types = a.reg.Types()
			}
			for _, name := range args {
				t, err := a.reg.Type(name)
				if err != nil {
					return err
				}
				types = append(types, t)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range types {
				fmt.Fprintf(w, "%s\t0x%016x\n", t.Name(), t.Fingerprint())
				if !verbose {
					continue
				}
				for _, f := range t.Schema().Fields {
					fmt.Fprintf(w, "  %s\t\n", f)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also list each type's fields")

	return cmd
}
