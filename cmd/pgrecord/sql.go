package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgrecord/pgrecord"
	"github.com/pgrecord/pgrecord/schemafile"
)

func newSQLCmd() *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "sql <schema.yaml>",
		Short: "Print the DDL for the types in a schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := schemafile.LoadFile(args[0])
			if err != nil {
				return err
			}

			if drop {
				// Drop in reverse declaration order so dependent types go
				// before the types they nest.
				for i := len(specs) - 1; i >= 0; i-- {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", pgrecord.DropType{Name: specs[i].Name()}.SQL())
				}
				return nil
			}
			for _, spec := range specs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", pgrecord.CreateType{Spec: spec}.SQL())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "print DROP TYPE statements instead")
	return cmd
}
