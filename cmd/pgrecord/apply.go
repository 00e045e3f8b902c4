package main

import (
	"github.com/spf13/cobra"

	"github.com/pgrecord/pgrecord"
	"github.com/pgrecord/pgrecord/schemafile"
)

func newApplyCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "apply <schema.yaml>",
		Short: "Create the types from a schema file in the database and register them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			ctx := cmd.Context()

			specs, err := schemafile.LoadFile(args[0])
			if err != nil {
				return err
			}

			reg := pgrecord.NewRegistry(pgrecord.WithLogger(log))
			for _, spec := range specs {
				if err := reg.Register(spec); err != nil {
					return err
				}
			}

			pool, err := pgrecord.Connect(ctx, &pgrecord.PoolConfig{DSN: dsn}, reg)
			if err != nil {
				return err
			}
			defer pool.Close()

			conn, err := pool.Acquire(ctx)
			if err != nil {
				return err
			}
			defer conn.Release()

			for _, spec := range specs {
				op := pgrecord.CreateType{Spec: spec}
				log.Info().Str("type", spec.Name()).Msg(op.Describe())
				if err := op.Apply(ctx, conn.Conn(), reg); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}
