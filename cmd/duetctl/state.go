package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duetapp/duet"
	"github.com/duetapp/duet/internal/keys"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Dump or reset stored state",
	}
	cmd.AddCommand(newStateDumpCmd(), newStateResetCmd())
	return cmd
}

// targetKeys resolves an optional key argument; none means every key.
func targetKeys(args []string) ([]keys.Key, error) {
	if len(args) == 0 {
		return keys.All(), nil
	}
	k, err := keys.Parse(args[0])
	if err != nil {
		return nil, err
	}
	return []keys.Key{k}, nil
}

func newStateDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump [key]",
		Short: "Print the state of one store (e.g. todos) or all of them as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := targetKeys(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				out := make(map[keys.Key]any, len(targets))
				for _, k := range targets {
					snap, err := a.Snapshot(k)
					if err != nil {
						return err
					}
					out[k] = snap
				}
				if len(args) == 1 {
					return printJSON(cmd.OutOrStdout(), out[targets[0]])
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newStateResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [key]",
		Short: "Reset one store or all of them and remove their stored data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := targetKeys(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *duet.App) error {
				for _, k := range targets {
					if err := a.Reset(ctx, k); err != nil {
						return err
					}
					cliLog.Debug().Str("key", k.String()).Msg("state reset")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d store(s)\n", len(targets))
				return nil
			})
		},
	}
}
