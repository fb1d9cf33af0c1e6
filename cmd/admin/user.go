package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fieldops/missiond/internal/service"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage worker accounts"}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "create <username> <password>",
		Short:   "Create a worker account",
		Example: "  missionctl user create worker1 password123",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, e *env) error {
				u, err := service.NewUserService(e.store.Users).CreateUser(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), u)
				}
				success(cmd.OutOrStdout(), "created user %s (%s)", u.Username, u.ID)
				return nil
			})
		},
	}
}
