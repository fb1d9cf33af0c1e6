package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/missiond/internal/app"
	"github.com/fieldops/missiond/internal/models"
)

func missionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "mission", Short: "Manage missions"}
	cmd.AddCommand(missionSeedCmd())
	cmd.AddCommand(missionListCmd())
	cmd.AddCommand(missionShowCmd())
	cmd.AddCommand(missionBroadcastCmd())
	return cmd
}

func missionSeedCmd() *cobra.Command {
	var file, assign string
	cmd := &cobra.Command{
		Use:   "seed [--file missions.yaml] [--assign username]",
		Short: "Create missions from a YAML or JSON file, or one sample mission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var inputs []models.CreateMissionInput
			if file == "" {
				if assign == "" {
					return errors.New("--assign is required for the sample mission")
				}
				inputs = []models.CreateMissionInput{sampleMission(time.Now())}
			} else {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if inputs, err = parseSeed(data); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
			}
			return withStore(cmd, func(ctx context.Context, e *env) error {
				svc := app.NewMissionService(e.store, e.opts, e.log)
				defer svc.Wait()

				out := cmd.OutOrStdout()
				var failed int
				for i := range inputs {
					in := &inputs[i]
					if assign != "" {
						in.Username = assign
					}
					m, err := svc.Create(ctx, in)
					if err != nil {
						failure(out, "%s: %v", in.ID, err)
						failed++
						continue
					}
					success(out, "%s assigned to %s", m.MissionID, m.AssignedTo.Username)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d missions not created", failed, len(inputs))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "mission file (YAML or JSON)")
	cmd.Flags().StringVar(&assign, "assign", "", "assign every mission to this username")
	return cmd
}

func missionListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions, unopened first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, e *env) error {
				svc := app.NewMissionService(e.store, e.opts, e.log)
				missions, err := svc.List(ctx, models.MissionFilter{Status: models.Status(status)})
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), missions)
				}
				printMissionTable(cmd.OutOrStdout(), missions)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only missions in this status")
	return cmd
}

func missionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <mission-id>",
		Short: "Print one mission as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, e *env) error {
				m, err := app.NewMissionService(e.store, e.opts, e.log).Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	}
}

func missionBroadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <mission-id>",
		Short: "Push a mission to every user with a registered device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, e *env) error {
				res, err := app.NewMissionService(e.store, e.opts, e.log).Broadcast(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(cmd.OutOrStdout(), res)
				}
				success(cmd.OutOrStdout(), "delivered to %d users", res.Successful)
				if res.Failed > 0 {
					failure(cmd.OutOrStdout(), "failed for %d users", res.Failed)
				}
				return nil
			})
		},
	}
}
