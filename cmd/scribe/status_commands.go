package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.Job(args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"ID", job.ID},
				{"Status", job.Status},
				{"Input", job.InputPath},
				{"Model", job.ModelName},
				{"Created", job.CreatedAt.Local().Format("2006-01-02 15:04:05")},
				{"Updated", job.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
			}
			if job.ErrorMessage != "" {
				rows = append(rows, []string{"Error", job.ErrorMessage})
			}
			for format, path := range job.Artifacts {
				rows = append(rows, []string{"Artifact " + format, path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	var showDialect bool

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Print the transcript of a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := client.Result(args[0])
			if err != nil {
				return err
			}
			if showDialect {
				if result.DialectText == "" {
					return fmt.Errorf("job %s has no dialect-mapped transcript", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.DialectText)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDialect, "dialect", false, "Print the dialect-mapped transcript instead")
	return cmd
}

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon operations",
	}

	daemonCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon runtime status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Running", fmt.Sprintf("%t", status.Running)},
				{"Pending", fmt.Sprintf("%d", status.Queue.Pending)},
				{"Processing", fmt.Sprintf("%d", status.Queue.Processing)},
				{"Finished", fmt.Sprintf("%d", status.Queue.Finished)},
				{"Failed", fmt.Sprintf("%d", status.Queue.Failed)},
				{"Task depth", fmt.Sprintf("%d", status.TaskDepth)},
				{"Queue DB", status.QueueDBPath},
				{"Lock file", status.LockFilePath},
			}
			for _, dep := range status.Dependencies {
				state := "available"
				if !dep.Available {
					state = dep.Detail
					if dep.Optional {
						state += " (optional)"
					}
				}
				rows = append(rows, []string{"Tool " + dep.Name, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	})

	return daemonCmd
}
