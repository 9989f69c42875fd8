package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lumi/internal/usecase"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Work with projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		userID, err := requireUser(l)
		if err != nil {
			return err
		}
		projects, err := l.Projects().List(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("no projects")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTASKS\tDONE\tNAME")
		for i := range projects {
			p := &projects[i]
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", shortID(p.ID), p.TaskCount, p.CompletedCount, p.Name)
		}
		return w.Flush()
	},
}

var projectAddDescription string

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		userID, err := requireUser(l)
		if err != nil {
			return err
		}
		created, err := l.Projects().Create(cmd.Context(), userID, usecase.CreateProjectInput{
			Name:        args[0],
			Description: projectAddDescription,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created %s  %s\n", shortID(created.ID), created.Name)
		return nil
	},
}

var projectRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a project and detach its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		userID, err := requireUser(l)
		if err != nil {
			return err
		}
		if err := l.Projects().Delete(cmd.Context(), userID, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}

var projectStatsCmd = &cobra.Command{
	Use:   "stats <id>",
	Short: "Show one project's task counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		userID, err := requireUser(l)
		if err != nil {
			return err
		}
		stats, err := l.Projects().Stats(cmd.Context(), userID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("total %d, completed %d, overdue %d\n", stats.Total, stats.Completed, stats.Overdue)
		return nil
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectAddDescription, "desc", "", "project description")
	projectCmd.AddCommand(projectListCmd, projectAddCmd, projectRmCmd, projectStatsCmd)
}
