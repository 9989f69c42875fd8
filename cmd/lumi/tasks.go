package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lumi/domain"
	"lumi/domain/entity"
	"lumi/internal/usecase"
	"lumi/task"
)

var filterFlags struct {
	search   string
	priority string
	project  string
	status   string
	from     string
	to       string
	sortBy   string
	order    string
}

// addFilterFlags registers the shared task list filter flags on a command.
func addFilterFlags(c *cobra.Command) {
	fl := c.Flags()
	fl.StringVar(&filterFlags.search, "search", "", "substring match on title or description")
	fl.StringVar(&filterFlags.priority, "priority", "", "low|medium|high")
	fl.StringVar(&filterFlags.project, "project", "", "project id")
	fl.StringVar(&filterFlags.status, "status", "all", "all|pending|completed|overdue")
	fl.StringVar(&filterFlags.from, "from", "", "due on or after (YYYY-MM-DD)")
	fl.StringVar(&filterFlags.to, "to", "", "due on or before (YYYY-MM-DD)")
	fl.StringVar(&filterFlags.sortBy, "sort", "date", "priority|date|name|project")
	fl.StringVar(&filterFlags.order, "order", "asc", "asc|desc")
}

// buildFilter turns the flag values into a filter specification.
func buildFilter() (entity.FilterSpec, error) {
	f := entity.DefaultFilter()
	f.SearchQuery = filterFlags.search
	f.Priority = entity.Priority(filterFlags.priority)
	f.ProjectID = filterFlags.project
	f.Status = entity.StatusFilter(filterFlags.status)
	f.SortBy = entity.SortKey(filterFlags.sortBy)
	f.SortOrder = entity.SortOrder(filterFlags.order)

	for _, bound := range []struct {
		value string
		dst   **time.Time
	}{
		{filterFlags.from, &f.DateFrom},
		{filterFlags.to, &f.DateTo},
	} {
		if bound.value == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", bound.value)
		if err != nil {
			return f, domain.Validationf("invalid date %q, want YYYY-MM-DD", bound.value)
		}
		*bound.dst = &t
	}
	return f, nil
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Work with tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, filtered and sorted",
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
		filter, err := buildFilter()
		if err != nil {
			return err
		}

		tasks, err := l.Tasks().List(cmd.Context(), userID)
		if err != nil {
			return err
		}
		projects, err := l.Projects().List(cmd.Context(), userID)
		if err != nil {
			return err
		}

		visible := task.FilterAndSort(tasks, projects, filter)
		if len(visible) == 0 {
			fmt.Println("no tasks match")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDONE\tPRI\tDUE\tPROJECT\tTITLE")
		for i := range visible {
			t := &visible[i]
			done := " "
			if t.Completed {
				done = "x"
			}
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(t.ID), done, t.Priority, due, t.ProjectName(projects), t.Title)
		}
		return w.Flush()
	},
}

var taskAddFlags struct {
	description string
	priority    string
	project     string
	due         string
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
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

		in := usecase.CreateTaskInput{
			Title:       args[0],
			Description: taskAddFlags.description,
			Priority:    entity.Priority(taskAddFlags.priority),
		}
		if taskAddFlags.project != "" {
			in.ProjectID = &taskAddFlags.project
		}
		if taskAddFlags.due != "" {
			t, err := time.Parse("2006-01-02", taskAddFlags.due)
			if err != nil {
				return domain.Validationf("invalid due date %q, want YYYY-MM-DD", taskAddFlags.due)
			}
			d := entity.NewDate(t)
			in.DueDate = &d
		}

		created, err := l.Tasks().Create(cmd.Context(), userID, in)
		if err != nil {
			return err
		}
		fmt.Printf("created %s  %s\n", shortID(created.ID), created.Title)
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
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

		completed := true
		updated, err := l.Tasks().Update(cmd.Context(), userID, args[0], usecase.UpdateTaskInput{Completed: &completed})
		if err != nil {
			return err
		}
		fmt.Printf("done: %s\n", updated.Title)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
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
		if err := l.Tasks().Delete(cmd.Context(), userID, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}

var taskStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts",
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
		stats, err := l.Tasks().Stats(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Printf("total %d, pending %d, completed %d, overdue %d\n",
			stats.Total, stats.Pending, stats.Completed, stats.Overdue)
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	addFilterFlags(taskListCmd)

	fl := taskAddCmd.Flags()
	fl.StringVar(&taskAddFlags.description, "desc", "", "task description")
	fl.StringVar(&taskAddFlags.priority, "priority", "", "low|medium|high")
	fl.StringVar(&taskAddFlags.project, "project", "", "project id")
	fl.StringVar(&taskAddFlags.due, "due", "", "due date (YYYY-MM-DD)")

	taskCmd.AddCommand(taskListCmd, taskAddCmd, taskDoneCmd, taskRmCmd, taskStatsCmd)
}
