package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved filter presets",
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		ps, err := l.Presets().List()
		if err != nil {
			return err
		}
		if len(ps) == 0 {
			fmt.Println("no presets saved")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSORT")
		for _, p := range ps {
			fmt.Fprintf(w, "%s\t%s\t%s %s\n", shortID(p.ID), p.Name, p.Filters.SortBy, p.Filters.SortOrder)
		}
		return w.Flush()
	},
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the given filter flags under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		filter, err := buildFilter()
		if err != nil {
			return err
		}
		p, err := l.Presets().Save(args[0], filter)
		if err != nil {
			return err
		}
		fmt.Printf("saved %s  %s\n", shortID(p.ID), p.Name)
		return nil
	},
}

var presetRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := l.Presets().Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}

func init() {
	addFilterFlags(presetSaveCmd)
	presetCmd.AddCommand(presetListCmd, presetSaveCmd, presetRmCmd)
}
