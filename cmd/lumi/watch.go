package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lumi/domain/entity"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live task and project changes",
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

		ctx := cmd.Context()
		print := func(table string) func(entity.ChangeEvent) {
			return func(ev entity.ChangeEvent) {
				fmt.Printf("%s  %-6s %s\n", time.Now().Format("15:04:05"), ev.Kind, table)
			}
		}

		taskKey, err := l.Realtime().SubscribeToTasks(ctx, userID, print("tasks"))
		if err != nil {
			return err
		}
		defer l.Realtime().Unsubscribe(taskKey)

		projectKey, err := l.Realtime().SubscribeToProjects(ctx, userID, print("projects"))
		if err != nil {
			return err
		}
		defer l.Realtime().Unsubscribe(projectKey)

		fmt.Println("watching, ctrl-c to stop")
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case <-stop:
		case <-ctx.Done():
		}
		return nil
	},
}
