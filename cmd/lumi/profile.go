package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lumi/internal/usecase"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Work with your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show profile details",
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
		p, err := l.Profile().Get(cmd.Context(), userID)
		if err != nil {
			return err
		}
		name := p.DisplayName
		if name == "" {
			name = "(unset)"
		}
		fmt.Printf("id:       %s\n", p.ID)
		fmt.Printf("name:     %s\n", name)
		if p.AvatarURL != "" {
			fmt.Printf("avatar:   %s\n", p.AvatarURL)
		}
		fmt.Printf("storage:  %d bytes\n", p.StorageUsed)
		return nil
	},
}

var profileNameCmd = &cobra.Command{
	Use:   "name <display-name>",
	Short: "Set the display name",
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
		if _, err := l.Profile().Update(cmd.Context(), userID, usecase.UpdateProfileInput{DisplayName: &args[0]}); err != nil {
			return err
		}
		fmt.Println("updated")
		return nil
	},
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar <file>",
	Short: "Upload an avatar image",
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
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		url, err := l.Profile().UploadAvatar(cmd.Context(), userID, filepath.Base(args[0]), data)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileNameCmd, profileAvatarCmd)
}
