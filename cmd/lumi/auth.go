package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		sess, err := l.SignIn(cmd.Context(), flagEmail, flagPassword)
		if err != nil {
			return err
		}
		if err := saveSession(sess); err != nil {
			return err
		}
		fmt.Printf("signed in as %s\n", sess.User.Email)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		sess, err := l.SignUp(cmd.Context(), flagEmail, flagPassword)
		if err != nil {
			return err
		}
		if err := saveSession(sess); err != nil {
			return err
		}
		fmt.Printf("account created for %s\n", sess.User.Email)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <email>",
	Short: "Send a password-reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := l.Recover(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("reset email sent to %s\n", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, cleanup, err := engine()
		if err != nil {
			return err
		}
		defer cleanup()

		err = l.SignOut(cmd.Context())
		clearSession()
		if err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "account email")
		c.Flags().StringVar(&flagPassword, "password", "", "account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
}
