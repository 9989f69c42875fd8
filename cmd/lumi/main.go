// Command lumi is a terminal front door to the task engine: sign in, list
// and edit tasks and projects, manage the profile, and tail the change feed.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lumi/backend"
	"lumi/configs"
	"lumi/domain"
	"lumi/infrastructure/logger"
	"lumi/pkg/lumi"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "lumi",
	Short:         "Task and project management from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, resetCmd)
	rootCmd.AddCommand(taskCmd, projectCmd, profileCmd, presetCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		if domain.IsAborted(err) {
			// Cancelled operations are not failures worth a message.
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "error:", domain.UserMessage(err))
		if kind := domain.KindOf(err); kind == domain.KindValidation || kind == domain.KindUnknown {
			fmt.Fprintln(os.Stderr, "  ", err)
		}
		os.Exit(1)
	}
}

// engine builds the assembled Lumi instance from file configuration and
// restores any stored session. The returned func tears everything down.
func engine() (*lumi.Lumi, func(), error) {
	cfg, err := configs.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(logger.DefaultConfig(cfg.Log.Environment)); err != nil {
		return nil, nil, err
	}
	log := logger.Get()

	l, err := lumi.New(lumi.FromConfig(cfg), lumi.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	if sess := loadSession(); sess != nil {
		l.SetSession(sess)
	}

	cleanup := func() {
		l.Close()
		_ = logger.Sync()
	}
	return l, cleanup, nil
}

// requireUser returns the signed-in user's id or an auth error.
func requireUser(l *lumi.Lumi) (string, error) {
	sess := l.Session()
	if sess == nil {
		return "", domain.NewError(domain.KindAuth, 0, "not signed in; run `lumi login` first", nil)
	}
	return sess.User.ID, nil
}

func sessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".lumi", "session.json")
}

func loadSession() *backend.Session {
	raw, err := os.ReadFile(sessionPath())
	if err != nil {
		return nil
	}
	var sess backend.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil
	}
	return &sess
}

func saveSession(sess *backend.Session) error {
	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	path := sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func clearSession() {
	_ = os.Remove(sessionPath())
}
