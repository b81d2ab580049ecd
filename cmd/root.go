// Package cmd wires the command-line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sadopc/innerglow/internal/auth"
	"github.com/sadopc/innerglow/internal/config"
	"github.com/sadopc/innerglow/internal/content"
	"github.com/sadopc/innerglow/internal/feed"
	"github.com/sadopc/innerglow/internal/logger"
	"github.com/sadopc/innerglow/internal/recorder"
	"github.com/sadopc/innerglow/internal/session"
	"github.com/sadopc/innerglow/internal/store"
	"github.com/sadopc/innerglow/internal/tui"
)

// env is what every subcommand shares once configuration is loaded.
type env struct {
	v        *viper.Viper
	cfgFile  string
	settings *config.Settings
	log      *logger.Logger
	store    *store.Store
}

// Execute runs the root command.
func Execute() error {
	return run(&env{v: config.NewViper()}, os.Args[1:])
}

// run executes args and always releases what load opened. cobra skips
// PersistentPostRunE when RunE fails.
func run(e *env, args []string) error {
	defer e.close()
	cmd := newRootCommand(e)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// RootCommand creates the root command and its subcommands.
func RootCommand() *cobra.Command {
	return newRootCommand(&env{v: config.NewViper()})
}

func newRootCommand(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "innerglow",
		Short:        "A private journal for emotions, voice notes and self-care rituals",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runTUI()
		},
	}

	if err := setupFlags(rootCmd, e); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	rootCmd.AddCommand(
		exportCommand(e),
		statsCommand(e),
		versionCommand(),
	)
	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, e *env) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/innerglow/config.yaml)")
	flags.String("db", "", "Path to the SQLite database")
	flags.BoolP("debug", "d", false, "Enable debug logging")

	if err := e.v.BindPFlag("db_path", flags.Lookup("db")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := e.v.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// load reads configuration and opens the log and the database.
func (e *env) load() error {
	s, err := config.Load(e.v, e.cfgFile)
	if err != nil {
		return err
	}
	e.settings = s

	l, err := logger.New(logger.Config{File: s.Log.File, Level: s.Log.Level})
	if err != nil {
		return err
	}
	e.log = l

	if err := os.MkdirAll(filepath.Dir(s.DBPath), 0o755); err != nil {
		e.close()
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(s.DBPath)
	if err != nil {
		e.close()
		return fmt.Errorf("error opening database: %w", err)
	}
	e.store = st
	e.log.Info("started", "db", s.DBPath, "config", s.ConfigFile)
	return nil
}

func (e *env) close() error {
	var err error
	if e.store != nil {
		err = e.store.Close()
		e.store = nil
	}
	if e.log != nil {
		e.log.Close()
		e.log = nil
	}
	return err
}

func (e *env) runTUI() error {
	s := e.settings
	lib, err := content.Default()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.AudioDir, 0o755); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}

	sess := session.New(session.ParseTheme(s.Theme))
	svc := auth.NewService(e.store, sess, e.log.Module("auth"))

	hub := feed.New(e.store, s.Feed.CacheTTL, e.log.Module("feed"))
	defer hub.Close()

	format := recorder.Format{SampleRate: s.Audio.SampleRate, Channels: s.Audio.Channels, BitDepth: 16}
	rec := recorder.New(recorder.NewMalgoCapture(e.log.Module("capture")), format, e.log.Module("recorder"))
	defer rec.Close()

	beeep.AppName = "InnerGlow"
	notifyLog := e.log.Module("notify")

	deps := &tui.Deps{
		Store:    e.store,
		Auth:     svc,
		Session:  sess,
		Feed:     hub,
		Recorder: rec,
		Content:  lib,
		AudioDir: s.AudioDir,
		Log:      e.log.Module("tui"),
		Notify: func(title, message string) error {
			notifyLog.Debug("notify", "title", title)
			return beeep.Notify(title, message, "")
		},
	}

	p := tea.NewProgram(tui.NewApp(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// userByEmail resolves the --user flag of the offline commands.
func (e *env) userByEmail(email string) (*store.User, error) {
	if email == "" {
		return nil, fmt.Errorf("--user is required")
	}
	u, err := e.store.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", email, err)
	}
	return u, nil
}
