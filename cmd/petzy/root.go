package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/config"
	"github.com/04shr/petzy/internal/docstore"
	"github.com/04shr/petzy/internal/docstore/httpstore"
	"github.com/04shr/petzy/internal/docstore/sqlite"
	"github.com/04shr/petzy/internal/env"
	"github.com/04shr/petzy/internal/logger"
)

// app is the state shared by every subcommand once the root pre-run has finished.
type app struct {
	cfgPath  string
	envPath  string
	logLevel string

	cfg config.Config
	log *zap.Logger
	rec *logger.Recorder
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:          "petzy",
		Short:        "A virtual pet you can feed, dress up and talk to",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.Path, "config file")
	root.PersistentFlags().StringVar(&a.envPath, "env-file", env.DefaultPath, "dotenv file read before the config")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(newViewCmd(a), newDocdCmd(a), newSignupCmd(a), newLoginCmd(a), newLogoutCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if _, err := env.Load(a.envPath); err != nil {
		return err
	}
	cfg, cfgErr := config.Load(a.cfgPath)
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	log, rec, err := logger.New(logger.Options{
		FilePath: cfg.Log.Path,
		Level:    logger.ParseLevel(level),
		// The window shows logs itself; every other command prints to stderr.
		Console: cmd.Name() != "view",
	})
	if err != nil {
		return err
	}
	a.log, a.rec = log.Named("petzy"), rec
	if cfgErr != nil {
		a.log.Warn("config unreadable, using defaults", zap.String("path", a.cfgPath), zap.Error(cfgErr))
	}
	return nil
}

// openDocs returns the configured document store and a function that releases it.
func (a *app) openDocs() (docstore.Store, func(), error) {
	if a.cfg.Store.URL != "" {
		c, err := httpstore.NewClient(a.cfg.Store.URL, nil)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	s, err := openSQLite(a.cfg.Store.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			a.log.Warn("close document store", zap.Error(err))
		}
	}, nil
}

func openSQLite(path string) (*sqlite.Store, error) {
	if path == "" {
		return nil, errors.New("store: sqlite_path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return sqlite.Open(path)
}

// workdirFS exposes the working directory as a hackpadfs filesystem.
func workdirFS() (hackpadfs.FS, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	fsys := osfs.NewFS()
	dir, err := fsys.FromOSPath(wd)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	return fsys.Sub(dir)
}
