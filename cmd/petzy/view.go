package main

import (
	"context"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/04shr/petzy/internal/assets"
	"github.com/04shr/petzy/internal/avatar"
	"github.com/04shr/petzy/internal/commands"
	"github.com/04shr/petzy/internal/debug"
	"github.com/04shr/petzy/internal/download"
	"github.com/04shr/petzy/internal/fonts"
	"github.com/04shr/petzy/internal/graphics"
	"github.com/04shr/petzy/internal/panels"
	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/scenery"
	"github.com/04shr/petzy/internal/session"
)

// downloadDir caches remote models so raylib can open them from disk.
const downloadDir = "cache/downloads"

func newViewCmd(a *app) *cobra.Command {
	var (
		user  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the pet window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("user") {
				user = a.cfg.CurrentUser
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Avatar.Watch = watch
			}
			return a.view(cmd.Context(), session.New(user))
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user whose preferences to load (default: last signed in)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the model when its file changes")
	return cmd
}

func (a *app) view(ctx context.Context, sess session.Context) error {
	cfg := a.cfg
	log := a.log

	docs, closeDocs, err := a.openDocs()
	if err != nil {
		return err
	}
	defer closeDocs()

	store := prefs.New(docs, sess, log.Named("prefs"), prefs.WithWriteTimeout(cfg.Store.WriteTimeout))
	defer store.Close()
	if err := store.Open(ctx); err != nil {
		log.Warn("preferences unavailable, starting from defaults", zap.Error(err))
	}
	saved := store.Snapshot()

	fsys, err := workdirFS()
	if err != nil {
		return err
	}
	loader := assets.NewLoader(fsys, log.Named("assets"), assets.WithRoot(cfg.Avatar.AssetsDir))
	av := avatar.New(loader, avatar.Options{
		AssetPath:  cfg.Avatar.AssetPath,
		Size:       avatar.Size{Width: cfg.Viewer.Width, Height: cfg.Viewer.Height},
		ClosedNode: cfg.Avatar.ClosedNode,
		OpenNode:   cfg.Avatar.OpenNode,
		Cadence:    cfg.Avatar.Cadence,
		ColorRate:  cfg.Avatar.ColorRate,
		AutoClose:  cfg.Avatar.AutoClose,
		Logger:     log,
		Prefs:      store,
	})
	av.RestoreScene(saved.CurrentScene)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := av.Load(gctx); err != nil {
			return nil
		}
		n := av.ApplyColors(saved.Meshes)
		log.Info("saved colors applied", zap.Int("meshes", n), zap.Stringer("user", sess))
		return nil
	})
	if cfg.Avatar.Watch && !assets.IsRemote(cfg.Avatar.AssetPath) {
		path := cfg.Avatar.AssetPath
		g.Go(func() error {
			return assets.Watch(gctx, filepath.Join(cfg.Avatar.AssetsDir, path), log.Named("watch"), func() {
				loader.Evict(path)
				if err := av.Swap(gctx, path); err != nil {
					return
				}
				av.ApplyColors(store.Snapshot().Meshes)
			})
		})
	}

	actions := panels.NewActions(store, nil, log.Named("actions"))
	chat := panels.NewChat(av)
	defer chat.Close()
	teleport := panels.NewTeleport(scenery.NewCatalog(cfg.Scenes), av)

	viewer := graphics.NewViewer(gctx, av, panels.NewFeed(av, actions),
		scenery.NewBackgrounds(loader, log.Named("scenery")),
		graphics.FileResolver{Dir: cfg.Avatar.AssetsDir, Downloads: download.New(downloadDir)},
		log)

	cmdLog := log.Named("cmd")
	reg := commands.NewRegistry(func(s string) { cmdLog.Info(s) })
	commands.RegisterBuiltins(reg, commands.Deps{Avatar: av, Actions: actions, Teleport: teleport, Chat: chat})
	term := newTerminal(log, a.rec, reg, chat, viewer)

	dbg := debug.New(av)
	dbg.SetShowFPS(cfg.Viewer.ShowFPS)
	dbg.SetShowMemAlloc(cfg.Viewer.ShowMemAlloc)
	dbg.SetShowStatus(cfg.Viewer.ShowStatus)

	fontPath := ""
	if cfg.Viewer.Font != "" {
		p, err := fonts.Find(fsys, path.Join(cfg.Avatar.AssetsDir, fonts.Dir), cfg.Viewer.Font)
		if err != nil {
			log.Warn("overlay font unavailable, using the default", zap.Error(err))
		}
		fontPath = p
	}

	update := func() {
		if fontPath != "" {
			if f, ok := graphics.LoadFont(fontPath); ok {
				term.SetFont(f)
				dbg.SetFont(f)
			}
			fontPath = ""
		}
		term.Update()
		viewer.Update()
	}
	draw := func() {
		viewer.Draw()
		term.Draw()
		dbg.Draw()
	}
	graphics.Run(graphics.Window{
		Title:      cfg.Viewer.Title,
		Width:      cfg.Viewer.Width,
		Height:     cfg.Viewer.Height,
		Fullscreen: cfg.Viewer.Fullscreen,
		TargetFPS:  cfg.Viewer.TargetFPS,
		OnClose:    viewer.Close,
	}, update, draw)

	cancel()
	return g.Wait()
}
