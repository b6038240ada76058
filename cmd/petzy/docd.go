package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/04shr/petzy/internal/docstore/httpstore"
)

const shutdownTimeout = 5 * time.Second

func newDocdCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "docd",
		Short: "Serve the SQLite document store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("listen") {
				listen = a.cfg.Store.Listen
			}
			return a.serveDocs(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")
	return cmd
}

func (a *app) serveDocs(ctx context.Context, listen string) error {
	store, err := openSQLite(a.cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	log := a.log.Named("docd")
	srv := &http.Server{
		Addr:              listen,
		Handler:           httpstore.NewHandler(store, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", listen), zap.String("db", a.cfg.Store.SQLitePath))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
