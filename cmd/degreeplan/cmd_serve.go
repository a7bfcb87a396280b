package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/degreeplan-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return a.Run(gctx)
			})
			g.Go(func() error {
				<-gctx.Done()
				a.Log.Info("Shutdown requested")
				return nil
			})
			return g.Wait()
		})
	},
}
