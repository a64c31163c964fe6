package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codescout/internal/archive"
	"codescout/internal/config"
	"codescout/internal/server"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service (/health, /upload, /analyze)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		var store server.ArchiveStore
		if a.cfg.Archive.Enabled {
			src, err := archive.NewObjectSource(archive.S3Config{
				Endpoint:  a.cfg.Archive.Endpoint,
				Region:    a.cfg.Archive.Region,
				AccessKey: a.cfg.Archive.AccessKey,
				SecretKey: a.cfg.Archive.SecretKey,
				Bucket:    a.cfg.Archive.Bucket,
				UseSSL:    a.cfg.Archive.UseSSL,
			})
			if err != nil {
				return err
			}
			store = src
			a.log.Info("archive store enabled", zap.String("endpoint", a.cfg.Archive.Endpoint), zap.String("bucket", a.cfg.Archive.Bucket))
		}
		addr := a.cfg.Port
		if servePort != "" {
			addr = config.NormalizePort(servePort)
		}
		srv := server.New(server.Config{
			UploadDir: a.cfg.UploadDir,
			Timeout:   a.cfg.Timeout,
		}, a.service, store, a.log)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen address (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}
