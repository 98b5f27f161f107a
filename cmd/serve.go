package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/assets"
	"github.com/sells-group/zipmap/internal/config"
	"github.com/sells-group/zipmap/internal/dashboard"
	"github.com/sells-group/zipmap/internal/mapconfig"
	"github.com/sells-group/zipmap/internal/region"
	"github.com/sells-group/zipmap/internal/server"
	"github.com/sells-group/zipmap/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initServe(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		go env.Sessions.Run(ctx, time.Minute)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           env.Server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// serveEnv holds everything the serve command starts.
type serveEnv struct {
	Server   *server.Server
	Sessions *dashboard.Manager
	Bundle   *assets.Bundle
	store    store.Store
}

// Close ends every session and releases the store, if one was opened.
func (e *serveEnv) Close() {
	if e.Sessions != nil {
		e.Sessions.CloseAll()
	}
	e.closeStore()
}

// initServe loads every asset and builds the HTTP server. Asset failures
// degrade to empty data; only configuration and store errors abort.
func initServe(ctx context.Context, c *config.Config) (*serveEnv, error) {
	env := &serveEnv{}
	f := newFetcher(c)

	var lookup region.Source
	switch c.Assets.LookupSource {
	case "store":
		st, err := openStore(ctx, c)
		if err != nil {
			return nil, eris.Wrap(err, "serve: open store")
		}
		env.store = st
		lookup = region.StoreSource{Store: st}
	default:
		lookup = region.SourceFor(f, c.Assets.LookupPath)
	}

	mapCfg, err := loadMapConfig(c.Server.MapConfig)
	if err != nil {
		env.closeStore()
		return nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, time.Duration(c.Assets.TimeoutSecs)*time.Second*2)
	defer cancel()
	bundle, err := assets.Load(loadCtx, assets.Options{
		Fetcher:  f,
		Lookup:   lookup,
		States:   c.Assets.StatesPath,
		Zipcodes: c.Assets.ZipcodesPath,
	})
	if err != nil {
		env.closeStore()
		return nil, err
	}
	env.Bundle = bundle

	env.Sessions = dashboard.NewManager(dashboard.Options{
		Lookup:      bundle.Lookup,
		Interaction: interactionOptions(c),
		Resize:      resizeOptions(c),
	}, time.Duration(c.Server.SessionTTLMins)*time.Minute)

	env.Server = server.New(server.Options{
		Bundle:         bundle,
		MapConfig:      mapCfg,
		Sessions:       env.Sessions,
		StaticDir:      c.Server.StaticDir,
		AllowedOrigins: c.Server.AllowedOrigins,
	})
	return env, nil
}

func (e *serveEnv) closeStore() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// loadMapConfig reads a YAML map configuration, or the embedded default when
// path is empty.
func loadMapConfig(path string) (*mapconfig.Config, error) {
	if path == "" {
		return mapconfig.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "serve: read map config %s", path)
	}
	return mapconfig.Parse(data)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
