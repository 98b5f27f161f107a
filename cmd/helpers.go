package main

import (
	"context"
	"time"

	"github.com/sells-group/zipmap/internal/config"
	"github.com/sells-group/zipmap/internal/fetcher"
	"github.com/sells-group/zipmap/internal/interaction"
	"github.com/sells-group/zipmap/internal/resize"
	"github.com/sells-group/zipmap/internal/store"
)

func newFetcher(c *config.Config) fetcher.Fetcher {
	timeout := time.Duration(c.Assets.TimeoutSecs) * time.Second
	return fetcher.NewRouter(
		fetcher.HTTPOptions{UserAgent: c.Assets.UserAgent, Timeout: timeout},
		fetcher.FTPOptions{Timeout: timeout},
	)
}

func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	return store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: c.Store.MaxConns,
		MinConns: c.Store.MinConns,
	})
}

func interactionOptions(c *config.Config) interaction.Options {
	return interaction.Options{
		StateClickInterval: time.Duration(c.Interaction.StateClickIntervalMS) * time.Millisecond,
		FitPadding:         c.Interaction.FitPadding,
		FitDuration:        time.Duration(c.Interaction.FitDurationMS) * time.Millisecond,
	}
}

func resizeOptions(c *config.Config) resize.Options {
	return resize.Options{
		MinHeight:         c.Sidebar.MinHeight,
		MaxHeightFraction: c.Sidebar.MaxHeightFraction,
	}
}
