package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"OrderKeeper/internal/app"
	"OrderKeeper/internal/config"
	"OrderKeeper/pkg/kit"
)

func main() {
	log := kit.NewLogger(app.Service)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal("init order service failed", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close order service", zap.Error(err))
		}
	}()

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, a.Handler, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}
