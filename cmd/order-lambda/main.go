// Command order-lambda serves the order API behind API Gateway.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
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

	// No registry: nothing scrapes a Lambda, so /metrics is not mounted.
	a, err := app.New(context.Background(), cfg, log, nil)
	if err != nil {
		log.Fatal("init order service failed", zap.Error(err))
	}

	lambda.Start(httpadapter.New(a.Handler).ProxyWithContext)
}
