package main

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/Aleksis99/cognee-graphdb/internal/pkg/application/gateway"
	"github.com/Aleksis99/cognee-graphdb/internal/pkg/infrastructure/router"
	"github.com/Aleksis99/cognee-graphdb/internal/pkg/presentation/api/graphs"
	"github.com/Aleksis99/cognee-graphdb/pkg/graphdb"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
)

const appName string = "graph-gateway"

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	cfg := LoadConfiguration(ctx)

	gatewayConfig, err := loadGatewayConfig(cfg)
	if err != nil {
		log.Error("failed to load gateway configuration", "err", err.Error())
		os.Exit(1)
	}

	policies, err := os.Open(cfg.policiesPath)
	if err != nil {
		log.Error("failed to open authz policies", "path", cfg.policiesPath, "err", err.Error())
		os.Exit(1)
	}
	defer policies.Close()

	storeOptions := []graphdb.Option{graphdb.Debug(cfg.debug)}
	if cfg.username != "" {
		storeOptions = append(storeOptions, graphdb.BasicAuth(cfg.username, cfg.password))
	}

	app, err := gateway.New(ctx, *gatewayConfig, storeOptions...)
	if err != nil {
		log.Error("failed to create gateway application", "err", err.Error())
		os.Exit(1)
	}

	r := router.New(appName)

	err = graphs.RegisterHandlers(ctx, r, policies, app)
	if err != nil {
		log.Error("failed to register handlers", "err", err.Error())
		os.Exit(1)
	}

	log.Info("starting to listen for connections", "port", cfg.servicePort)

	err = http.ListenAndServe(":"+cfg.servicePort, r)
	if err != nil {
		log.Error("failed to listen for connections", "err", err.Error())
		os.Exit(1)
	}
}

func loadGatewayConfig(cfg Config) (*gateway.Config, error) {
	if cfg.configPath != "" {
		configFile, err := os.Open(cfg.configPath)
		if err != nil {
			return nil, err
		}
		defer configFile.Close()

		return loadGatewayConfigFrom(configFile, cfg)
	}

	// no routing config means a single default graph in one repository
	return &gateway.Config{
		Endpoint: cfg.endpoint,
		Graphs: []gateway.GraphConfig{
			{ID: "default", Repository: cfg.repository},
		},
	}, nil
}

func loadGatewayConfigFrom(data io.Reader, cfg Config) (*gateway.Config, error) {
	gatewayConfig, err := gateway.LoadConfiguration(data)
	if err != nil {
		return nil, err
	}

	if gatewayConfig.Endpoint == "" {
		gatewayConfig.Endpoint = cfg.endpoint
	}

	return gatewayConfig, nil
}
