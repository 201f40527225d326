package main

import (
	"context"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
)

type Config struct {
	endpoint   string
	repository string
	username   string
	password   string

	configPath   string
	policiesPath string

	servicePort string
	debug       string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		endpoint:   env.GetVariableOrDefault(ctx, "GRAPHDB_ENDPOINT", "http://localhost:7200"),
		repository: env.GetVariableOrDefault(ctx, "GRAPHDB_REPOSITORY", "cognee"),
		username:   env.GetVariableOrDefault(ctx, "GRAPHDB_USERNAME", ""),
		password:   env.GetVariableOrDefault(ctx, "GRAPHDB_PASSWORD", ""),

		configPath:   env.GetVariableOrDefault(ctx, "GATEWAY_CONFIG_PATH", ""),
		policiesPath: env.GetVariableOrDefault(ctx, "AUTHZ_POLICIES_PATH", "/opt/cognee-graphdb/config/authz.rego"),

		servicePort: env.GetVariableOrDefault(ctx, "SERVICE_PORT", "8080"),
		debug:       env.GetVariableOrDefault(ctx, "GRAPHDB_DEBUG", "false"),
	}
}
