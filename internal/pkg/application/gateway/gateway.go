package gateway

import (
	"context"

	"github.com/Aleksis99/cognee-graphdb/pkg/graph/errors"
	"github.com/Aleksis99/cognee-graphdb/pkg/graphdb"
)

// GraphManager routes requests for a logical graph name to the store that
// holds it.
type GraphManager interface {
	Store(ctx context.Context, graphID string) (graphdb.GraphStore, error)
}

type gatewayApp struct {
	stores map[string]graphdb.GraphStore
}

func New(ctx context.Context, cfg Config, storeOptions ...graphdb.Option) (GraphManager, error) {
	app := &gatewayApp{
		stores: make(map[string]graphdb.GraphStore),
	}

	for _, graphCfg := range cfg.Graphs {
		app.stores[graphCfg.ID] = graphdb.New(cfg.Endpoint, graphCfg.Repository, storeOptions...)
	}

	return app, nil
}

func (app *gatewayApp) Store(ctx context.Context, graphID string) (graphdb.GraphStore, error) {
	store, ok := app.stores[graphID]
	if !ok {
		return nil, errors.NewUnknownGraphError(graphID)
	}

	return store, nil
}
