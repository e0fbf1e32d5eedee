package main

import (
	"go.uber.org/zap"

	"canonkeeper/internal/concept"
	"canonkeeper/internal/config"
	"canonkeeper/internal/conflict"
	"canonkeeper/internal/depgraph"
	"canonkeeper/internal/effect"
	"canonkeeper/internal/finalize"
	"canonkeeper/internal/inference"
	"canonkeeper/internal/ledger"
	"canonkeeper/internal/semantic"
	"canonkeeper/internal/store"
)

var verbose bool

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// engine bundles the services a command needs on top of the store.
type engine struct {
	concepts   *concept.Resolver
	detector   *conflict.Detector
	charLedger *ledger.Ledger
	inferences *inference.Service
	finalizer  *finalize.Finalizer
}

func newEngine(cfg *config.ProjectConfig, db store.Store, log *zap.Logger) *engine {
	var embedder semantic.Embedder
	if cfg.Embedding.Enabled() {
		embedder = semantic.NewClient(cfg.Embedding)
	}
	sem := semantic.New(embedder, log)

	concepts := concept.NewResolver(db, sem, log)
	detector := conflict.NewDetector(sem, nil, log)
	charLedger := ledger.New(db, log)
	deps := depgraph.New(db, log)
	inferences := inference.New(db, log)
	events := effect.NewEventResolver(log)

	return &engine{
		concepts:   concepts,
		detector:   detector,
		charLedger: charLedger,
		inferences: inferences,
		finalizer:  finalize.New(db, concepts, detector, charLedger, deps, inferences, events, log),
	}
}
