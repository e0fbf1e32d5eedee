package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"canonkeeper/internal/concept"
	"canonkeeper/internal/conflict"
	"canonkeeper/internal/inference"
	"canonkeeper/internal/ledger"
	"canonkeeper/internal/store"
)

type Server struct {
	db         store.Store
	concepts   *concept.Resolver
	detector   *conflict.Detector
	charLedger *ledger.Ledger
	inferences *inference.Service
	log        *zap.Logger
	mcp        *sdk.Server
}

func NewServer(db store.Store, concepts *concept.Resolver, detector *conflict.Detector, charLedger *ledger.Ledger, inferences *inference.Service, log *zap.Logger, version string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		db:         db,
		concepts:   concepts,
		detector:   detector,
		charLedger: charLedger,
		inferences: inferences,
		log:        log,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "canonkeeper",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
