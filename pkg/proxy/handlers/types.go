package handlers

import (
	"context"

	"mercator-hq/parley/pkg/orchestrator"
)

// ChatService runs and deletes chat sessions.
type ChatService interface {
	Run(ctx context.Context, req *orchestrator.Request, sink orchestrator.Sink) (*orchestrator.Result, error)
	Delete(ctx context.Context, token, sessionID string) error
}
