package recommend

import (
	"context"

	"github.com/pathlight/assessment-backend/internal/model"
)

// Provider produces a short human-readable recommendation for a settled
// score result. Implementations must be safe for concurrent use.
type Provider interface {
	Recommend(ctx context.Context, def *model.TestDefinition, res *model.ScoreResult) (string, error)
}

// NoopProvider is used when no recommendation backend is configured.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Recommend(ctx context.Context, def *model.TestDefinition, res *model.ScoreResult) (string, error) {
	return "", nil
}
