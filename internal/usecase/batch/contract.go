package batch

import (
	"context"

	"github.com/sou1nonly/relocation-chatbot/internal/usecase/pipeline"
)

// Runner executes a single pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}
