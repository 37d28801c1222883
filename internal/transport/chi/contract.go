package chi

import (
	"context"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/answer"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
	"github.com/sou1nonly/relocation-chatbot/internal/repository/searchcache"
	batchuc "github.com/sou1nonly/relocation-chatbot/internal/usecase/batch"
	healthuc "github.com/sou1nonly/relocation-chatbot/internal/usecase/health"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/pipeline"
)

// SearchCache extends the pipeline cache with administration.
type SearchCache interface {
	pipeline.Cache
	Clear()
	Len() int
	Stats() searchcache.Stats
}

// PipelineRunner runs the full retrieval flow.
type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}

// BatchRunner runs several pipeline requests concurrently.
type BatchRunner interface {
	Run(ctx context.Context, reqs []pipeline.Request) []batchuc.Item
	MaxBatchSize() int
}

// MemoryStore exposes stored user preferences and summaries.
type MemoryStore interface {
	GetPreferences(ctx context.Context, userID string) (*usercontext.Preferences, error)
	SavePreferences(ctx context.Context, userID string, p usercontext.Preferences) error
	GetConversationSummary(ctx context.Context, userID string) (*usercontext.ConversationSummary, error)
	SaveConversationSummary(ctx context.Context, userID string, s usercontext.ConversationSummary) error
	Memory(ctx context.Context, userID string) (usercontext.Memory, error)
}

// Answerer produces a model answer from an assembled context.
type Answerer interface {
	Answer(ctx context.Context, query string, c assembled.Context) (answer.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
