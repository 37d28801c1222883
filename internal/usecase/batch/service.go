// Package batch runs many pipeline requests concurrently on a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	dombatch "github.com/sou1nonly/relocation-chatbot/internal/domain/batch"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/pipeline"
)

// Defaults for Service.
const (
	DefaultMaxBatchSize = 20
	DefaultWorkers      = 4
)

// Item is the outcome of one request; Response is nil on error.
type Item struct {
	dombatch.Result
	Response *pipeline.Response
}

// Service fans batch items out to a shared ants pool.
type Service struct {
	runner       Runner
	pool         *ants.Pool
	maxBatchSize int
	logger       *zap.Logger
}

// New creates a batch service with a pool of the given number of workers.
func New(runner Runner, workers, maxBatchSize int, logger *zap.Logger) (*Service, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{runner: runner, pool: pool, maxBatchSize: maxBatchSize, logger: logger}, nil
}

// MaxBatchSize returns the largest accepted batch.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

// Run executes every request and returns results in input order.
// A batch above the maximum fails every item with ErrBatchTooLarge.
func (s *Service) Run(ctx context.Context, reqs []pipeline.Request) []Item {
	items := make([]Item, len(reqs))

	if len(reqs) > s.maxBatchSize {
		err := fmt.Errorf("batch size %d exceeds %d: %w", len(reqs), s.maxBatchSize, domain.ErrBatchTooLarge)
		for i := range reqs {
			items[i] = Item{Result: dombatch.NewError(strconv.Itoa(i), err)}
		}
		return items
	}

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			items[i] = s.runOne(ctx, i, reqs[i])
		})
		if err != nil {
			wg.Done()
			items[i] = Item{Result: dombatch.NewError(strconv.Itoa(i), fmt.Errorf("submit: %w", err))}
		}
	}
	wg.Wait()
	return items
}

func (s *Service) runOne(ctx context.Context, i int, req pipeline.Request) Item {
	id := strconv.Itoa(i)
	if err := ctx.Err(); err != nil {
		return Item{Result: dombatch.NewError(id, err)}
	}
	resp, err := s.runner.Run(ctx, req)
	if err != nil {
		s.logger.Debug("batch item failed", zap.Int("index", i), zap.Error(err))
		return Item{Result: dombatch.NewError(id, err)}
	}
	return Item{Result: dombatch.NewOK(id), Response: &resp}
}

// Release stops the worker pool.
func (s *Service) Release() {
	s.pool.Release()
}
