// Package memory persists per-user preferences, conversation summaries and
// search timestamps as JSON values in a key-value store.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/db"
	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
)

// DefaultKeyPrefix namespaces every key written by the repository.
const DefaultKeyPrefix = "relocbot:"

// DefaultSearchTimestampTTL bounds how long a last-search marker is kept.
const DefaultSearchTimestampTTL = 30 * 24 * time.Hour

// store is the consumer interface for the memory repository (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo implements the user memory collaborator of the pipeline.
type Repo struct {
	store     store
	prefix    string
	searchTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures Repo.
type Option func(*Repo)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(p string) Option {
	return func(r *Repo) {
		if p != "" {
			r.prefix = p
		}
	}
}

// WithSearchTimestampTTL overrides DefaultSearchTimestampTTL.
func WithSearchTimestampTTL(ttl time.Duration) Option {
	return func(r *Repo) {
		if ttl > 0 {
			r.searchTTL = ttl
		}
	}
}

// WithClock overrides the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) { r.now = now }
}

// New creates a memory repository.
func New(s store, logger *zap.Logger, opts ...Option) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repo{
		store:     s,
		prefix:    DefaultKeyPrefix,
		searchTTL: DefaultSearchTimestampTTL,
		logger:    logger,
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// GetPreferences returns nil, nil when the user has no stored preferences.
func (r *Repo) GetPreferences(ctx context.Context, userID string) (*usercontext.Preferences, error) {
	var p usercontext.Preferences
	ok, err := r.load(ctx, r.key("prefs", userID), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// SavePreferences replaces the stored preferences and stamps UpdatedAt.
func (r *Repo) SavePreferences(ctx context.Context, userID string, p usercontext.Preferences) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	p.UpdatedAt = r.now().UTC()
	return r.save(ctx, r.key("prefs", userID), p, 0)
}

// GetConversationSummary returns nil, nil when no summary is stored.
func (r *Repo) GetConversationSummary(ctx context.Context, userID string) (*usercontext.ConversationSummary, error) {
	var s usercontext.ConversationSummary
	ok, err := r.load(ctx, r.key("summary", userID), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// SaveConversationSummary replaces the stored summary.
func (r *Repo) SaveConversationSummary(ctx context.Context, userID string, s usercontext.ConversationSummary) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	return r.save(ctx, r.key("summary", userID), s, 0)
}

// RecordSearchTimestamp remembers when the user last triggered a web search.
func (r *Repo) RecordSearchTimestamp(ctx context.Context, userID string, at time.Time) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	return r.save(ctx, r.key("last_search", userID), at.UTC(), r.searchTTL)
}

// LastSearch returns the zero time when no search has been recorded.
func (r *Repo) LastSearch(ctx context.Context, userID string) (time.Time, error) {
	var at time.Time
	if _, err := r.load(ctx, r.key("last_search", userID), &at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

// Memory loads everything the context assembler can use for a user.
func (r *Repo) Memory(ctx context.Context, userID string) (usercontext.Memory, error) {
	prefs, err := r.GetPreferences(ctx, userID)
	if err != nil {
		return usercontext.Memory{}, err
	}
	summary, err := r.GetConversationSummary(ctx, userID)
	if err != nil {
		return usercontext.Memory{}, err
	}
	m := usercontext.Memory{Preferences: prefs, Summary: summary}
	if prefs != nil {
		m.Facts = facts(prefs)
	}
	return m, nil
}

func (r *Repo) key(kind, userID string) string {
	return r.prefix + kind + ":" + userID
}

// load reports false when the key is absent. Undecodable values are treated as absent.
func (r *Repo) load(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn("discarding undecodable memory value", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (r *Repo) save(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := r.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	return nil
}

// facts turns stated priorities into statements the assembler can rank by focus area.
func facts(p *usercontext.Preferences) []string {
	out := make([]string, 0, len(p.Priorities))
	for _, pr := range p.Priorities {
		out = append(out, "prioritizes "+pr)
	}
	return out
}
