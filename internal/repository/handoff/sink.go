// Package handoff stores contact requests for human support in the KV store.
package handoff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	"github.com/kailas-cloud/tourassist/internal/metrics"
)

// DefaultTTL keeps handoff records for 30 days.
const DefaultTTL = 30 * 24 * time.Hour

// store is the consumer interface for the sink (ISP).
type store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Record is the stored contact request.
type Record struct {
	conversation.Handoff
	CreatedAt time.Time `json:"createdAt"`
}

// Options configures a Sink.
type Options struct {
	KeyPrefix string
	TTL       time.Duration
	Logger    *zap.Logger
}

// Sink writes one record per (conversation, name, phone). Repeated submissions are no-ops.
type Sink struct {
	store  store
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// New creates a sink.
func New(s store, opts Options) *Sink {
	sk := &Sink{
		store:  s,
		prefix: opts.KeyPrefix + "handoff:",
		ttl:    opts.TTL,
		now:    time.Now,
		logger: opts.Logger,
	}
	if sk.ttl <= 0 {
		sk.ttl = DefaultTTL
	}
	if sk.logger == nil {
		sk.logger = zap.NewNop()
	}
	return sk
}

// Submit stores the handoff. Failures wrap domain.ErrHandoffFailed.
func (s *Sink) Submit(ctx context.Context, h conversation.Handoff) error {
	if strings.TrimSpace(h.Name) == "" || strings.TrimSpace(h.Phone) == "" || h.ConversationID == "" {
		metrics.HandoffsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: name, phone and conversation id are required", domain.ErrHandoffFailed)
	}

	now := s.now().UTC()
	data, err := json.Marshal(Record{Handoff: h, CreatedAt: now})
	if err != nil {
		metrics.HandoffsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: marshal: %w", domain.ErrHandoffFailed, err)
	}

	created, err := s.store.SetNX(ctx, s.recordKey(h), data, s.ttl)
	if err != nil {
		metrics.HandoffsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: store: %w", domain.ErrHandoffFailed, err)
	}
	if !created {
		metrics.HandoffsTotal.WithLabelValues("duplicate").Inc()
		s.logger.Debug("handoff already submitted", zap.String("conversation_id", h.ConversationID))
		return nil
	}

	metrics.HandoffsTotal.WithLabelValues("created").Inc()
	s.count(ctx, now)
	s.logger.Info("handoff created", zap.String("conversation_id", h.ConversationID))
	return nil
}

// count bumps the per-day counter. Best effort: the record is already stored.
func (s *Sink) count(ctx context.Context, now time.Time) {
	key := s.prefix + "count:" + now.Format("20060102")
	if _, err := s.store.IncrBy(ctx, key, 1); err != nil {
		s.logger.Warn("handoff counter failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
		s.logger.Warn("handoff counter expire failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Sink) recordKey(h conversation.Handoff) string {
	sum := sha256.Sum256([]byte(h.Name + "\x00" + h.Phone))
	return s.prefix + h.ConversationID + ":" + hex.EncodeToString(sum[:6])
}
