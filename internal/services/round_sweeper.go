package services

import (
	"context"
	"time"

	"github.com/tapin/server/internal/engine"
	"github.com/tapin/server/internal/observability"
)

// RoundSweeper periodically rolls over live rounds whose deadline has
// elapsed. Each expiry carries the round id the sweeper observed, so a
// round replaced between the snapshot and the rollover is left alone.
type RoundSweeper struct {
	engine   *engine.Engine
	hub      *WebSocketHub
	metrics  *observability.BusinessMetrics
	interval time.Duration
}

// NewRoundSweeper creates a new RoundSweeper
func NewRoundSweeper(eng *engine.Engine, hub *WebSocketHub, metrics *observability.BusinessMetrics, interval time.Duration) *RoundSweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RoundSweeper{
		engine:   eng,
		hub:      hub,
		metrics:  metrics,
		interval: interval,
	}
}

// Run sweeps until the context is cancelled.
func (s *RoundSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	observability.Infof("Round sweeper started (interval %s)", s.interval)
	for {
		select {
		case <-ctx.Done():
			observability.Info("Round sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RoundSweeper) sweep(ctx context.Context) {
	now := time.Now()
	for _, round := range s.engine.RoundsSnapshot() {
		if !round.IsExpired(now) {
			continue
		}

		event, err := s.engine.ExpireRound(ctx, round.GroupID, round.RoundID)
		if err != nil {
			observability.Warnf("Round expiry persist failed for group %s: %v", round.GroupID, err)
		}
		if event == nil {
			continue
		}

		observability.Infof("Round %s expired for group %s, new round %s",
			event.OldRoundID, event.GroupID, event.NewRound.RoundID)
		if s.metrics != nil {
			s.metrics.RecordRollover(ctx, event.GroupID, "expired")
		}
		if s.hub != nil {
			payload := RoundEventPayload{
				GroupID:          event.GroupID,
				RoundID:          event.NewRound.RoundID,
				PreviousRoundID:  event.OldRoundID,
				Status:           string(event.NewRound.Status),
				Prompt:           event.NewRound.Prompt,
				SecondsRemaining: 0,
			}
			s.hub.BroadcastToTopic(GroupTopic(event.GroupID), WSMessage{
				Type:    WSTypeRoundEnded,
				Payload: payload,
			})
		}
	}
}
