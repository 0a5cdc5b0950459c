package service

import (
	"context"
	"fmt"
	"time"

	ledger "dustledger/internal/ledger/models"
	"dustledger/internal/observer/models"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

const (
	// concentrationThreshold flags the richest decile holding over half
	// of all wealth.
	concentrationThreshold = 0.5
	// velocityThreshold flags one actor absorbing this many credits
	// inside a single day.
	velocityThreshold = 20
	velocityWindow    = 24 * time.Hour
)

// DetectEmergentPatterns runs the detector battery over the current ledger
// state. A detector whose data source fails reports not-detected with the
// failure in its evidence; the battery itself never errors.
func (s *Service) DetectEmergentPatterns(ctx context.Context) []models.Pattern {
	now := requestcontext.Now(ctx)

	patterns := []models.Pattern{
		s.detectWealthConcentration(ctx),
		s.detectReputationVelocity(ctx, now),
		// Placeholders until enough history accumulates to calibrate.
		{Name: models.PatternCoordinatedVoting},
		{Name: models.PatternWashTrading},
	}

	detected := 0
	for _, p := range patterns {
		s.metrics.RecordPattern(p.Name, p.Detected)
		if p.Detected {
			detected++
			s.archive(ctx, audit.Event{
				Timestamp: now,
				Action:    audit.EventObserverReport,
				Decision:  "pattern_detected",
				Reason:    p.Name,
				Details:   p.Evidence,
			})
		}
	}
	if detected > 0 {
		s.logger.InfoContext(ctx, "emergent patterns detected", "count", detected)
	}
	return patterns
}

func (s *Service) detectWealthConcentration(ctx context.Context) models.Pattern {
	pattern := models.Pattern{Name: models.PatternWealthConcentration}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "detector source degraded", "pattern", pattern.Name, "error", err)
		pattern.Evidence = map[string]string{"degraded": "accounts"}
		return pattern
	}

	wealth := make([]float64, 0, len(accounts))
	for _, account := range accounts {
		if account.ID.IsSystem() {
			continue
		}
		wealth = append(wealth, circulating(account).Float())
	}

	share := topDecileShare(wealth)
	pattern.Evidence = map[string]string{
		"top_decile_share": fmt.Sprintf("%.4f", share),
		"accounts":         fmt.Sprintf("%d", len(wealth)),
	}
	if share > concentrationThreshold {
		pattern.Detected = true
		// Scale the excess over the threshold into (0, 1].
		pattern.Confidence = (share - concentrationThreshold) / (1 - concentrationThreshold)
	}
	return pattern
}

func (s *Service) detectReputationVelocity(ctx context.Context, now time.Time) models.Pattern {
	pattern := models.Pattern{Name: models.PatternReputationVelocity}

	entries, err := s.txlog.ListSince(ctx, now.Add(-velocityWindow))
	if err != nil {
		s.logger.WarnContext(ctx, "detector source degraded", "pattern", pattern.Name, "error", err)
		pattern.Evidence = map[string]string{"degraded": "transactions"}
		return pattern
	}

	credits := make(map[string]int)
	topActor, topCount := "", 0
	for _, entry := range entries {
		if entry.Kind != ledger.KindCredit {
			continue
		}
		actor := entry.Actor.String()
		credits[actor]++
		if credits[actor] > topCount {
			topActor, topCount = actor, credits[actor]
		}
	}

	pattern.Evidence = map[string]string{
		"top_actor":   topActor,
		"credits_24h": fmt.Sprintf("%d", topCount),
	}
	if topCount > velocityThreshold {
		pattern.Detected = true
		confidence := float64(topCount-velocityThreshold) / float64(velocityThreshold)
		if confidence > 1 {
			confidence = 1
		}
		pattern.Confidence = confidence
	}
	return pattern
}
