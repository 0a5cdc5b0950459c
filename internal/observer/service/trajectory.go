package service

import (
	"context"
	"sort"
	"time"

	ledger "dustledger/internal/ledger/models"
	"dustledger/internal/observer/models"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/requestcontext"
)

const (
	defaultWindowDays = 7
	maxWindowDays     = 90
)

// SystemTrajectory aggregates per-day activity over the trailing window and
// compares it with the window before it. windowDays outside [1, 90] is an
// input error; store failures degrade to a neutral partial result.
func (s *Service) SystemTrajectory(ctx context.Context, windowDays int) (*models.SystemTrajectory, error) {
	if windowDays == 0 {
		windowDays = defaultWindowDays
	}
	if windowDays < 0 || windowDays > maxWindowDays {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "window days %d outside [1, %d]", windowDays, maxWindowDays)
	}

	now := requestcontext.Now(ctx)
	window := time.Duration(windowDays) * 24 * time.Hour
	windowStart := now.Add(-window)

	trajectory := &models.SystemTrajectory{WindowDays: windowDays}

	// Two adjacent windows in one scan.
	entries, err := s.txlog.ListSince(ctx, now.Add(-2*window))
	if err != nil {
		s.logger.WarnContext(ctx, "trajectory source degraded", "source", "transactions", "error", err)
		trajectory.Partial = true
		trajectory.Degraded = append(trajectory.Degraded, "transactions")
		entries = nil
	}

	days := make(map[time.Time]*models.TrajectoryDay)
	for _, entry := range entries {
		volume := entry.Amount
		if volume < 0 {
			volume = -volume
		}
		if entry.Timestamp.Before(windowStart) {
			trajectory.PreviousVolume += volume
			continue
		}
		trajectory.CurrentVolume += volume

		day := dayFor(days, entry.Timestamp)
		day.Transactions++
		day.Volume += volume
		switch entry.Kind {
		case ledger.KindCredit, ledger.KindRedemption:
			day.Credits += volume
		case ledger.KindDebit:
			day.Debits += volume
		case ledger.KindBurn:
			day.Burned += volume
		}
		day.NetFlow = day.Credits - day.Debits - day.Burned
	}

	s.countVoters(ctx, trajectory, days, now.Add(-2*window), windowStart)

	trajectory.Days = make([]models.TrajectoryDay, 0, len(days))
	for _, day := range days {
		trajectory.Days = append(trajectory.Days, *day)
	}
	sort.Slice(trajectory.Days, func(i, j int) bool {
		return trajectory.Days[i].Date.Before(trajectory.Days[j].Date)
	})

	if trajectory.PreviousVolume > 0 {
		trajectory.VolumeTrend = trajectory.CurrentVolume.Float()/trajectory.PreviousVolume.Float() - 1
	}
	return trajectory, nil
}

// countVoters folds governance participation into the day buckets using
// vote timestamps. All proposals are read regardless of status; a ballot
// cast inside the window still counts after its proposal resolves.
func (s *Service) countVoters(ctx context.Context, trajectory *models.SystemTrajectory, days map[time.Time]*models.TrajectoryDay, previousStart, windowStart time.Time) {
	proposals, err := s.proposals.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "trajectory source degraded", "source", "proposals", "error", err)
		trajectory.Partial = true
		trajectory.Degraded = append(trajectory.Degraded, "proposals")
		return
	}

	current := make(map[string]struct{})
	previous := make(map[string]struct{})
	for _, proposal := range proposals {
		for _, vote := range proposal.Votes {
			if vote.CastAt.Before(previousStart) {
				continue
			}
			if vote.CastAt.Before(windowStart) {
				previous[vote.Voter.String()] = struct{}{}
				continue
			}
			current[vote.Voter.String()] = struct{}{}
			dayFor(days, vote.CastAt).Voters++
		}
	}
	trajectory.CurrentVoters = len(current)
	trajectory.PreviousVoters = len(previous)
}

func dayFor(days map[time.Time]*models.TrajectoryDay, at time.Time) *models.TrajectoryDay {
	date := at.UTC().Truncate(24 * time.Hour)
	day, ok := days[date]
	if !ok {
		day = &models.TrajectoryDay{Date: date}
		days[date] = day
	}
	return day
}
