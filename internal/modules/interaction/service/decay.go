package service

import (
	"context"
	"log/slog"

	"anoa.com/voteledger/internal/metrics"
	interactionRepo "anoa.com/voteledger/internal/modules/interaction/repository"
)

const DecayJobName = "score_decay"

// DecayJob lets older popular events fall in the ranking. It runs only when
// a positive percentage is configured.
type DecayJob struct {
	repo     interactionRepo.InteractionRepository
	percent  int
	schedule string
}

func NewDecayJob(repo interactionRepo.InteractionRepository, percent int, schedule string) *DecayJob {
	return &DecayJob{repo: repo, percent: percent, schedule: schedule}
}

func (j *DecayJob) Name() string { return DecayJobName }

func (j *DecayJob) Schedule() string {
	if j.percent <= 0 {
		return ""
	}
	return j.schedule
}

func (j *DecayJob) Execute(ctx context.Context) error {
	if j.percent <= 0 {
		return nil
	}

	rows, err := j.repo.DecayScores(ctx, j.percent)
	if err != nil {
		metrics.ScoreDecayRuns.WithLabelValues("failed").Inc()
		return err
	}

	metrics.ScoreDecayRuns.WithLabelValues("ok").Inc()
	slog.Info("interaction scores decayed", "percent", j.percent, "events", rows)
	return nil
}
