package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/notify"
	"github.com/sakif/careerdeck/internal/repository"
)

// DefaultNotifyMinScore is the lowest score that triggers a notification.
// It lines up with the "strong" tier members see in the feed.
const DefaultNotifyMinScore = 80

// notifyBatchSize caps how many matches one sweep announces.
const notifyBatchSize = 100

// MatchService serves the pre-apply match feed and the notification sweep.
// The matching engine itself is external: it pushes pairings in through
// Ingest.
type MatchService struct {
	repo      repository.MatchRepository
	publisher notify.Publisher
	minScore  int
	logger    *slog.Logger
	now       func() time.Time
}

// NewMatchService creates a new MatchService. Matches scoring at least
// minScore are announced through publisher.
func NewMatchService(repo repository.MatchRepository, publisher notify.Publisher, minScore int, logger *slog.Logger) *MatchService {
	if minScore <= 0 || minScore > 100 {
		minScore = DefaultNotifyMinScore
	}
	return &MatchService{
		repo:      repo,
		publisher: publisher,
		minScore:  minScore,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the member's active matches, best first. The order is part
// of the contract: clients render it as is.
func (s *MatchService) List(ctx context.Context, memberID string, limit, offset int) ([]model.Match, error) {
	matches, err := s.repo.ListActive(ctx, memberID, listOptions(limit, offset))
	if err != nil {
		s.logger.Error("failed to list matches", slog.String("memberID", memberID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	return matches, nil
}

// Dismiss hides a match from the feed for good.
func (s *MatchService) Dismiss(ctx context.Context, memberID, jobID string) error {
	return s.transition(ctx, memberID, jobID, model.MatchDismissed)
}

// MarkApplied records that the member applied; the match leaves the feed.
func (s *MatchService) MarkApplied(ctx context.Context, memberID, jobID string) error {
	return s.transition(ctx, memberID, jobID, model.MatchApplied)
}

func (s *MatchService) transition(ctx context.Context, memberID, jobID string, to model.MatchStatus) error {
	jobID, err := requireID("jobId", jobID)
	if err != nil {
		return err
	}

	m, err := s.repo.GetByJob(ctx, memberID, jobID)
	if err != nil {
		return err
	}
	// Only active matches are visible, so anything else looks missing.
	if !m.Status.CanTransition(to) {
		return apperror.NotFound("active match for job", jobID)
	}

	if err := s.repo.SetStatus(ctx, m.ID, m.Status, to); err != nil {
		return err
	}

	s.logger.Info("match status changed",
		slog.String("matchID", m.ID),
		slog.String("jobID", jobID),
		slog.String("from", string(m.Status)),
		slog.String("to", string(to)),
	)
	return nil
}

// IngestRequest is one pairing pushed by the matching engine.
type IngestRequest struct {
	MemberID string
	Job      model.Job
	Score    int
}

// Ingest upserts the job and creates the match unless the member already
// has one for it. created is false when an existing match was returned.
func (s *MatchService) Ingest(ctx context.Context, req IngestRequest) (m *model.Match, created bool, err error) {
	memberID, err := requireID("memberId", req.MemberID)
	if err != nil {
		return nil, false, err
	}
	if _, err := requireID("job.id", req.Job.ID); err != nil {
		return nil, false, err
	}
	if req.Job.Title, err = checkLength("job.title", req.Job.Title, 200, true); err != nil {
		return nil, false, err
	}
	if req.Score < 0 || req.Score > 100 {
		return nil, false, apperror.ValidationFailed("score", "score must be between 0 and 100")
	}
	if req.Job.SalaryLow < 0 || req.Job.SalaryHigh < 0 ||
		(req.Job.SalaryHigh > 0 && req.Job.SalaryLow > req.Job.SalaryHigh) {
		return nil, false, apperror.ValidationFailed("job.salary", "salary range is invalid")
	}
	req.Job.Company = strings.TrimSpace(req.Job.Company)

	if err := s.repo.UpsertJob(ctx, &req.Job); err != nil {
		return nil, false, fmt.Errorf("ingesting job %s: %w", req.Job.ID, err)
	}

	existing, err := s.repo.GetByJob(ctx, memberID, req.Job.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("checking existing match: %w", err)
	}

	m = &model.Match{MemberID: memberID, MatchScore: req.Score, Job: req.Job, Status: model.MatchActive}
	if err := s.repo.CreateMatch(ctx, m); err != nil {
		// Lost a race with a concurrent ingest of the same pairing.
		if errors.Is(err, apperror.ErrConflict) {
			existing, getErr := s.repo.GetByJob(ctx, memberID, req.Job.ID)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("creating match: %w", err)
	}

	s.logger.Info("match ingested",
		slog.String("matchID", m.ID),
		slog.String("memberID", memberID),
		slog.String("jobID", req.Job.ID),
		slog.Int("score", req.Score),
	)
	return m, true, nil
}

// NotifyPending announces every active match at or above the threshold that
// has not been announced yet. A match is stamped only after a successful
// publish, so failures are retried by the next sweep and nothing is
// announced twice. Returns the number published.
func (s *MatchService) NotifyPending(ctx context.Context) (int, error) {
	pending, err := s.repo.PendingNotifications(ctx, s.minScore, notifyBatchSize)
	if err != nil {
		return 0, fmt.Errorf("loading pending notifications: %w", err)
	}

	published := 0
	var errs []error
	for _, m := range pending {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ev := notify.MatchEvent{
			Type:     notify.EventMatchFound,
			MatchID:  m.ID,
			MemberID: m.MemberID,
			JobID:    m.Job.ID,
			JobTitle: m.Job.Title,
			Company:  m.Job.Company,
			Score:    m.MatchScore,
			At:       s.now(),
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("publish match notification failed",
				slog.String("matchID", m.ID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		if err := s.repo.MarkNotified(ctx, m.ID, ev.At); err != nil {
			errs = append(errs, err)
			continue
		}
		published++
	}
	return published, errors.Join(errs...)
}
