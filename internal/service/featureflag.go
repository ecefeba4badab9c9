package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

var flagKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_.-]{1,63}$`)

// FeatureFlagService manages flags (admin) and evaluates them per member.
type FeatureFlagService struct {
	repo   repository.FeatureFlagRepository
	logger *slog.Logger
}

// NewFeatureFlagService creates a new FeatureFlagService.
func NewFeatureFlagService(repo repository.FeatureFlagRepository, logger *slog.Logger) *FeatureFlagService {
	return &FeatureFlagService{repo: repo, logger: logger}
}

// FlagInput is the admin payload. A nil RolloutPercent means 100 on create
// and "unchanged" on update.
type FlagInput struct {
	Description    *string `json:"description"`
	Enabled        *bool   `json:"enabled"`
	RolloutPercent *int    `json:"rolloutPercent"`
}

func (s *FeatureFlagService) List(ctx context.Context) ([]model.FeatureFlag, error) {
	return s.repo.ListFlags(ctx)
}

// Save creates the flag or applies in to the existing one.
func (s *FeatureFlagService) Save(ctx context.Context, key string, in FlagInput) (*model.FeatureFlag, error) {
	if !flagKeyPattern.MatchString(key) {
		return nil, apperror.ValidationFailed("key", "key must be 2-64 lowercase letters, digits, '.', '_' or '-'")
	}

	f, err := s.repo.GetFlag(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		f = &model.FeatureFlag{Key: key, RolloutPercent: 100}
	default:
		return nil, err
	}

	if in.Description != nil {
		desc, err := checkLength("description", *in.Description, 500, false)
		if err != nil {
			return nil, err
		}
		f.Description = desc
	}
	if in.Enabled != nil {
		f.Enabled = *in.Enabled
	}
	if in.RolloutPercent != nil {
		if *in.RolloutPercent < 0 || *in.RolloutPercent > 100 {
			return nil, apperror.ValidationFailed("rolloutPercent", "rolloutPercent must be between 0 and 100")
		}
		f.RolloutPercent = *in.RolloutPercent
	}

	if err := s.repo.SaveFlag(ctx, f); err != nil {
		return nil, fmt.Errorf("saving flag %s: %w", key, err)
	}
	s.logger.Info("feature flag saved",
		slog.String("key", key),
		slog.Bool("enabled", f.Enabled),
		slog.Int("rollout", f.RolloutPercent),
	)
	return f, nil
}

func (s *FeatureFlagService) Delete(ctx context.Context, key string) error {
	if err := s.repo.DeleteFlag(ctx, key); err != nil {
		return err
	}
	s.logger.Info("feature flag deleted", slog.String("key", key))
	return nil
}

// Evaluate returns every flag's value for userID. An anonymous caller
// (empty userID) only sees fully rolled-out flags as enabled.
func (s *FeatureFlagService) Evaluate(ctx context.Context, userID string) (map[string]bool, error) {
	flags, err := s.repo.ListFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	out := make(map[string]bool, len(flags))
	for i := range flags {
		f := &flags[i]
		if userID == "" {
			out[f.Key] = f.Enabled && f.RolloutPercent >= 100
			continue
		}
		out[f.Key] = f.EnabledFor(userID)
	}
	return out, nil
}
