package service

import (
	"context"
	"log/slog"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// GoalService manages a member's career goals.
type GoalService struct {
	repo   repository.GoalRepository
	logger *slog.Logger
}

// NewGoalService creates a new GoalService.
func NewGoalService(repo repository.GoalRepository, logger *slog.Logger) *GoalService {
	return &GoalService{repo: repo, logger: logger}
}

// GoalInput carries a create or a partial update. Nil fields are left
// unchanged on update.
type GoalInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	TargetDate  *string `json:"targetDate"`
	Progress    *int    `json:"progress"`
	Status      *string `json:"status"`
}

func (s *GoalService) List(ctx context.Context, userID string) ([]model.CareerGoal, error) {
	return s.repo.ListGoals(ctx, userID)
}

func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (*model.CareerGoal, error) {
	g := &model.CareerGoal{UserID: userID, Status: model.GoalActive}
	if in.Title == nil {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if err := applyGoal(g, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.logger.Info("goal created", slog.String("goalID", g.ID))
	return g, nil
}

func (s *GoalService) Update(ctx context.Context, userID, id string, in GoalInput) (*model.CareerGoal, error) {
	g, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := applyGoal(g, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	g, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.repo.DeleteGoal(ctx, g.ID)
}

func (s *GoalService) owned(ctx context.Context, userID, id string) (*model.CareerGoal, error) {
	id, err := requireID("goalId", id)
	if err != nil {
		return nil, err
	}
	g, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != userID {
		return nil, apperror.NotFound("goal", id)
	}
	return g, nil
}

// applyGoal validates in and copies the set fields onto g. Reaching 100%
// progress on an active goal completes it.
func applyGoal(g *model.CareerGoal, in GoalInput) error {
	if in.Title != nil {
		title, err := checkLength("title", *in.Title, MaxTitleLength, true)
		if err != nil {
			return err
		}
		g.Title = title
	}
	if in.Description != nil {
		desc, err := checkLength("description", *in.Description, MaxDescriptionLength, false)
		if err != nil {
			return err
		}
		g.Description = desc
	}
	if in.TargetDate != nil {
		if *in.TargetDate != "" {
			if _, err := parseDate("targetDate", *in.TargetDate); err != nil {
				return err
			}
		}
		g.TargetDate = *in.TargetDate
	}
	if in.Progress != nil {
		if *in.Progress < 0 || *in.Progress > 100 {
			return apperror.ValidationFailed("progress", "progress must be between 0 and 100")
		}
		g.Progress = *in.Progress
	}
	if in.Status != nil {
		to, err := model.ParseGoalStatus(*in.Status)
		if err != nil {
			return apperror.ValidationFailed("status", "status must be active, completed or cancelled")
		}
		if !g.Status.CanTransition(to) {
			return apperror.Conflict("goal cannot move from " + string(g.Status) + " to " + string(to))
		}
		g.Status = to
	}
	if in.Status == nil && g.Status == model.GoalActive && g.Progress == 100 {
		g.Status = model.GoalCompleted
	}
	return nil
}
