package service

import (
	"context"
	"log/slog"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

const maxReferenceField = 200

// ReferenceService tracks the references a member has asked for.
type ReferenceService struct {
	repo   repository.ReferenceRepository
	logger *slog.Logger
}

// NewReferenceService creates a new ReferenceService.
func NewReferenceService(repo repository.ReferenceRepository, logger *slog.Logger) *ReferenceService {
	return &ReferenceService{repo: repo, logger: logger}
}

// ReferenceInput is a create or a partial update; nil fields are kept.
type ReferenceInput struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Relationship *string `json:"relationship"`
	Company      *string `json:"company"`
	Status       *string `json:"status"`
}

func (s *ReferenceService) List(ctx context.Context, userID string) ([]model.Reference, error) {
	return s.repo.ListReferences(ctx, userID)
}

func (s *ReferenceService) Create(ctx context.Context, userID string, in ReferenceInput) (*model.Reference, error) {
	if in.Name == nil {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if in.Email == nil {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	r := &model.Reference{UserID: userID, Status: model.ReferencePending}
	if err := applyReference(r, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateReference(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("reference added", slog.String("referenceID", r.ID))
	return r, nil
}

func (s *ReferenceService) Update(ctx context.Context, userID, id string, in ReferenceInput) (*model.Reference, error) {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := applyReference(r, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReference(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReferenceService) Delete(ctx context.Context, userID, id string) error {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.repo.DeleteReference(ctx, r.ID)
}

func (s *ReferenceService) owned(ctx context.Context, userID, id string) (*model.Reference, error) {
	id, err := requireID("referenceId", id)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.GetReference(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperror.NotFound("reference", id)
	}
	return r, nil
}

func applyReference(r *model.Reference, in ReferenceInput) error {
	var err error
	if in.Name != nil {
		if r.Name, err = checkLength("name", *in.Name, maxReferenceField, true); err != nil {
			return err
		}
	}
	if in.Email != nil {
		if r.Email, err = normalizeEmail(*in.Email); err != nil {
			return err
		}
	}
	if in.Relationship != nil {
		if r.Relationship, err = checkLength("relationship", *in.Relationship, maxReferenceField, false); err != nil {
			return err
		}
	}
	if in.Company != nil {
		if r.Company, err = checkLength("company", *in.Company, maxReferenceField, false); err != nil {
			return err
		}
	}
	if in.Status != nil {
		to, err := model.ParseReferenceStatus(*in.Status)
		if err != nil {
			return apperror.ValidationFailed("status", "status must be pending, requested, received or declined")
		}
		if !r.Status.CanTransition(to) {
			return apperror.Conflict("reference cannot move from " + string(r.Status) + " to " + string(to))
		}
		r.Status = to
	}
	return nil
}
