package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/optimistic"
)

var (
	_ optimistic.Remote[model.CareerGoal]  = GoalRemote{}
	_ optimistic.Remote[model.Reference]   = ReferenceRemote{}
	_ optimistic.Remote[model.FeatureFlag] = FlagRemote{}
)

// Goals returns an optimistic store over the member's career goals.
func (c *Client) Goals(logger *slog.Logger) *optimistic.Store[model.CareerGoal] {
	return optimistic.NewStore[model.CareerGoal]("goals", GoalRemote{c}, logger)
}

// References returns an optimistic store over the member's references.
func (c *Client) References(logger *slog.Logger) *optimistic.Store[model.Reference] {
	return optimistic.NewStore[model.Reference]("references", ReferenceRemote{c}, logger)
}

// FeatureFlags returns an optimistic store over every flag. Admin only.
func (c *Client) FeatureFlags(logger *slog.Logger) *optimistic.Store[model.FeatureFlag] {
	return optimistic.NewStore[model.FeatureFlag]("feature-flags", FlagRemote{c}, logger)
}

// GoalRemote maps goal CRUD onto /api/goals.
type GoalRemote struct{ c *Client }

type goalBody struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	TargetDate  *string `json:"targetDate,omitempty"`
	Progress    *int    `json:"progress,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func goalFields(g model.CareerGoal) goalBody {
	b := goalBody{Title: &g.Title, Description: &g.Description, TargetDate: &g.TargetDate, Progress: &g.Progress}
	if g.Status != "" {
		s := string(g.Status)
		b.Status = &s
	}
	return b
}

func (r GoalRemote) List(ctx context.Context) ([]model.CareerGoal, error) {
	var res struct {
		Goals []model.CareerGoal `json:"goals"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/api/goals", nil, nil, &res); err != nil {
		return nil, err
	}
	if res.Goals == nil {
		res.Goals = []model.CareerGoal{}
	}
	return res.Goals, nil
}

func (r GoalRemote) Create(ctx context.Context, g model.CareerGoal) (model.CareerGoal, error) {
	var out model.CareerGoal
	err := r.c.do(ctx, http.MethodPost, "/api/goals", nil, goalFields(g), &out)
	return out, err
}

func (r GoalRemote) Update(ctx context.Context, id string, g model.CareerGoal) (model.CareerGoal, error) {
	var out model.CareerGoal
	err := r.c.do(ctx, http.MethodPatch, "/api/goals/"+url.PathEscape(id), nil, goalFields(g), &out)
	return out, err
}

func (r GoalRemote) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, "/api/goals/"+url.PathEscape(id), nil, nil, nil)
}

func (GoalRemote) Key(g model.CareerGoal) string { return g.ID }

// ReferenceRemote maps reference CRUD onto /api/references.
type ReferenceRemote struct{ c *Client }

type referenceBody struct {
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	Company      *string `json:"company,omitempty"`
	Status       *string `json:"status,omitempty"`
}

func referenceFields(ref model.Reference) referenceBody {
	b := referenceBody{Name: &ref.Name, Email: &ref.Email, Relationship: &ref.Relationship, Company: &ref.Company}
	if ref.Status != "" {
		s := string(ref.Status)
		b.Status = &s
	}
	return b
}

func (r ReferenceRemote) List(ctx context.Context) ([]model.Reference, error) {
	var res struct {
		References []model.Reference `json:"references"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/api/references", nil, nil, &res); err != nil {
		return nil, err
	}
	if res.References == nil {
		res.References = []model.Reference{}
	}
	return res.References, nil
}

func (r ReferenceRemote) Create(ctx context.Context, ref model.Reference) (model.Reference, error) {
	var out model.Reference
	err := r.c.do(ctx, http.MethodPost, "/api/references", nil, referenceFields(ref), &out)
	return out, err
}

func (r ReferenceRemote) Update(ctx context.Context, id string, ref model.Reference) (model.Reference, error) {
	var out model.Reference
	err := r.c.do(ctx, http.MethodPatch, "/api/references/"+url.PathEscape(id), nil, referenceFields(ref), &out)
	return out, err
}

func (r ReferenceRemote) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, "/api/references/"+url.PathEscape(id), nil, nil, nil)
}

func (ReferenceRemote) Key(ref model.Reference) string { return ref.ID }

// FlagRemote maps flag administration onto /api/admin/feature-flags. The
// server upserts on PUT, so Create and Update share a request.
type FlagRemote struct{ c *Client }

type flagBody struct {
	Description    string `json:"description"`
	Enabled        bool   `json:"enabled"`
	RolloutPercent int    `json:"rolloutPercent"`
}

func (r FlagRemote) List(ctx context.Context) ([]model.FeatureFlag, error) {
	var res struct {
		Flags []model.FeatureFlag `json:"flags"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/api/admin/feature-flags", nil, nil, &res); err != nil {
		return nil, err
	}
	if res.Flags == nil {
		res.Flags = []model.FeatureFlag{}
	}
	return res.Flags, nil
}

func (r FlagRemote) Create(ctx context.Context, f model.FeatureFlag) (model.FeatureFlag, error) {
	return r.Update(ctx, f.Key, f)
}

func (r FlagRemote) Update(ctx context.Context, key string, f model.FeatureFlag) (model.FeatureFlag, error) {
	var out model.FeatureFlag
	body := flagBody{Description: f.Description, Enabled: f.Enabled, RolloutPercent: f.RolloutPercent}
	err := r.c.do(ctx, http.MethodPut, "/api/admin/feature-flags/"+url.PathEscape(key), nil, body, &out)
	return out, err
}

func (r FlagRemote) Delete(ctx context.Context, key string) error {
	return r.c.do(ctx, http.MethodDelete, "/api/admin/feature-flags/"+url.PathEscape(key), nil, nil, nil)
}

func (FlagRemote) Key(f model.FeatureFlag) string { return f.Key }
