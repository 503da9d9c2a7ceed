package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brpainel/painel-gateway/internal/entities"
)

// AdminService forwards the admin CRUD screens to upstream. The gateway owns
// none of this data; it only translates envelopes and keeps the routes behind
// the admin session check.
type AdminService struct {
	logger *slog.Logger
	api    PanelClient
}

func NewAdminService(logger *slog.Logger, api PanelClient) *AdminService {
	return &AdminService{logger: logger, api: api}
}

func (s *AdminService) ListAccounts(ctx context.Context) ([]entities.Account, error) {
	var accounts []entities.Account
	if err := s.api.Get(ctx, "/admin/users", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *AdminService) SaveAccount(ctx context.Context, account entities.Account) (*entities.Account, error) {
	var saved entities.Account
	if account.ID == "" {
		if err := s.api.Post(ctx, "/admin/users", account, &saved); err != nil {
			return nil, err
		}
	} else {
		if err := s.api.Put(ctx, "/admin/users/"+account.ID, account, &saved); err != nil {
			return nil, err
		}
	}
	return &saved, nil
}

func (s *AdminService) DeleteAccount(ctx context.Context, id string) error {
	return s.api.Delete(ctx, "/admin/users/"+id, nil)
}

func (s *AdminService) ListPlans(ctx context.Context) ([]entities.Plan, error) {
	var plans []entities.Plan
	if err := s.api.Get(ctx, "/admin/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *AdminService) SavePlan(ctx context.Context, plan entities.Plan) (*entities.Plan, error) {
	var saved entities.Plan
	if plan.ID == "" {
		if err := s.api.Post(ctx, "/admin/plans", plan, &saved); err != nil {
			return nil, err
		}
	} else {
		if err := s.api.Put(ctx, "/admin/plans/"+plan.ID, plan, &saved); err != nil {
			return nil, err
		}
	}
	return &saved, nil
}

func (s *AdminService) DeletePlan(ctx context.Context, id string) error {
	return s.api.Delete(ctx, "/admin/plans/"+id, nil)
}

func (s *AdminService) ListTestimonials(ctx context.Context) ([]entities.Testimonial, error) {
	var items []entities.Testimonial
	if err := s.api.Get(ctx, "/admin/testimonials", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *AdminService) SaveTestimonial(ctx context.Context, item entities.Testimonial) (*entities.Testimonial, error) {
	var saved entities.Testimonial
	if item.ID == "" {
		if err := s.api.Post(ctx, "/admin/testimonials", item, &saved); err != nil {
			return nil, err
		}
	} else {
		if err := s.api.Put(ctx, "/admin/testimonials/"+item.ID, item, &saved); err != nil {
			return nil, err
		}
	}
	return &saved, nil
}

func (s *AdminService) DeleteTestimonial(ctx context.Context, id string) error {
	return s.api.Delete(ctx, "/admin/testimonials/"+id, nil)
}

func (s *AdminService) GetConfig(ctx context.Context, key string) (*entities.ConfigEntry, error) {
	var entry entities.ConfigEntry
	if err := s.api.Get(ctx, "/config/"+key, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *AdminService) SetConfig(ctx context.Context, entry entities.ConfigEntry) error {
	if entry.Key == "" {
		return fmt.Errorf("config key is required")
	}
	return s.api.Put(ctx, "/config/"+entry.Key, entry, nil)
}
