// Package settings manages the fixed documents under the settings collection:
// the tax rate and the store profile used on receipts.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

const (
	taxKey     = "tax"
	profileKey = "store"
)

// Service implements settings operations against the tree store.
type Service struct {
	tree     store.Tree
	logger   zerolog.Logger
	validate *validator.Validate

	// Now is injectable for tests.
	Now func() time.Time
}

// NewService constructs a settings service.
func NewService(tree store.Tree, logger zerolog.Logger) (*Service, error) {
	if tree == nil {
		return nil, errors.New("settings: tree is required")
	}
	return &Service{tree: tree, logger: logger, validate: validator.New(), Now: time.Now}, nil
}

// Tax returns the configured tax rate. Absent configuration means zero.
func (s *Service) Tax(ctx context.Context) (model.TaxSetting, error) {
	var tax model.TaxSetting
	err := s.tree.Get(ctx, model.ColSettings, taxKey, &tax)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.TaxSetting{}, fmt.Errorf("settings: get tax: %w", err)
	}
	return tax, nil
}

// SetTax stores the tax rate. Rate is a percentage between 0 and 100.
func (s *Service) SetTax(ctx context.Context, rate float64) (model.TaxSetting, error) {
	tax := model.TaxSetting{Rate: rate, UpdatedAt: s.Now().UnixMilli()}
	if err := common.ValidateStruct(s.validate, tax); err != nil {
		return model.TaxSetting{}, err
	}
	if err := s.tree.Set(ctx, model.ColSettings, taxKey, tax); err != nil {
		return model.TaxSetting{}, fmt.Errorf("settings: set tax: %w", err)
	}
	s.logger.Info().Float64("rate", rate).Msg("tax rate updated")
	return tax, nil
}

// EnsureTax seeds the tax rate when none has been configured yet. A stored
// rate, including an explicit zero, is left untouched.
func (s *Service) EnsureTax(ctx context.Context, rate float64) error {
	var existing model.TaxSetting
	err := s.tree.Get(ctx, model.ColSettings, taxKey, &existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("settings: ensure tax: %w", err)
	}
	if _, err := s.SetTax(ctx, rate); err != nil {
		return err
	}
	s.logger.Info().Float64("rate", rate).Msg("tax rate seeded from defaults")
	return nil
}

// Profile returns the store profile. Absent configuration means empty fields.
func (s *Service) Profile(ctx context.Context) (model.StoreProfile, error) {
	var profile model.StoreProfile
	err := s.tree.Get(ctx, model.ColSettings, profileKey, &profile)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.StoreProfile{}, fmt.Errorf("settings: get profile: %w", err)
	}
	return profile, nil
}

// SetProfile stores the store profile.
func (s *Service) SetProfile(ctx context.Context, profile model.StoreProfile) (model.StoreProfile, error) {
	if err := common.ValidateStruct(s.validate, profile); err != nil {
		return model.StoreProfile{}, err
	}
	profile.UpdatedAt = s.Now().UnixMilli()
	if err := s.tree.Set(ctx, model.ColSettings, profileKey, profile); err != nil {
		return model.StoreProfile{}, fmt.Errorf("settings: set profile: %w", err)
	}
	return profile, nil
}
