package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"ContractScan/internal/domain/models"
	domrepo "ContractScan/internal/domain/repository"
	applogger "ContractScan/pkg/logger"
)

// SupplierRegistry maintains the supply-chain registry. Every mutation rewrites the store.
type SupplierRegistry struct {
	store    domrepo.SupplierStore
	validate *validator.Validate
	l        *applogger.Logger
	mu       sync.Mutex
}

func NewSupplierRegistry(store domrepo.SupplierStore, l *applogger.Logger) *SupplierRegistry {
	return &SupplierRegistry{store: store, validate: validator.New(), l: l}
}

func (r *SupplierRegistry) List(ctx context.Context) ([]models.Supplier, error) {
	return r.store.Load(ctx)
}

// Add appends a supplier. Names are unique, case-insensitively.
func (r *SupplierRegistry) Add(ctx context.Context, s models.Supplier) error {
	s.CompanyName = strings.TrimSpace(s.CompanyName)
	if err := r.validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", models.ErrInvalidSupplier, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	if indexOf(all, s.CompanyName) >= 0 {
		return fmt.Errorf("%w: %s", models.ErrSupplierExists, s.CompanyName)
	}
	if err := r.store.Save(ctx, append(all, s)); err != nil {
		return err
	}
	r.l.Info("supplier added", applogger.String("name", s.CompanyName), applogger.Int("tier", s.TierLevel))
	return nil
}

func (r *SupplierRegistry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(all, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", models.ErrSupplierNotFound, name)
	}
	if err := r.store.Save(ctx, append(all[:i:i], all[i+1:]...)); err != nil {
		return err
	}
	r.l.Info("supplier deleted", applogger.String("name", name))
	return nil
}

// Update sets registry columns (see models.SupplierColumns) on one supplier. Either every
// field applies or none does.
func (r *SupplierRegistry) Update(ctx context.Context, name string, fields map[string]string) (models.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.Load(ctx)
	if err != nil {
		return models.Supplier{}, err
	}
	i := indexOf(all, name)
	if i < 0 {
		return models.Supplier{}, fmt.Errorf("%w: %s", models.ErrSupplierNotFound, name)
	}
	updated := all[i]
	for col, v := range fields {
		if err := updated.SetField(col, v); err != nil {
			if errors.Is(err, models.ErrUnknownSupplierField) {
				return models.Supplier{}, err
			}
			return models.Supplier{}, fmt.Errorf("%w: %w", models.ErrInvalidSupplier, err)
		}
	}
	if err := r.validate.Struct(updated); err != nil {
		return models.Supplier{}, fmt.Errorf("%w: %w", models.ErrInvalidSupplier, err)
	}
	if !strings.EqualFold(updated.CompanyName, name) && indexOf(all, updated.CompanyName) >= 0 {
		return models.Supplier{}, fmt.Errorf("%w: %s", models.ErrSupplierExists, updated.CompanyName)
	}
	all[i] = updated
	if err := r.store.Save(ctx, all); err != nil {
		return models.Supplier{}, err
	}
	r.l.Info("supplier updated", applogger.String("name", name), applogger.Int("fields", len(fields)))
	return updated, nil
}

// PublicByTier returns listed companies of one tier, in registry order.
func (r *SupplierRegistry) PublicByTier(ctx context.Context, tier int) ([]models.Supplier, error) {
	all, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Supplier
	for _, s := range all {
		if s.TierLevel == tier && s.Public() {
			out = append(out, s)
		}
	}
	return out, nil
}

// Seed adds every supplier not yet registered and reports how many were added.
func (r *SupplierRegistry) Seed(ctx context.Context, suppliers []models.Supplier) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, s := range suppliers {
		if indexOf(all, s.CompanyName) >= 0 {
			continue
		}
		all = append(all, s)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := r.store.Save(ctx, all); err != nil {
		return 0, err
	}
	r.l.Info("supplier registry seeded", applogger.Int("added", added), applogger.Int("total", len(all)))
	return added, nil
}

// Roster extends base with the registry's public suppliers of tier.
func (r *SupplierRegistry) Roster(ctx context.Context, base models.Roster, tier int) (models.Roster, error) {
	all, err := r.store.Load(ctx)
	if err != nil {
		return base, err
	}
	return base.WithSuppliers(all, tier), nil
}

func indexOf(all []models.Supplier, name string) int {
	name = strings.TrimSpace(name)
	for i, s := range all {
		if strings.EqualFold(s.CompanyName, name) {
			return i
		}
	}
	return -1
}
