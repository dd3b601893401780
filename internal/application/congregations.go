package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// PasswordHasher hashes and checks panel passwords.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Compare(hash []byte, password string) error
}

// SlugInvalidator is implemented by congregation repositories that cache slug lookups.
type SlugInvalidator interface {
	Invalidate(slug domain.Slug)
}

// CreateCongregationInput contains the data needed to register a congregation.
type CreateCongregationInput struct {
	Slug     string `json:"slug" validate:"required,congregation_slug"`
	Name     string `json:"name" validate:"notblank,max=255"`
	Address  string `json:"address" validate:"max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CreateCongregationOutput contains the result of congregation creation.
type CreateCongregationOutput struct {
	CongregationID string
	Slug           string
	Name           string
}

// use case specific errors
var (
	ErrSlugAlreadyExists = errors.New("congregation with this slug already exists")
)

// CongregationUseCase handles congregation administration.
type CongregationUseCase struct {
	congregationRepo domain.CongregationRepository
	credentialsRepo  domain.CredentialsRepository
	uow              UnitOfWork
	hasher           PasswordHasher
	logger           *logging.Logger
}

// NewCongregationUseCase creates a new CongregationUseCase.
func NewCongregationUseCase(
	congregationRepo domain.CongregationRepository,
	credentialsRepo domain.CredentialsRepository,
	uow UnitOfWork,
	hasher PasswordHasher,
	logger *logging.Logger,
) *CongregationUseCase {
	return &CongregationUseCase{
		congregationRepo: congregationRepo,
		credentialsRepo:  credentialsRepo,
		uow:              uow,
		hasher:           hasher,
		logger:           logger.WithComponent("congregations"),
	}
}

// Create registers a congregation together with its panel password.
// both rows are written in one transaction.
func (uc *CongregationUseCase) Create(ctx context.Context, input CreateCongregationInput) (*CreateCongregationOutput, error) {
	if err := validateStruct(input); err != nil {
		uc.logger.Info("create congregation failed: invalid input",
			"slug", input.Slug,
			"reason", err.Error(),
		)
		return nil, err
	}

	slug, err := domain.NewSlug(input.Slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	existing, err := uc.congregationRepo.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		uc.logger.Error("create congregation failed: error checking slug",
			"slug", slug.String(),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("checking slug availability: %w", err)
	}
	if existing != nil {
		uc.logger.Info("create congregation failed: slug already exists",
			"slug", slug.String(),
		)
		return nil, ErrSlugAlreadyExists
	}

	congregation, err := domain.NewCongregation(slug, input.Name, input.Address)
	if err != nil {
		return nil, fmt.Errorf("creating congregation: %w", err)
	}

	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	err = RunInTransaction(ctx, uc.uow, func(txCtx context.Context) error {
		if err := uc.congregationRepo.Save(txCtx, congregation); err != nil {
			return fmt.Errorf("saving congregation: %w", err)
		}
		return uc.credentialsRepo.Save(txCtx, domain.PanelCredentials{
			CongregationID: congregation.ID(),
			PasswordHash:   hash,
			UpdatedAt:      congregation.CreatedAt(),
		})
	})
	if err != nil {
		uc.logger.Error("create congregation failed: save error",
			"slug", slug.String(),
			"error", err.Error(),
		)
		return nil, err
	}

	// a lookup racing the transaction may have cached the slug as unknown
	if inv, ok := uc.congregationRepo.(SlugInvalidator); ok {
		inv.Invalidate(slug)
	}

	uc.logger.Info("congregation created",
		"congregation_id", congregation.ID().String(),
		"slug", slug.String(),
	)

	return &CreateCongregationOutput{
		CongregationID: congregation.ID().String(),
		Slug:           slug.String(),
		Name:           congregation.Name(),
	}, nil
}

// List returns every congregation with its counters.
func (uc *CongregationUseCase) List(ctx context.Context) ([]domain.CongregationStats, error) {
	stats, err := uc.congregationRepo.ListStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing congregations: %w", err)
	}
	return stats, nil
}

// Get resolves a congregation by slug.
func (uc *CongregationUseCase) Get(ctx context.Context, rawSlug string) (*domain.Congregation, error) {
	slug, err := domain.NewSlug(rawSlug)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	c, err := uc.congregationRepo.FindBySlug(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCongregationNotFound
	}
	return c, err
}

// Deactivate closes a congregation to new reports. history is kept.
func (uc *CongregationUseCase) Deactivate(ctx context.Context, rawSlug string) error {
	c, err := uc.Get(ctx, rawSlug)
	if err != nil {
		return err
	}
	c.Deactivate()
	if err := uc.congregationRepo.Save(ctx, c); err != nil {
		return fmt.Errorf("saving congregation: %w", err)
	}
	uc.logger.Info("congregation deactivated",
		"congregation_id", c.ID().String(),
		"slug", c.Slug().String(),
	)
	return nil
}
