package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// TokenIssuer signs panel session tokens.
type TokenIssuer interface {
	Issue(congregationID, slug string) (token string, expiresAt time.Time, err error)
}

// LoginInput contains the pastoral panel login form.
type LoginInput struct {
	Congregation string `json:"congregation" validate:"required,congregation_slug"`
	Password     string `json:"password" validate:"required"`
}

// LoginOutput contains a signed session token.
type LoginOutput struct {
	Token          string
	ExpiresAt      time.Time
	CongregationID string
	Slug           string
	Name           string
}

// ChangePasswordInput replaces a congregation's panel password.
type ChangePasswordInput struct {
	CongregationID string `json:"-"`
	Current        string `json:"currentPassword" validate:"required"`
	New            string `json:"newPassword" validate:"required,min=8,max=72,nefield=Current"`
}

// PanelAuthUseCase authenticates the pastoral panel.
type PanelAuthUseCase struct {
	congregationRepo domain.CongregationRepository
	credentialsRepo  domain.CredentialsRepository
	hasher           PasswordHasher
	issuer           TokenIssuer
	timeProvider     TimeProvider
	logger           *logging.Logger
}

// NewPanelAuthUseCase creates a new PanelAuthUseCase.
func NewPanelAuthUseCase(
	congregationRepo domain.CongregationRepository,
	credentialsRepo domain.CredentialsRepository,
	hasher PasswordHasher,
	issuer TokenIssuer,
	logger *logging.Logger,
) *PanelAuthUseCase {
	return &PanelAuthUseCase{
		congregationRepo: congregationRepo,
		credentialsRepo:  credentialsRepo,
		hasher:           hasher,
		issuer:           issuer,
		timeProvider:     RealTime,
		logger:           logger.WithComponent("panel_auth"),
	}
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *PanelAuthUseCase) WithTimeProvider(tp TimeProvider) *PanelAuthUseCase {
	uc.timeProvider = tp
	return uc
}

// Login checks the panel password and issues a token.
// unknown congregations and wrong passwords fail the same way.
func (uc *PanelAuthUseCase) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	slug, err := domain.NewSlug(input.Congregation)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	congregation, err := uc.congregationRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Info("panel login failed", "congregation", slug.String(), "outcome", "unknown_congregation")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("congregation lookup: %w", err)
	}

	creds, err := uc.credentialsRepo.FindByCongregation(ctx, congregation.ID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("panel login failed", "congregation", slug.String(), "outcome", "no_credentials")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credentials lookup: %w", err)
	}

	if err := uc.hasher.Compare(creds.PasswordHash, input.Password); err != nil {
		uc.logger.Info("panel login failed", "congregation", slug.String(), "outcome", "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := uc.issuer.Issue(congregation.ID().String(), slug.String())
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	uc.logger.Info("panel login",
		"congregation_id", congregation.ID().String(),
		"outcome", "accepted",
	)

	return &LoginOutput{
		Token:          token,
		ExpiresAt:      expiresAt,
		CongregationID: congregation.ID().String(),
		Slug:           slug.String(),
		Name:           congregation.Name(),
	}, nil
}

// ChangePassword replaces the panel password after checking the current one.
func (uc *PanelAuthUseCase) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if err := validateStruct(input); err != nil {
		return err
	}

	id, err := domain.ParseCongregationID(input.CongregationID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	creds, err := uc.credentialsRepo.FindByCongregation(ctx, id)
	if err != nil {
		return fmt.Errorf("credentials lookup: %w", err)
	}
	if err := uc.hasher.Compare(creds.PasswordHash, input.Current); err != nil {
		return domain.ErrInvalidCredentials
	}

	return uc.SetPassword(ctx, id, input.New)
}

// SetPassword overwrites the panel password without checking the old one.
// used by the admin cli.
func (uc *PanelAuthUseCase) SetPassword(ctx context.Context, id domain.CongregationID, password string) error {
	if len(password) < 8 || len(password) > 72 {
		return fmt.Errorf("%w: password must be 8 to 72 bytes", domain.ErrInvalidInput)
	}
	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	err = uc.credentialsRepo.Save(ctx, domain.PanelCredentials{
		CongregationID: id,
		PasswordHash:   hash,
		UpdatedAt:      uc.timeProvider().UTC(),
	})
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	uc.logger.Info("panel password changed", "congregation_id", id.String())
	return nil
}
