package application

import (
	"context"
	"fmt"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// MembersUseCase serves the member directory.
type MembersUseCase struct {
	members      domain.MemberRepository
	timeProvider TimeProvider
	logger       *logging.Logger
}

// NewMembersUseCase creates a new MembersUseCase.
func NewMembersUseCase(members domain.MemberRepository, logger *logging.Logger) *MembersUseCase {
	return &MembersUseCase{
		members:      members,
		timeProvider: RealTime,
		logger:       logger.WithComponent("members"),
	}
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *MembersUseCase) WithTimeProvider(tp TimeProvider) *MembersUseCase {
	uc.timeProvider = tp
	return uc
}

// ListByMinistry returns the directory grouped by ministry.
func (uc *MembersUseCase) ListByMinistry(ctx context.Context, congregationID string) ([]domain.MinistryGroup, error) {
	members, err := uc.fetch(ctx, congregationID)
	if err != nil {
		return nil, err
	}
	return domain.GroupByMinistry(members), nil
}

// UpcomingBirthdays lists birthdays within the period starting today.
func (uc *MembersUseCase) UpcomingBirthdays(ctx context.Context, congregationID, period string) ([]domain.Birthday, error) {
	p, err := domain.ParseBirthdayPeriod(period)
	if err != nil {
		return nil, err
	}
	members, err := uc.fetch(ctx, congregationID)
	if err != nil {
		return nil, err
	}
	return domain.UpcomingBirthdays(members, domain.DateOf(uc.timeProvider()), p), nil
}

// UpdateContactInput edits a member's optional directory fields.
type UpdateContactInput struct {
	CongregationID string `json:"-"`
	Name           string `json:"name" validate:"notblank"`
	BirthDate      string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Phone          string `json:"phone" validate:"max=30"`
	Email          string `json:"email" validate:"omitempty,email"`
}

// UpdateContact sets birth date and contact data on an existing member.
func (uc *MembersUseCase) UpdateContact(ctx context.Context, input UpdateContactInput) (*domain.Member, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	id, err := domain.ParseCongregationID(input.CongregationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	m, err := uc.members.FindByName(ctx, id, input.Name)
	if err != nil {
		return nil, err
	}

	var birth domain.CalendarDate
	if input.BirthDate != "" {
		birth, err = domain.ParseCalendarDate(input.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("%w: birthDate", domain.ErrInvalidInput)
		}
	}
	m.UpdateContact(birth, input.Phone, input.Email)

	if err := uc.members.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("saving member: %w", err)
	}
	uc.logger.Info("member updated",
		"congregation_id", id.String(),
		"member_id", m.ID().String(),
	)
	return m, nil
}

func (uc *MembersUseCase) fetch(ctx context.Context, rawID string) ([]*domain.Member, error) {
	id, err := domain.ParseCongregationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	members, err := uc.members.FetchAll(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching members: %w", err)
	}
	return members, nil
}
