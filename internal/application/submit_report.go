package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// SubmitReportInput contains a member's weekly report as sent by the reporting form.
// limits mirror what the form allows; the normalizer downstream stays permissive.
type SubmitReportInput struct {
	CongregationSlug string  `json:"congregation" validate:"required,congregation_slug"`
	MemberID         *string `json:"memberId" validate:"omitempty,uuid"`
	MemberName       string  `json:"memberName" validate:"notblank,max=100"`
	Ministry         string  `json:"ministry" validate:"notblank,max=60"`
	Chapters         int     `json:"chapters" validate:"gte=0,lte=500"`
	PrayerHours      int     `json:"prayerHours" validate:"gte=0,lte=168"`
	PrayerMinutes    int     `json:"prayerMinutes" validate:"gte=0,lte=59"`
	FastingDays      int     `json:"fastingDays" validate:"gte=0,lte=7"`
	SoulsReached     int     `json:"soulsReached" validate:"gte=0,lte=1000"`
	FamilyAltar      bool    `json:"familyAltar"`
}

// SubmitReportOutput contains the result of a submission.
type SubmitReportOutput struct {
	ReportID       string
	CongregationID string
	Date           string
	WeekStart      string
	Queued         bool
}

// ReportQueue accepts documents for asynchronous batch persistence.
// Enqueue returns false when the buffer is full, the caller then writes synchronously.
type ReportQueue interface {
	Enqueue(doc *domain.ReportDocument) bool
}

// SubmissionRecorder receives submission counters.
type SubmissionRecorder interface {
	ReportSubmitted(outcome string)
}

// SubmitReportUseCase handles report submission from members.
type SubmitReportUseCase struct {
	reportRepo       domain.ReportRepository
	congregationRepo domain.CongregationRepository
	members          domain.MemberRepository
	queue            ReportQueue
	recorder         SubmissionRecorder
	timeProvider     TimeProvider
	logger           *logging.Logger
}

// NewSubmitReportUseCase creates a new SubmitReportUseCase.
func NewSubmitReportUseCase(
	reportRepo domain.ReportRepository,
	congregationRepo domain.CongregationRepository,
	logger *logging.Logger,
) *SubmitReportUseCase {
	return &SubmitReportUseCase{
		reportRepo:       reportRepo,
		congregationRepo: congregationRepo,
		timeProvider:     RealTime,
		logger:           logger.WithComponent("submit_report"),
	}
}

// WithQueue routes documents through the async ingestion worker.
func (uc *SubmitReportUseCase) WithQueue(q ReportQueue) *SubmitReportUseCase {
	uc.queue = q
	return uc
}

// WithMemberDirectory registers unknown member names in the directory.
func (uc *SubmitReportUseCase) WithMemberDirectory(members domain.MemberRepository) *SubmitReportUseCase {
	uc.members = members
	return uc
}

// WithRecorder sets the metrics recorder.
func (uc *SubmitReportUseCase) WithRecorder(r SubmissionRecorder) *SubmitReportUseCase {
	uc.recorder = r
	return uc
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *SubmitReportUseCase) WithTimeProvider(tp TimeProvider) *SubmitReportUseCase {
	uc.timeProvider = tp
	return uc
}

// Execute validates and stores a report dated today.
func (uc *SubmitReportUseCase) Execute(ctx context.Context, input SubmitReportInput) (*SubmitReportOutput, error) {
	if err := validateStruct(input); err != nil {
		uc.logger.Info("report rejected: invalid input",
			"congregation", input.CongregationSlug,
			"reason", err.Error(),
			"outcome", "rejected",
		)
		uc.record("rejected")
		return nil, err
	}

	slug, err := domain.NewSlug(input.CongregationSlug)
	if err != nil {
		uc.record("rejected")
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	congregation, err := uc.congregationRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Info("report rejected: unknown congregation",
				"congregation", slug.String(),
				"outcome", "rejected",
			)
			uc.record("rejected")
			return nil, domain.ErrCongregationNotFound
		}
		return nil, fmt.Errorf("congregation lookup: %w", err)
	}
	if !congregation.IsActive() {
		uc.record("rejected")
		return nil, domain.ErrCongregationClosed
	}

	var memberID *domain.MemberID
	if input.MemberID != nil {
		parsed, err := domain.ParseMemberID(*input.MemberID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		memberID = &parsed
	}

	now := uc.timeProvider()
	report := domain.NewReport(input.MemberName, input.Ministry, domain.DateOf(now), domain.Metrics{
		Chapters:      input.Chapters,
		PrayerHours:   input.PrayerHours,
		PrayerMinutes: input.PrayerMinutes,
		FastingDays:   input.FastingDays,
		SoulsReached:  input.SoulsReached,
		FamilyAltar:   input.FamilyAltar,
	})

	doc, err := domain.NewReportDocument(congregation.ID(), memberID, report, now)
	if err != nil {
		return nil, fmt.Errorf("creating report: %w", err)
	}

	queued := uc.queue != nil && uc.queue.Enqueue(doc)
	if !queued {
		if err := uc.reportRepo.Save(ctx, doc); err != nil {
			uc.logger.Error("report save failed",
				"congregation_id", congregation.ID().String(),
				"report_id", doc.ID().String(),
				"error", err.Error(),
			)
			uc.record("failed")
			return nil, fmt.Errorf("saving report: %w", err)
		}
	}

	uc.registerMember(ctx, congregation.ID(), report)

	uc.logger.Info("report accepted",
		"report_id", doc.ID().String(),
		"congregation_id", congregation.ID().String(),
		"week_start", report.WeekStart().String(),
		"queued", queued,
		"outcome", "accepted",
	)
	uc.record("accepted")

	return &SubmitReportOutput{
		ReportID:       doc.ID().String(),
		CongregationID: congregation.ID().String(),
		Date:           report.Date().String(),
		WeekStart:      report.WeekStart().String(),
		Queued:         queued,
	}, nil
}

// registerMember adds first-time reporters to the directory. best-effort.
func (uc *SubmitReportUseCase) registerMember(ctx context.Context, congregationID domain.CongregationID, report domain.Report) {
	if uc.members == nil {
		return
	}

	_, err := uc.members.FindByName(ctx, congregationID, report.MemberName())
	if err == nil {
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		uc.logger.Warn("member lookup failed", "congregation_id", congregationID.String(), "error", err.Error())
		return
	}

	member, err := domain.NewMember(congregationID, report.MemberName(), report.Ministry())
	if err != nil {
		return
	}
	if err := uc.members.Save(ctx, member); err != nil {
		uc.logger.Warn("member registration failed", "congregation_id", congregationID.String(), "error", err.Error())
		return
	}
	uc.logger.Info("member registered",
		"congregation_id", congregationID.String(),
		"member_id", member.ID().String(),
	)
}

func (uc *SubmitReportUseCase) record(outcome string) {
	if uc.recorder != nil {
		uc.recorder.ReportSubmitted(outcome)
	}
}
