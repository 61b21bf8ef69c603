package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/homevisit/internal/notify"
	"github.com/example/homevisit/internal/persistence"
)

// FeedbackService stores contact form submissions and alerts the operator.
type FeedbackService struct {
	feedback    persistence.FeedbackRepository
	notifier    Notifier
	validator   *Validator
	operator    string
	notifyWait  time.Duration
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewFeedbackService constructs a feedback service with the provided dependencies.
func NewFeedbackService(feedback persistence.FeedbackRepository, notifier Notifier, operatorAddress, phoneRegion string, idGenerator func() string, now func() time.Time) *FeedbackService {
	return NewFeedbackServiceWithLogger(feedback, notifier, operatorAddress, phoneRegion, idGenerator, now, nil)
}

// NewFeedbackServiceWithLogger constructs a feedback service with a specified logger.
func NewFeedbackServiceWithLogger(feedback persistence.FeedbackRepository, notifier Notifier, operatorAddress, phoneRegion string, idGenerator func() string, now func() time.Time, logger *slog.Logger) *FeedbackService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &FeedbackService{
		feedback:    feedback,
		notifier:    notifier,
		validator:   NewValidator(phoneRegion),
		operator:    strings.TrimSpace(operatorAddress),
		notifyWait:  DefaultNotifyTimeout,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// SubmitFeedback validates and stores a submission, then notifies the
// operator. Notification failures are logged only.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, input FeedbackInput) (feedback Feedback, err error) {
	if s == nil {
		err = fmt.Errorf("FeedbackService is nil")
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Issue = strings.ToLower(strings.TrimSpace(input.Issue))
	input.Comment = strings.TrimSpace(input.Comment)

	logger := s.loggerWith(ctx, "SubmitFeedback", "issue", input.Issue)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to store feedback", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("feedback_id", feedback.ID).InfoContext(ctx, "feedback stored")
	}()

	if vErr := s.validator.Struct(input); vErr != nil {
		err = vErr
		return
	}
	phone, _ := s.validator.NormalizePhone(input.PhoneNumber)

	record := persistence.Feedback{
		ID:          s.idGenerator(),
		Name:        input.Name,
		Email:       input.Email,
		PhoneNumber: phone,
		Issue:       input.Issue,
		Comment:     input.Comment,
		CreatedAt:   s.now(),
	}
	if err = s.feedback.CreateFeedback(ctx, record); err != nil {
		err = mapStoreError(err)
		return
	}
	feedback = Feedback(record)

	s.notifyOperator(ctx, logger, feedback)
	return feedback, nil
}

// ListFeedback returns stored submissions, newest first.
func (s *FeedbackService) ListFeedback(ctx context.Context) ([]Feedback, error) {
	records, err := s.feedback.ListFeedback(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]Feedback, len(records))
	for i, r := range records {
		out[i] = Feedback(r)
	}
	return out, nil
}

func (s *FeedbackService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "FeedbackService", operation, attrs...)
}

func (s *FeedbackService) notifyOperator(ctx context.Context, logger *slog.Logger, feedback Feedback) {
	if s.notifier == nil || s.operator == "" {
		return
	}
	body, err := renderMessage("feedback", feedback)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render feedback notification", "error", err)
		return
	}
	msg := notify.Message{
		Kind:     notify.KindFeedback,
		To:       []string{s.operator},
		Subject:  fmt.Sprintf("Feedback (%s) from %s", feedback.Issue, feedback.Name),
		Body:     body,
		Metadata: map[string]string{"feedback_id": feedback.ID},
	}
	ctx, cancel := notifyContext(ctx, s.notifyWait)
	defer cancel()
	if err := s.notifier.Notify(ctx, msg); err != nil {
		logger.WarnContext(ctx, "notification failed", "kind", msg.Kind, "error", err)
	}
}
