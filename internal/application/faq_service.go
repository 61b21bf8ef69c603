package application

import (
	"context"
	"log/slog"

	"github.com/example/homevisit/internal/persistence"
)

// DefaultFaqs are installed by SeedFaqs.
var DefaultFaqs = []Faq{
	{
		ShortName: "cancel",
		Question:  "How do I cancel or reschedule my visit?",
		Answer:    "Reply to your confirmation email or use the contact form and choose \"cancel\". We will free the slot so someone else can book it.",
		Position:  1,
	},
	{
		ShortName: "no-availability",
		Question:  "What if none of the dates or times work for me?",
		Answer:    "New dates are published regularly. Use the contact form with the \"scheduling\" issue and tell us which days suit you.",
		Position:  2,
	},
	{
		ShortName: "about",
		Question:  "What happens during a home visit?",
		Answer:    "A volunteer visits at the booked time, usually for about an hour, and goes over the questions you listed when booking.",
		Position:  3,
	},
}

// FaqService serves help page entries.
type FaqService struct {
	faqs   persistence.FaqRepository
	logger *slog.Logger
}

// NewFaqService constructs a FaqService.
func NewFaqService(faqs persistence.FaqRepository, logger *slog.Logger) *FaqService {
	return &FaqService{faqs: faqs, logger: defaultLogger(logger)}
}

// ListFaqs returns entries ordered by position.
func (s *FaqService) ListFaqs(ctx context.Context) ([]Faq, error) {
	records, err := s.faqs.ListFaqs(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]Faq, len(records))
	for i, r := range records {
		out[i] = Faq(r)
	}
	return out, nil
}

// SeedFaqs upserts DefaultFaqs. Running it again restores their text.
func (s *FaqService) SeedFaqs(ctx context.Context) (int, error) {
	logger := serviceLogger(ctx, s.logger, "FaqService", "SeedFaqs")
	for _, faq := range DefaultFaqs {
		if err := s.faqs.UpsertFaq(ctx, persistence.Faq(faq)); err != nil {
			logger.ErrorContext(ctx, "failed to seed faq", "short_name", faq.ShortName, "error", err)
			return 0, mapStoreError(err)
		}
	}
	logger.InfoContext(ctx, "faqs seeded", "count", len(DefaultFaqs))
	return len(DefaultFaqs), nil
}
