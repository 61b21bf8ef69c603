package sqlstore

import (
	"context"

	"github.com/example/homevisit/internal/persistence"
)

// FeedbackRepository implements persistence.FeedbackRepository.
type FeedbackRepository struct {
	conn
}

func (r *FeedbackRepository) CreateFeedback(ctx context.Context, feedback persistence.Feedback) error {
	_, err := r.exec(ctx,
		`INSERT INTO feedback (id, name, email, phone_number, issue, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		feedback.ID,
		feedback.Name,
		feedback.Email,
		feedback.PhoneNumber,
		feedback.Issue,
		feedback.Comment,
		toMillis(feedback.CreatedAt),
	)
	return err
}

// ListFeedback returns submissions, newest first.
func (r *FeedbackRepository) ListFeedback(ctx context.Context) ([]persistence.Feedback, error) {
	rows, err := r.query(ctx,
		`SELECT id, name, email, phone_number, issue, comment, created_at
		FROM feedback ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []persistence.Feedback
	for rows.Next() {
		var (
			f         persistence.Feedback
			createdAt int64
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.PhoneNumber, &f.Issue, &f.Comment, &createdAt); err != nil {
			return nil, mapError(err)
		}
		f.CreatedAt = fromMillis(createdAt)
		items = append(items, f)
	}
	return items, mapError(rows.Err())
}
