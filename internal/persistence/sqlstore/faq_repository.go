package sqlstore

import (
	"context"

	"github.com/example/homevisit/internal/persistence"
)

// FaqRepository implements persistence.FaqRepository.
type FaqRepository struct {
	conn
}

// UpsertFaq inserts the entry or replaces the one with the same short name.
func (r *FaqRepository) UpsertFaq(ctx context.Context, faq persistence.Faq) error {
	_, err := r.exec(ctx, r.pool.dialect.upsertFaq, faq.ShortName, faq.Question, faq.Answer, faq.Position)
	return err
}

func (r *FaqRepository) ListFaqs(ctx context.Context) ([]persistence.Faq, error) {
	rows, err := r.query(ctx, `SELECT short_name, question, answer, position FROM faqs ORDER BY position, short_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []persistence.Faq
	for rows.Next() {
		var f persistence.Faq
		if err := rows.Scan(&f.ShortName, &f.Question, &f.Answer, &f.Position); err != nil {
			return nil, mapError(err)
		}
		faqs = append(faqs, f)
	}
	return faqs, mapError(rows.Err())
}
