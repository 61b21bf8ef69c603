package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/homevisit/internal/persistence"
)

const meetingColumns = `id, name, start_at, end_at, reserved_at, household_id, created_at`

// MeetingRepository implements persistence.MeetingRepository.
type MeetingRepository struct {
	conn
}

// InsertMeeting rejects the meeting when any stored meeting satisfies
// end_at > start AND start_at < end, then inserts it, in one transaction.
func (r *MeetingRepository) InsertMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" || !meeting.End.After(meeting.Start) {
		return persistence.ErrConstraintViolation
	}

	return r.atomic(ctx, func(c conn) error {
		if lock := c.pool.dialect.lockMeetings; lock != "" {
			if _, err := c.exec(ctx, lock); err != nil {
				return err
			}
		}

		var conflictID string
		err := c.queryRow(ctx,
			`SELECT id FROM meetings WHERE end_at > ? AND start_at < ? ORDER BY start_at LIMIT 1`+c.pool.dialect.forUpdate,
			toMillis(meeting.Start), toMillis(meeting.End),
		).Scan(&conflictID)
		switch {
		case err == nil:
			return &persistence.OverlapError{ConflictID: conflictID}
		case !errors.Is(err, sql.ErrNoRows):
			return mapError(err)
		}

		_, err = c.exec(ctx,
			`INSERT INTO meetings (`+meetingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			meeting.ID,
			meeting.Name,
			toMillis(meeting.Start),
			toMillis(meeting.End),
			nullMillis(meeting.ReservedAt),
			nullString(meeting.HouseholdID),
			toMillis(meeting.CreatedAt),
		)
		return err
	})
}

// GetMeeting loads a meeting by id.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	row := r.queryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	meeting, err := scanMeeting(row)
	if err != nil {
		return persistence.Meeting{}, mapError(err)
	}
	return meeting, nil
}

// FindFree lists unreserved meetings starting strictly between after and before.
func (r *MeetingRepository) FindFree(ctx context.Context, after, before time.Time) ([]persistence.Meeting, error) {
	return r.list(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		WHERE reserved_at IS NULL AND start_at > ? AND start_at < ?
		ORDER BY start_at, id`,
		toMillis(after), toMillis(before))
}

// ListMeetings lists all meetings with from <= start < to.
func (r *MeetingRepository) ListMeetings(ctx context.Context, from, to time.Time) ([]persistence.Meeting, error) {
	return r.list(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		WHERE start_at >= ? AND start_at < ?
		ORDER BY start_at, id`,
		toMillis(from), toMillis(to))
}

// ReserveMeeting sets reserved_at and household_id only while reserved_at is
// NULL; the affected row count decides the outcome.
func (r *MeetingRepository) ReserveMeeting(ctx context.Context, id, householdID string, reservedAt time.Time) error {
	res, err := r.exec(ctx,
		`UPDATE meetings SET reserved_at = ?, household_id = ? WHERE id = ? AND reserved_at IS NULL`,
		toMillis(reservedAt), householdID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var marker sql.NullInt64
	err = r.queryRow(ctx, `SELECT reserved_at FROM meetings WHERE id = ?`, id).Scan(&marker)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if err != nil {
		return mapError(err)
	}
	return persistence.ErrAlreadyReserved
}

// CancelUnreserved deletes the meetings of a range, refusing when any of them
// is reserved.
func (r *MeetingRepository) CancelUnreserved(ctx context.Context, from, to time.Time) (int, error) {
	var cancelled int
	err := r.atomic(ctx, func(c conn) error {
		rows, err := c.query(ctx,
			`SELECT reserved_at FROM meetings WHERE start_at >= ? AND start_at < ?`+c.pool.dialect.forUpdate,
			toMillis(from), toMillis(to))
		if err != nil {
			return err
		}
		reserved := 0
		for rows.Next() {
			var marker sql.NullInt64
			if err := rows.Scan(&marker); err != nil {
				rows.Close()
				return mapError(err)
			}
			if marker.Valid {
				reserved++
			}
		}
		if err := rows.Close(); err != nil {
			return mapError(err)
		}
		if err := rows.Err(); err != nil {
			return mapError(err)
		}
		if reserved > 0 {
			return &persistence.ReservedSlotError{Reserved: reserved}
		}

		res, err := c.exec(ctx,
			`DELETE FROM meetings WHERE start_at >= ? AND start_at < ? AND reserved_at IS NULL`,
			toMillis(from), toMillis(to))
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: rows affected: %w", err)
		}
		cancelled = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

func (r *MeetingRepository) list(ctx context.Context, query string, args ...any) ([]persistence.Meeting, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, mapError(err)
		}
		meetings = append(meetings, meeting)
	}
	return meetings, mapError(rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(s scanner) (persistence.Meeting, error) {
	var (
		m           persistence.Meeting
		start, end  int64
		createdAt   int64
		reservedAt  sql.NullInt64
		householdID sql.NullString
	)
	if err := s.Scan(&m.ID, &m.Name, &start, &end, &reservedAt, &householdID, &createdAt); err != nil {
		return persistence.Meeting{}, err
	}
	m.Start = fromMillis(start)
	m.End = fromMillis(end)
	m.CreatedAt = fromMillis(createdAt)
	if reservedAt.Valid {
		at := fromMillis(reservedAt.Int64)
		m.ReservedAt = &at
	}
	if householdID.Valid {
		id := householdID.String
		m.HouseholdID = &id
	}
	return m, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
