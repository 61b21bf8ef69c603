package sqlstore

import (
	"context"

	"github.com/example/homevisit/internal/persistence"
)

// HouseholdRepository implements persistence.HouseholdRepository.
type HouseholdRepository struct {
	conn
}

func (r *HouseholdRepository) CreateHousehold(ctx context.Context, household persistence.Household) error {
	_, err := r.exec(ctx,
		`INSERT INTO households (id, address, notes, created_at) VALUES (?, ?, ?, ?)`,
		household.ID, household.Address, household.Notes, toMillis(household.CreatedAt))
	return err
}

func (r *HouseholdRepository) GetHousehold(ctx context.Context, id string) (persistence.Household, error) {
	var (
		h         persistence.Household
		createdAt int64
	)
	err := r.queryRow(ctx,
		`SELECT id, address, notes, created_at FROM households WHERE id = ?`, id,
	).Scan(&h.ID, &h.Address, &h.Notes, &createdAt)
	if err != nil {
		return persistence.Household{}, mapError(err)
	}
	h.CreatedAt = fromMillis(createdAt)
	return h, nil
}

// PersonRepository implements persistence.PersonRepository.
type PersonRepository struct {
	conn
}

func (r *PersonRepository) CreatePerson(ctx context.Context, person persistence.Person) error {
	_, err := r.exec(ctx,
		`INSERT INTO people (id, household_id, first_name, last_name, email, phone_number, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		person.ID,
		person.HouseholdID,
		person.FirstName,
		person.LastName,
		person.Email,
		person.PhoneNumber,
		person.Notes,
		toMillis(person.CreatedAt),
	)
	return err
}

func (r *PersonRepository) ListPeopleForHousehold(ctx context.Context, householdID string) ([]persistence.Person, error) {
	rows, err := r.query(ctx,
		`SELECT id, household_id, first_name, last_name, email, phone_number, notes, created_at
		FROM people WHERE household_id = ? ORDER BY created_at, id`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []persistence.Person
	for rows.Next() {
		var (
			p         persistence.Person
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.HouseholdID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber, &p.Notes, &createdAt); err != nil {
			return nil, mapError(err)
		}
		p.CreatedAt = fromMillis(createdAt)
		people = append(people, p)
	}
	return people, mapError(rows.Err())
}
