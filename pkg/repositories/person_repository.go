package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/mananjary-mi/family-portal/pkg/database"
	"github.com/mananjary-mi/family-portal/pkg/models"
)

// PersonRepository defines the interface for member data access.
type PersonRepository interface {
	List(ctx context.Context) ([]models.Person, error)
	Create(ctx context.Context, person *models.Person) error
}

// personRepository implements PersonRepository using PostgreSQL.
type personRepository struct {
	db database.Querier
}

// NewPersonRepository creates a new person repository.
func NewPersonRepository(db database.Querier) PersonRepository {
	return &personRepository{db: db}
}

// List returns every member ordered by id.
func (r *personRepository) List(ctx context.Context) ([]models.Person, error) {
	query := `
		SELECT id, prenom, nom, COALESCE(genre, ''),
		       EXTRACT(YEAR FROM date_naissance)::int, photo
		FROM users
		ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Gender, &p.BirthYear, &p.Photo); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persons: %w", err)
	}

	return persons, nil
}

// Create inserts a member and sets person.ID. A birth year becomes January 1st of that year.
func (r *personRepository) Create(ctx context.Context, person *models.Person) error {
	var birthDate *time.Time
	if person.BirthYear != nil {
		d := time.Date(*person.BirthYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		birthDate = &d
	}

	query := `
		INSERT INTO users (prenom, nom, genre, date_naissance, photo)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		person.FirstName,
		person.LastName,
		person.Gender,
		birthDate,
		person.Photo,
	).Scan(&person.ID)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}

	return nil
}
