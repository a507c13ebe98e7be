package repositories

import (
	"context"

	"github.com/mananjary-mi/family-portal/pkg/models"
)

// FamilyStore reads persons and relations straight from the community database.
// It satisfies services.FamilySource.
type FamilyStore struct {
	persons   PersonRepository
	relations RelationRepository
}

// NewFamilyStore combines the person and relation repositories.
func NewFamilyStore(persons PersonRepository, relations RelationRepository) *FamilyStore {
	return &FamilyStore{persons: persons, relations: relations}
}

// ListPersons returns every member.
func (s *FamilyStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	return s.persons.List(ctx)
}

// ListRelations returns all relations, or only those touching forUser.
func (s *FamilyStore) ListRelations(ctx context.Context, forUser *int64) ([]models.Relation, error) {
	return s.relations.List(ctx, forUser)
}
