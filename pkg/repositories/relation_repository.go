package repositories

import (
	"context"
	"fmt"

	"github.com/mananjary-mi/family-portal/pkg/database"
	"github.com/mananjary-mi/family-portal/pkg/models"
)

// RelationRepository defines the interface for family relation data access.
type RelationRepository interface {
	// List returns all relations, or those with forUser on either side, ordered by id.
	List(ctx context.Context, forUser *int64) ([]models.Relation, error)
	Create(ctx context.Context, relation *models.Relation) error
}

// relationRepository implements RelationRepository using PostgreSQL.
type relationRepository struct {
	db database.Querier
}

// NewRelationRepository creates a new relation repository.
func NewRelationRepository(db database.Querier) RelationRepository {
	return &relationRepository{db: db}
}

func (r *relationRepository) List(ctx context.Context, forUser *int64) ([]models.Relation, error) {
	query := `
		SELECT id, id_user1, id_user2, type_relation
		FROM relations
		WHERE $1::int IS NULL OR id_user1 = $1 OR id_user2 = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, forUser)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer rows.Close()

	var relations []models.Relation
	for rows.Next() {
		var rel models.Relation
		var kind string
		if err := rows.Scan(&rel.ID, &rel.PersonA, &rel.PersonB, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		rel.Kind = models.RelationKind(kind)
		if parsed, err := models.ParseRelationKind(kind); err == nil {
			rel.Kind = parsed
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relations: %w", err)
	}

	return relations, nil
}

// Create inserts a relation and sets relation.ID. The kind is stored as given.
func (r *relationRepository) Create(ctx context.Context, relation *models.Relation) error {
	query := `
		INSERT INTO relations (id_user1, id_user2, type_relation)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, relation.PersonA, relation.PersonB, string(relation.Kind)).Scan(&relation.ID)
	if err != nil {
		return fmt.Errorf("failed to create relation: %w", err)
	}

	return nil
}
