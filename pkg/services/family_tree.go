package services

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/genealogy"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/session"
	"github.com/mananjary-mi/family-portal/pkg/viewfetch"
)

// FamilyTreeView is the tracker view name used for family tree pages.
const FamilyTreeView = "family-tree"

// FamilySource supplies the persons and relations a family view is built from.
type FamilySource interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	// ListRelations returns all relations, or only those touching forUser when set.
	ListRelations(ctx context.Context, forUser *int64) ([]models.Relation, error)
}

// FamilyTreeService defines the interface for family tree operations.
type FamilyTreeService interface {
	// GetFamilyView returns the family view rooted at rootID.
	// Returns apperrors.ErrNotFound when rootID is not a known person and
	// apperrors.ErrSuperseded when a newer request for the same page replaced this one.
	GetFamilyView(ctx context.Context, rootID int64) (*models.FamilyView, error)
	// ListRelationRows returns the relations as table rows, optionally scoped to forUser.
	ListRelationRows(ctx context.Context, forUser *int64) ([]models.RelationRow, error)
}

type familyTreeService struct {
	source  FamilySource
	builder *genealogy.Builder
	tracker *viewfetch.Tracker
	logger  *zap.Logger
}

var _ FamilyTreeService = (*familyTreeService)(nil)

// NewFamilyTreeService creates a family tree service.
// tracker may be nil, in which case every request fetches independently.
func NewFamilyTreeService(source FamilySource, builder *genealogy.Builder, tracker *viewfetch.Tracker, logger *zap.Logger) FamilyTreeService {
	return &familyTreeService{
		source:  source,
		builder: builder,
		tracker: tracker,
		logger:  logger.Named("family-tree"),
	}
}

func (s *familyTreeService) GetFamilyView(ctx context.Context, rootID int64) (*models.FamilyView, error) {
	load := func(ctx context.Context) (*models.FamilyView, error) {
		return s.buildView(ctx, rootID)
	}

	var (
		view *models.FamilyView
		err  error
	)
	sess, ok := session.FromContext(ctx)
	if s.tracker != nil && ok {
		key := viewfetch.Key(sess.ID.String(), FamilyTreeView)
		view, err = viewfetch.Fetch(ctx, s.tracker, key, "root="+strconv.FormatInt(rootID, 10), load)
	} else {
		view, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, fmt.Errorf("person %d: %w", rootID, apperrors.ErrNotFound)
	}
	return view, nil
}

func (s *familyTreeService) buildView(ctx context.Context, rootID int64) (*models.FamilyView, error) {
	persons, relations, err := s.fetchAll(ctx, nil)
	if err != nil {
		return nil, err
	}

	view := s.builder.Build(persons, relations, rootID)
	if view != nil {
		s.logger.Debug("Built family view",
			zap.Int64("root_id", rootID),
			zap.Int("reachable", view.Stats.ReachablePersons),
			zap.Int("skipped", view.Stats.SkippedRelations))
	}
	return view, nil
}

func (s *familyTreeService) ListRelationRows(ctx context.Context, forUser *int64) ([]models.RelationRow, error) {
	persons, relations, err := s.fetchAll(ctx, forUser)
	if err != nil {
		return nil, err
	}
	return genealogy.Tabulate(persons, relations), nil
}

// fetchAll loads persons and relations concurrently.
func (s *familyTreeService) fetchAll(ctx context.Context, forUser *int64) ([]models.Person, []models.Relation, error) {
	var (
		persons   []models.Person
		relations []models.Relation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if persons, err = s.source.ListPersons(gctx); err != nil {
			return fmt.Errorf("failed to list persons: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if relations, err = s.source.ListRelations(gctx, forUser); err != nil {
			return fmt.Errorf("failed to list relations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return persons, relations, nil
}
