// Package genealogy builds the rooted family view shown by the genealogy page.
//
// The input is a flat list of pairwise relations and a list of persons, as
// returned by the backend. The builder restricts itself to the connected
// component of the requested root, derives parents, children and spouse from
// the directional relation kinds, infers siblings from shared parents, and
// assembles a FamilyView. Every call works on its own intermediate state.
package genealogy

import (
	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/models"
)

// Build outcomes reported to the Recorder.
const (
	OutcomeView   = "view"
	OutcomeNoRoot = "no_root"
)

// Recorder receives build statistics. Implemented by pkg/metrics.
type Recorder interface {
	ObserveBuild(outcome string, reachable int)
	RelationSkipped(reason SkipReason)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBuild(string, int)   {}
func (nopRecorder) RelationSkipped(SkipReason) {}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the statistics recorder.
func WithRecorder(r Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// Builder turns persons and relations into a FamilyView.
// A Builder is safe for concurrent use: it keeps no state between calls.
type Builder struct {
	logger   *zap.Logger
	recorder Recorder
}

// NewBuilder creates a new Builder.
func NewBuilder(logger *zap.Logger, opts ...Option) *Builder {
	b := &Builder{
		logger:   logger.Named("genealogy"),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the family view of rootID, or nil when rootID is not among persons.
// A missing root is an expected state (a member without any recorded relation
// yet), so it is logged at info level and never reported as an error.
func (b *Builder) Build(persons []models.Person, relations []models.Relation, rootID int64) *models.FamilyView {
	if !containsPerson(persons, rootID) {
		b.logger.Info("No family view for root: person not found",
			zap.Int64("root_id", rootID),
			zap.Int("persons", len(persons)))
		b.recorder.ObserveBuild(OutcomeNoRoot, 0)
		return nil
	}

	reachable := BuildReachableSet(relations, rootID)
	visible := FilterVisibleRelations(relations, reachable)

	inScope := make([]models.Person, 0, len(reachable))
	for _, p := range persons {
		if _, ok := reachable[p.ID]; ok {
			inScope = append(inScope, p)
		}
	}

	family, skipped := ClassifyRelations(inScope, visible)
	for _, s := range skipped {
		b.logger.Debug("Skipping malformed relation",
			zap.Int64("relation_id", s.Relation.ID),
			zap.Int64("person_a", s.Relation.PersonA),
			zap.Int64("person_b", s.Relation.PersonB),
			zap.String("kind", string(s.Relation.Kind)),
			zap.String("reason", string(s.Reason)))
		b.recorder.RelationSkipped(s.Reason)
	}

	InferSiblings(family)

	view := AssembleFamilyView(rootID, family)
	view.Stats = models.FamilyViewStats{
		ReachablePersons: len(inScope),
		VisibleRelations: len(visible),
		SkippedRelations: len(skipped),
	}

	b.recorder.ObserveBuild(OutcomeView, len(inScope))
	b.logger.Debug("Built family view",
		zap.Int64("root_id", rootID),
		zap.Int("reachable", len(inScope)),
		zap.Int("visible_relations", len(visible)),
		zap.Int("skipped_relations", len(skipped)))

	return view
}

func containsPerson(persons []models.Person, id int64) bool {
	for _, p := range persons {
		if p.ID == id {
			return true
		}
	}
	return false
}
