package genealogy

import "github.com/mananjary-mi/family-portal/pkg/models"

// SkipReason explains why a relation did not contribute to a view.
type SkipReason string

// Skip reasons.
const (
	SkipSelfRelation  SkipReason = "self_relation"
	SkipUnknownPerson SkipReason = "unknown_person"
	SkipUnknownKind   SkipReason = "unknown_kind"
)

// SkippedRelation is a malformed relation ignored during classification.
type SkippedRelation struct {
	Relation models.Relation
	Reason   SkipReason
}

// Node is a person together with the roles derived from the visible relations.
// Lists hold person ids in first-encounter order, without duplicates.
type Node struct {
	Person   models.Person
	Parents  []int64
	Children []int64
	Spouse   *int64
	Siblings []int64
}

// Family indexes the nodes of one connected component.
type Family struct {
	nodes map[int64]*Node
	order []int64
}

// Node returns the node for id.
func (f *Family) Node(id int64) (*Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// Len returns the number of persons in the family.
func (f *Family) Len() int {
	return len(f.order)
}

// ClassifyRelations derives parents, children and spouse for every person.
// Parent-style kinds and their inverse forms both resolve to a single
// parent -> child fact. Spouse links are set on both endpoints only when
// neither has one yet: the first claim seen wins.
func ClassifyRelations(persons []models.Person, visible []models.Relation) (*Family, []SkippedRelation) {
	family := &Family{
		nodes: make(map[int64]*Node, len(persons)),
		order: make([]int64, 0, len(persons)),
	}
	for _, p := range persons {
		if _, dup := family.nodes[p.ID]; dup {
			continue
		}
		family.nodes[p.ID] = &Node{Person: p}
		family.order = append(family.order, p.ID)
	}

	var skipped []SkippedRelation
	for _, rel := range visible {
		if rel.PersonA == rel.PersonB {
			skipped = append(skipped, SkippedRelation{Relation: rel, Reason: SkipSelfRelation})
			continue
		}
		a, okA := family.nodes[rel.PersonA]
		b, okB := family.nodes[rel.PersonB]
		if !okA || !okB {
			skipped = append(skipped, SkippedRelation{Relation: rel, Reason: SkipUnknownPerson})
			continue
		}

		if parentID, childID, ok := rel.ParentChild(); ok {
			parent, child := a, b
			if parentID != a.Person.ID {
				parent, child = b, a
			}
			child.Parents = appendUnique(child.Parents, parentID)
			parent.Children = appendUnique(parent.Children, childID)
			continue
		}

		if rel.Kind.IsSpousal() {
			if a.Spouse == nil {
				id := b.Person.ID
				a.Spouse = &id
			}
			if b.Spouse == nil {
				id := a.Person.ID
				b.Spouse = &id
			}
			continue
		}

		skipped = append(skipped, SkippedRelation{Relation: rel, Reason: SkipUnknownKind})
	}

	return family, skipped
}

// InferSiblings fills Siblings for every node: two distinct persons are
// siblings when their parent lists share at least one id.
func InferSiblings(family *Family) {
	for _, id := range family.order {
		node := family.nodes[id]
		node.Siblings = nil
		if len(node.Parents) == 0 {
			continue
		}
		for _, otherID := range family.order {
			if otherID == id {
				continue
			}
			other := family.nodes[otherID]
			if sharesParent(node.Parents, other.Parents) {
				node.Siblings = appendUnique(node.Siblings, otherID)
			}
		}
	}
}

// AssembleFamilyView resolves the root's roles to full person records.
// Returns nil when rootID is not part of the family.
func AssembleFamilyView(rootID int64, family *Family) *models.FamilyView {
	root, ok := family.nodes[rootID]
	if !ok {
		return nil
	}

	view := &models.FamilyView{
		Root:          root.Person,
		Parents:       family.resolve(root.Parents),
		Children:      family.resolve(root.Children),
		Siblings:      family.resolve(root.Siblings),
		Grandchildren: []models.GrandchildGroup{},
	}

	if root.Spouse != nil {
		if spouse, ok := family.nodes[*root.Spouse]; ok {
			p := spouse.Person
			view.Spouse = &p
		}
	}

	for _, childID := range root.Children {
		child := family.nodes[childID]
		if len(child.Children) == 0 {
			continue
		}
		view.Grandchildren = append(view.Grandchildren, models.GrandchildGroup{
			ParentID: childID,
			Children: family.resolve(child.Children),
		})
	}

	return view
}

func (f *Family) resolve(ids []int64) []models.Person {
	persons := make([]models.Person, 0, len(ids))
	for _, id := range ids {
		if n, ok := f.nodes[id]; ok {
			persons = append(persons, n.Person)
		}
	}
	return persons
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func sharesParent(a, b []int64) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
