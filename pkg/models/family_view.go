package models

// FamilyView is the rooted family tree for one person.
// It is derived on every request and never persisted or mutated after construction.
type FamilyView struct {
	Root          Person            `json:"root" yaml:"root"`
	Parents       []Person          `json:"parents" yaml:"parents"`
	Children      []Person          `json:"children" yaml:"children"`
	Spouse        *Person           `json:"spouse" yaml:"spouse"`
	Siblings      []Person          `json:"siblings" yaml:"siblings"`
	Grandchildren []GrandchildGroup `json:"grandchildren" yaml:"grandchildren"`
	Stats         FamilyViewStats   `json:"stats" yaml:"stats"`
}

// GrandchildGroup lists the children of one of the root's children.
type GrandchildGroup struct {
	ParentID int64    `json:"parent_id" yaml:"parent_id"`
	Children []Person `json:"children" yaml:"children"`
}

// FamilyViewStats records how much of the input contributed to the view.
type FamilyViewStats struct {
	ReachablePersons int `json:"reachable_persons" yaml:"reachable_persons"`
	VisibleRelations int `json:"visible_relations" yaml:"visible_relations"`
	SkippedRelations int `json:"skipped_relations" yaml:"skipped_relations"`
}

// RelationRow is one line of the tabular relation listing.
type RelationRow struct {
	RelationID  int64        `json:"relation_id" yaml:"relation_id"`
	PersonA     int64        `json:"person_a" yaml:"person_a"`
	PersonAName string       `json:"person_a_name" yaml:"person_a_name"`
	Kind        RelationKind `json:"kind" yaml:"kind"`
	Label       string       `json:"label" yaml:"label"`
	PersonB     int64        `json:"person_b" yaml:"person_b"`
	PersonBName string       `json:"person_b_name" yaml:"person_b_name"`
}
