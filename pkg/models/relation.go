package models

import "fmt"

// RelationKind is the directional role of PersonA towards PersonB.
type RelationKind string

// Relation kinds, using the backend's wire values.
const (
	RelationFatherOf   RelationKind = "pere"   // A is father of B
	RelationMotherOf   RelationKind = "mere"   // A is mother of B
	RelationSonOf      RelationKind = "fils"   // A is son of B
	RelationDaughterOf RelationKind = "fille"  // A is daughter of B
	RelationHusbandOf  RelationKind = "epoux"  // A is husband of B
	RelationWifeOf     RelationKind = "epouse" // A is wife of B
)

// ValidRelationKinds contains all valid relation kinds in display order.
var ValidRelationKinds = []RelationKind{
	RelationFatherOf,
	RelationMotherOf,
	RelationSonOf,
	RelationDaughterOf,
	RelationHusbandOf,
	RelationWifeOf,
}

var relationKindAliases = map[string]RelationKind{
	"father-of":   RelationFatherOf,
	"mother-of":   RelationMotherOf,
	"son-of":      RelationSonOf,
	"daughter-of": RelationDaughterOf,
	"husband-of":  RelationHusbandOf,
	"wife-of":     RelationWifeOf,
}

var relationKindLabels = map[RelationKind]string{
	RelationFatherOf:   "Père",
	RelationMotherOf:   "Mère",
	RelationSonOf:      "Fils",
	RelationDaughterOf: "Fille",
	RelationHusbandOf:  "Époux",
	RelationWifeOf:     "Épouse",
}

// ParseRelationKind accepts either a wire value ("pere") or its English name ("father-of").
func ParseRelationKind(s string) (RelationKind, error) {
	for _, k := range ValidRelationKinds {
		if string(k) == s {
			return k, nil
		}
	}
	if k, ok := relationKindAliases[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown relation kind: %q", s)
}

// IsValid reports whether k is one of the known relation kinds.
func (k RelationKind) IsValid() bool {
	_, ok := relationKindLabels[k]
	return ok
}

// IsParent reports whether A is a parent of B.
func (k RelationKind) IsParent() bool {
	return k == RelationFatherOf || k == RelationMotherOf
}

// IsChild reports whether A is a child of B.
func (k RelationKind) IsChild() bool {
	return k == RelationSonOf || k == RelationDaughterOf
}

// IsSpousal reports whether the relation is a (symmetric) marriage link.
func (k RelationKind) IsSpousal() bool {
	return k == RelationHusbandOf || k == RelationWifeOf
}

// Label returns the label shown in the relation table, or the raw value for unknown kinds.
func (k RelationKind) Label() string {
	if label, ok := relationKindLabels[k]; ok {
		return label
	}
	return string(k)
}

// Relation is an edge between two persons as returned by the backend.
type Relation struct {
	ID      int64        `json:"id" yaml:"id"`
	PersonA int64        `json:"person_a" yaml:"person_a"`
	PersonB int64        `json:"person_b" yaml:"person_b"`
	Kind    RelationKind `json:"kind" yaml:"kind"`
}

// ParentChild resolves a parent-style relation to its single parent -> child fact.
// ok is false for spousal or unknown kinds.
func (r Relation) ParentChild() (parent, child int64, ok bool) {
	switch {
	case r.Kind.IsParent():
		return r.PersonA, r.PersonB, true
	case r.Kind.IsChild():
		return r.PersonB, r.PersonA, true
	default:
		return 0, 0, false
	}
}

// Other returns the endpoint opposite to id.
func (r Relation) Other(id int64) int64 {
	if r.PersonA == id {
		return r.PersonB
	}
	return r.PersonA
}
