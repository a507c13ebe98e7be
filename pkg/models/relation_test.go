package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelationKind(t *testing.T) {
	tests := []struct {
		input    string
		expected RelationKind
	}{
		{"pere", RelationFatherOf},
		{"father-of", RelationFatherOf},
		{"mere", RelationMotherOf},
		{"mother-of", RelationMotherOf},
		{"fils", RelationSonOf},
		{"son-of", RelationSonOf},
		{"fille", RelationDaughterOf},
		{"daughter-of", RelationDaughterOf},
		{"epoux", RelationHusbandOf},
		{"husband-of", RelationHusbandOf},
		{"epouse", RelationWifeOf},
		{"wife-of", RelationWifeOf},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseRelationKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestParseRelationKind_Unknown(t *testing.T) {
	_, err := ParseRelationKind("cousin")
	assert.Error(t, err)
}

func TestRelation_ParentChild(t *testing.T) {
	tests := []struct {
		name       string
		relation   Relation
		wantParent int64
		wantChild  int64
		wantOK     bool
	}{
		{"father-of keeps direction", Relation{PersonA: 1, PersonB: 2, Kind: RelationFatherOf}, 1, 2, true},
		{"mother-of keeps direction", Relation{PersonA: 3, PersonB: 2, Kind: RelationMotherOf}, 3, 2, true},
		{"son-of is inverted", Relation{PersonA: 2, PersonB: 1, Kind: RelationSonOf}, 1, 2, true},
		{"daughter-of is inverted", Relation{PersonA: 4, PersonB: 1, Kind: RelationDaughterOf}, 1, 4, true},
		{"spousal has no parent", Relation{PersonA: 1, PersonB: 3, Kind: RelationHusbandOf}, 0, 0, false},
		{"unknown has no parent", Relation{PersonA: 1, PersonB: 3, Kind: "cousin"}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent, child, ok := tt.relation.ParentChild()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantParent, parent)
			assert.Equal(t, tt.wantChild, child)
		})
	}
}

func TestRelationKind_Label(t *testing.T) {
	assert.Equal(t, "Père", RelationFatherOf.Label())
	assert.Equal(t, "Épouse", RelationWifeOf.Label())
	assert.Equal(t, "cousin", RelationKind("cousin").Label())
}

func TestPerson_DisplayName(t *testing.T) {
	assert.Equal(t, "Jean Rakoto", Person{FirstName: "Jean", LastName: "Rakoto"}.DisplayName())
	assert.Equal(t, "Rakoto", Person{LastName: "Rakoto"}.DisplayName())
}
