package genealogy

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/mananjary-mi/family-portal/pkg/models"
)

// Tabulate lists relations with display names, in input order.
// Unknown persons are shown as "ID: <n>".
func Tabulate(persons []models.Person, relations []models.Relation) []models.RelationRow {
	names := make(map[int64]string, len(persons))
	for _, p := range persons {
		if _, ok := names[p.ID]; !ok {
			names[p.ID] = p.DisplayName()
		}
	}
	nameOf := func(id int64) string {
		if name, ok := names[id]; ok {
			return name
		}
		return fmt.Sprintf("ID: %d", id)
	}

	rows := make([]models.RelationRow, 0, len(relations))
	for _, rel := range relations {
		rows = append(rows, models.RelationRow{
			RelationID:  rel.ID,
			PersonA:     rel.PersonA,
			PersonAName: nameOf(rel.PersonA),
			Kind:        rel.Kind,
			Label:       rel.Kind.Label(),
			PersonB:     rel.PersonB,
			PersonBName: nameOf(rel.PersonB),
		})
	}
	return rows
}

// Summary renders a one-line description of a view, e.g.
// "Jean Rakoto: 2 parents, 1 sibling, 3 children, 0 grandchildren, married to Vola Rasoa".
func Summary(view *models.FamilyView) string {
	if view == nil {
		return "no family view"
	}

	grandchildren := 0
	for _, g := range view.Grandchildren {
		grandchildren += len(g.Children)
	}

	parts := []string{
		countNoun(len(view.Parents), "parent"),
		countNoun(len(view.Siblings), "sibling"),
		countNoun(len(view.Children), "child"),
		countNoun(grandchildren, "grandchild"),
	}
	if view.Spouse != nil {
		parts = append(parts, "married to "+view.Spouse.DisplayName())
	}

	return view.Root.DisplayName() + ": " + strings.Join(parts, ", ")
}

func countNoun(n int, noun string) string {
	if n != 1 {
		noun = inflection.Plural(noun)
	}
	return fmt.Sprintf("%d %s", n, noun)
}
