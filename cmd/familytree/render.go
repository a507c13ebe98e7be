package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mananjary-mi/family-portal/pkg/genealogy"
	"github.com/mananjary-mi/family-portal/pkg/models"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderView prints view in the requested format.
func renderView(w io.Writer, format string, view *models.FamilyView) error {
	if format != formatText {
		return writeStructured(w, format, view)
	}

	var b strings.Builder
	b.WriteString(describe(view.Root) + "\n")

	section(&b, "Parents", view.Parents)
	if view.Spouse != nil {
		section(&b, "Spouse", []models.Person{*view.Spouse})
	} else {
		section(&b, "Spouse", nil)
	}
	section(&b, "Siblings", view.Siblings)
	section(&b, "Children", view.Children)

	if len(view.Grandchildren) == 0 {
		b.WriteString("Grandchildren: none\n")
	} else {
		b.WriteString("Grandchildren:\n")
		for _, group := range view.Grandchildren {
			fmt.Fprintf(&b, "  via %s:\n", parentLabel(view.Children, group.ParentID))
			for _, p := range group.Children {
				b.WriteString("    - " + describe(p) + "\n")
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", genealogy.Summary(view))
	fmt.Fprintf(&b, "%d reachable, %d relations shown, %d skipped\n",
		view.Stats.ReachablePersons, view.Stats.VisibleRelations, view.Stats.SkippedRelations)

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string, persons []models.Person) {
	if len(persons) == 0 {
		b.WriteString(title + ": none\n")
		return
	}
	b.WriteString(title + ":\n")
	for _, p := range persons {
		b.WriteString("  - " + describe(p) + "\n")
	}
}

// describe formats a person as "Jean Rakoto (#1, H, 1950)".
func describe(p models.Person) string {
	details := []string{"#" + strconv.FormatInt(p.ID, 10)}
	if p.Gender != "" {
		details = append(details, p.Gender)
	}
	if p.BirthYear != nil {
		details = append(details, strconv.Itoa(*p.BirthYear))
	}
	return fmt.Sprintf("%s (%s)", p.DisplayName(), strings.Join(details, ", "))
}

func parentLabel(children []models.Person, id int64) string {
	for _, c := range children {
		if c.ID == id {
			return describe(c)
		}
	}
	return fmt.Sprintf("ID: %d", id)
}

// renderRows prints the relation table.
func renderRows(w io.Writer, format string, rows []models.RelationRow) error {
	if format != formatText {
		return writeStructured(w, format, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPERSON\tRELATION\tPERSON")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.RelationID, row.PersonAName, row.Label, row.PersonBName)
	}
	return tw.Flush()
}
