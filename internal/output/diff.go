package output

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// FieldChange is one field that differs between two versions of a record.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
	Diff  string `json:"diff,omitempty"`
}

// Field is a named value compared by DiffFields.
type Field struct {
	Name  string
	Value string
}

// DiffFields compares before and after field by field, in the order of
// before. Multi-line values get a unified patch in Diff.
func DiffFields(before, after []Field) []FieldChange {
	next := make(map[string]string, len(after))
	for _, f := range after {
		next[f.Name] = f.Value
	}

	dmp := diffmatchpatch.New()
	var out []FieldChange
	seen := make(map[string]bool, len(before))
	for _, f := range before {
		seen[f.Name] = true
		nv := next[f.Name]
		if nv == f.Value {
			continue
		}
		ch := FieldChange{Field: f.Name, Old: f.Value, New: nv}
		if strings.Contains(f.Value, "\n") || strings.Contains(nv, "\n") {
			diffs := dmp.DiffMain(f.Value, nv, true)
			ch.Diff = dmp.PatchToText(dmp.PatchMake(f.Value, diffs))
		}
		out = append(out, ch)
	}
	for _, f := range after {
		if !seen[f.Name] && f.Value != "" {
			out = append(out, FieldChange{Field: f.Name, New: f.Value})
		}
	}
	return out
}

// InlineDiff renders the character diff of a and b with [-removed-] and
// {+added+} markers.
func InlineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))
	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(&sb, "[-%s-]", d.Text)
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(&sb, "{+%s+}", d.Text)
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}
