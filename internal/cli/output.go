package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/inkline-labs/marginalia/pkg/types"
)

var (
	typeColor = color.New(color.FgCyan, color.Bold)
	idColor   = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

// renderEntities prints entities either as one colorized line each or as a
// JSON array of views.
func renderEntities(w io.Writer, entities []types.Entity, jsonMode bool) error {
	if jsonMode {
		views := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			views = append(views, entityView(e))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	for _, e := range entities {
		meta := e.Meta()
		fmt.Fprintf(w, "%s  %s  v%d  %s\n",
			typeColor.Sprintf("%-9s", string(meta.Type)),
			idColor.Sprint(meta.ID),
			meta.Version,
			dimColor.Sprint(summarize(e)),
		)
	}
	if len(entities) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("no entities"))
	}
	return nil
}

// summarize gives the one-line human description per entity type.
func summarize(e types.Entity) string {
	switch v := e.(type) {
	case *types.Symbol:
		return fmt.Sprintf("mathml=%s children=%d", truncate(v.MathML, 40), len(v.Children))
	case *types.Citation:
		return "cites " + v.PaperID
	case *types.Sentence:
		return truncate(v.Text, 60)
	case *types.Term:
		return v.Name
	case *types.Equation:
		return truncate(v.TeX, 60)
	default:
		return fmt.Sprintf("(%s)", e.Meta().Type)
	}
}

// entityView renders an entity as the generic JSON shape API consumers see:
// shared metadata plus per-type attributes and relationships.
func entityView(e types.Entity) map[string]any {
	meta := e.Meta()
	view := map[string]any{
		"id":             meta.ID,
		"type":           string(meta.Type),
		"version":        meta.Version,
		"source":         meta.Source,
		"bounding_boxes": meta.BoundingBoxes,
	}
	attributes := map[string]any{}
	relationships := map[string]any{}

	switch v := e.(type) {
	case *types.Symbol:
		attributes["mathml"] = v.MathML
		attributes["mathml_near_matches"] = v.MathMLNearMatches
		if v.TeX != nil {
			attributes["tex"] = *v.TeX
		}
		if len(v.Nicknames) > 0 {
			attributes["nicknames"] = v.Nicknames
		}
		relationships["children"] = v.Children
		relationships["sentence"] = v.Sentence
		relationships["parent"] = v.Parent
		relationships["equation"] = v.Equation
	case *types.Citation:
		attributes["paper_id"] = v.PaperID
	case *types.Sentence:
		attributes["text"] = v.Text
		attributes["tex_start"] = v.TeXStart
		attributes["tex_end"] = v.TeXEnd
		if v.TeX != nil {
			attributes["tex"] = *v.TeX
		}
	case *types.Term:
		attributes["name"] = v.Name
		attributes["definitions"] = v.Definitions
		attributes["sources"] = v.Sources
		relationships["sentence"] = v.Sentence
	case *types.Equation:
		attributes["tex"] = v.TeX
		relationships["sentence"] = v.Sentence
	}

	view["attributes"] = attributes
	view["relationships"] = relationships
	return view
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
