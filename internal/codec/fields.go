package codec

import "github.com/inkline-labs/marginalia/pkg/types"

// fieldSpec lists the attribute and relationship keys recognized for one
// entity type, in flatten emission order. Keys outside these tables are
// never persisted, so callers cannot smuggle arbitrary data through the
// generic bags.
type fieldSpec struct {
	scalars  []string
	lists    []string
	refs     []string
	refLists []string
}

var fieldSpecs = map[types.EntityType]fieldSpec{
	types.EntitySymbol: {
		scalars:  []string{"mathml", "tex"},
		lists:    []string{"mathml_near_matches", "nicknames"},
		refs:     []string{"sentence", "parent", "equation"},
		refLists: []string{"children"},
	},
	types.EntityCitation: {
		scalars: []string{"paper_id"},
	},
	types.EntitySentence: {
		scalars: []string{"text", "tex", "tex_start", "tex_end"},
	},
	types.EntityTerm: {
		scalars: []string{"name"},
		lists:   []string{"definitions", "sources"},
		refs:    []string{"sentence"},
	},
	types.EntityEquation: {
		scalars: []string{"tex"},
		refs:    []string{"sentence"},
	},
}
