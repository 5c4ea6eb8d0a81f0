package codec

import (
	"strconv"

	"github.com/inkline-labs/marginalia/pkg/types"
)

// Construct builds a typed entity from base metadata and the generic bags
// produced by Unpack. A known type whose required fields are missing or
// mistyped yields nil; the caller drops such entities instead of returning
// partially-filled or unchecked objects. An unrecognized type yields a bare
// Generic carrying only the base metadata.
func Construct(meta types.EntityMeta, attributes, relationships map[string]any) types.Entity {
	switch meta.Type {
	case types.EntitySymbol:
		return constructSymbol(meta, attributes, relationships)
	case types.EntityCitation:
		return constructCitation(meta, attributes)
	case types.EntitySentence:
		return constructSentence(meta, attributes)
	case types.EntityTerm:
		return constructTerm(meta, attributes, relationships)
	case types.EntityEquation:
		return constructEquation(meta, attributes, relationships)
	default:
		return &types.Generic{EntityMeta: meta}
	}
}

func constructSymbol(meta types.EntityMeta, attributes, relationships map[string]any) types.Entity {
	mathml, ok := asString(attributes["mathml"])
	if !ok {
		return nil
	}
	nearMatches, ok := asStringList(attributes["mathml_near_matches"])
	if !ok {
		return nil
	}
	children, ok := asRelationshipList(relationships["children"])
	if !ok {
		return nil
	}
	for i := range children {
		children[i].Type = string(types.EntitySymbol)
	}

	s := &types.Symbol{
		EntityMeta:        meta,
		MathML:            mathml,
		MathMLNearMatches: nearMatches,
		Children:          children,
		Sentence:          types.NullRelationship(string(types.EntitySentence)),
		Parent:            types.NullRelationship(string(types.EntitySymbol)),
		Equation:          types.NullRelationship(string(types.EntityEquation)),
	}
	if sentence, ok := asRelationship(relationships["sentence"]); ok {
		s.Sentence = types.Relationship{Type: string(types.EntitySentence), ID: sentence.ID}
	}
	if parent, ok := asRelationship(relationships["parent"]); ok {
		s.Parent = types.Relationship{Type: string(types.EntitySymbol), ID: parent.ID}
	}
	if equation, ok := asRelationship(relationships["equation"]); ok {
		s.Equation = types.Relationship{Type: string(types.EntityEquation), ID: equation.ID}
	}
	if tex, ok := asString(attributes["tex"]); ok {
		s.TeX = &tex
	}
	if nicknames, ok := asStringList(attributes["nicknames"]); ok {
		s.Nicknames = nicknames
	}
	return s
}

func constructCitation(meta types.EntityMeta, attributes map[string]any) types.Entity {
	paperID, ok := asString(attributes["paper_id"])
	if !ok {
		return nil
	}
	return &types.Citation{EntityMeta: meta, PaperID: paperID}
}

func constructSentence(meta types.EntityMeta, attributes map[string]any) types.Entity {
	text, ok := asString(attributes["text"])
	if !ok {
		return nil
	}
	start, ok := asInt(attributes["tex_start"])
	if !ok {
		return nil
	}
	end, ok := asInt(attributes["tex_end"])
	if !ok {
		return nil
	}

	s := &types.Sentence{
		EntityMeta: meta,
		Text:       text,
		TeXStart:   start,
		TeXEnd:     end,
	}
	if tex, ok := asString(attributes["tex"]); ok {
		s.TeX = &tex
	}
	return s
}

func constructTerm(meta types.EntityMeta, attributes, relationships map[string]any) types.Entity {
	name, ok := asString(attributes["name"])
	if !ok {
		return nil
	}

	term := &types.Term{
		EntityMeta:  meta,
		Name:        name,
		Definitions: []string{},
		Sources:     []string{},
		Sentence:    types.NullRelationship(string(types.EntitySentence)),
	}
	if definitions, ok := asStringList(attributes["definitions"]); ok {
		term.Definitions = definitions
	}
	if sources, ok := asStringList(attributes["sources"]); ok {
		term.Sources = sources
	}
	if sentence, ok := asRelationship(relationships["sentence"]); ok {
		term.Sentence = types.Relationship{Type: string(types.EntitySentence), ID: sentence.ID}
	}
	return term
}

func constructEquation(meta types.EntityMeta, attributes, relationships map[string]any) types.Entity {
	tex, ok := asString(attributes["tex"])
	if !ok {
		return nil
	}

	eq := &types.Equation{
		EntityMeta: meta,
		TeX:        tex,
		Sentence:   types.NullRelationship(string(types.EntitySentence)),
	}
	if sentence, ok := asRelationship(relationships["sentence"]); ok {
		eq.Sentence = types.Relationship{Type: string(types.EntitySentence), ID: sentence.ID}
	}
	return eq
}

// asInt parses a stored scalar into an int. Values arrive as strings from
// the entitydata table; a parse failure fails construction outright rather
// than admitting a garbage offset.
func asInt(v any) (int, bool) {
	s, ok := asScalar(v)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
