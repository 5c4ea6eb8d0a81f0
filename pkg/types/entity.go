package types

// EntityType identifies the annotation kind of an entity. Types outside this
// set are preserved in storage but surface as a bare Generic entity.
type EntityType string

const (
	EntitySymbol   EntityType = "symbol"
	EntityCitation EntityType = "citation"
	EntitySentence EntityType = "sentence"
	EntityTerm     EntityType = "term"
	EntityEquation EntityType = "equation"
)

// Relationship points at another entity. A nil ID marks a relationship slot
// that exists for the type but is not bound to a concrete entity.
type Relationship struct {
	Type string  `json:"type"`
	ID   *string `json:"id"`
}

// NullRelationship returns an unbound relationship of the given type.
func NullRelationship(relType string) Relationship {
	return Relationship{Type: relType}
}

// BoundingBox is a page-relative rectangle tying a visual region of the
// rendered paper to an entity. Coordinates are in PDF user-space ratios.
type BoundingBox struct {
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EntityMeta carries the fields shared by every entity regardless of type.
// It is always valid on its own; type-specific fields live on the concrete
// entity structs.
type EntityMeta struct {
	ID            string
	Type          EntityType
	Version       int64
	Source        string
	BoundingBoxes []BoundingBox
}

// Meta returns the shared entity fields. It makes any struct embedding
// EntityMeta satisfy the Entity interface.
func (m *EntityMeta) Meta() *EntityMeta { return m }

// Entity is implemented by all typed entities plus the Generic fallback.
// Callers type-switch on the concrete struct to reach type-specific fields.
type Entity interface {
	Meta() *EntityMeta
}

// Generic is the fallback for entity types this package does not recognize.
// It deliberately exposes no custom attributes or relationships, so rows
// written by unknown annotators cannot leak arbitrary data to clients.
type Generic struct {
	EntityMeta
}

// Symbol is a mathematical symbol appearing in the paper.
type Symbol struct {
	EntityMeta

	MathML            string
	MathMLNearMatches []string
	TeX               *string
	Nicknames         []string

	Children []Relationship
	Sentence Relationship
	Parent   Relationship
	Equation Relationship
}

// Citation is a reference from this paper to another paper.
type Citation struct {
	EntityMeta

	PaperID string
}

// Sentence is a sentence of the paper body with its TeX character offsets.
type Sentence struct {
	EntityMeta

	Text     string
	TeX      *string
	TeXStart int
	TeXEnd   int
}

// Term is a defined technical term.
type Term struct {
	EntityMeta

	Name        string
	Definitions []string
	Sources     []string

	Sentence Relationship
}

// Equation is a display equation.
type Equation struct {
	EntityMeta

	TeX string

	Sentence Relationship
}

// EntityCreateData is the payload for creating a new entity. Attributes and
// Relationships are generic bags; only the keys known for Type are persisted.
type EntityCreateData struct {
	Type          EntityType     `json:"type"`
	Version       *int64         `json:"version,omitempty"`
	Source        string         `json:"source"`
	BoundingBoxes []BoundingBox  `json:"bounding_boxes"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	Relationships map[string]any `json:"relationships,omitempty"`
}

// EntityPatch is a partial update of an existing entity. A nil field group
// leaves the corresponding rows untouched; a present group replaces them.
type EntityPatch struct {
	ID            string         `json:"id"`
	Type          EntityType     `json:"type"`
	Source        *string        `json:"source,omitempty"`
	Version       *int64         `json:"version,omitempty"`
	BoundingBoxes []BoundingBox  `json:"bounding_boxes,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	Relationships map[string]any `json:"relationships,omitempty"`
}
