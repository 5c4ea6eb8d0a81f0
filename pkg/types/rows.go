package types

// DataRowType tags how an entitydata row's value column is interpreted.
type DataRowType string

const (
	DataScalar        DataRowType = "scalar"
	DataScalarList    DataRowType = "scalar-list"
	DataReference     DataRowType = "reference"
	DataReferenceList DataRowType = "reference-list"
)

// EntityRow is the base row for one logical entity at one version. A paper
// may carry multiple rows per entity across versions; readers pin to the
// paper's latest version index unless one is given explicitly.
type EntityRow struct {
	ID      string `json:"id"`
	PaperID string `json:"paper_id"`
	Version int64  `json:"version"`
	Type    string `json:"type"`
	Source  string `json:"source"`
}

// BoundingBoxRow ties a page rectangle to an entity. An entity has zero
// (non-visual) to many (multi-region highlight) bounding-box rows.
type BoundingBoxRow struct {
	ID       string  `json:"id"`
	EntityID string  `json:"entity_id"`
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// EntityDataRow is the entity-attribute-value encoding of one attribute
// value, or of one element of a list-valued attribute or relationship.
// Storage does not guarantee stable ordering of these rows across reads.
type EntityDataRow struct {
	EntityID string      `json:"entity_id"`
	Source   string      `json:"source"`
	Type     DataRowType `json:"type"`
	Key      string      `json:"key"`
	Value    *string     `json:"value"`
}
