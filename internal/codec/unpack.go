// Package codec translates between the schemaless entity-attribute-value
// rows persisted in storage and the typed entities exposed to clients.
//
// The three stages are Unpack (rows to generic bags), Construct (bags plus
// base metadata to a typed entity, or nil when the rows cannot satisfy the
// type's contract), and Flatten (generic bags back to rows, restricted to
// the keys known for the type).
package codec

import "github.com/inkline-labs/marginalia/pkg/types"

// Unpack folds one entity's data rows into generic attribute and
// relationship bags. Attribute values are string, []string, or nil;
// relationship values are types.Relationship or []types.Relationship.
//
// Duplicate scalar keys resolve last-write-wins; no de-duplication is
// attempted. List rows with a nil value still initialize the list but
// contribute no element. Unknown keys pass through untouched and are
// discarded later unless a constructor recognizes them.
func Unpack(rows []types.EntityDataRow) (attributes map[string]any, relationships map[string]any) {
	attributes = map[string]any{}
	relationships = map[string]any{}

	for _, row := range rows {
		switch row.Type {
		case types.DataScalar:
			if row.Value != nil {
				attributes[row.Key] = *row.Value
			} else {
				attributes[row.Key] = nil
			}
		case types.DataScalarList:
			list, _ := attributes[row.Key].([]string)
			if list == nil {
				list = []string{}
			}
			if row.Value != nil {
				list = append(list, *row.Value)
			}
			attributes[row.Key] = list
		case types.DataReference:
			relationships[row.Key] = types.Relationship{Type: row.Key, ID: row.Value}
		case types.DataReferenceList:
			list, _ := relationships[row.Key].([]types.Relationship)
			if list == nil {
				list = []types.Relationship{}
			}
			list = append(list, types.Relationship{Type: row.Key, ID: row.Value})
			relationships[row.Key] = list
		}
	}
	return attributes, relationships
}
