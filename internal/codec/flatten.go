package codec

import "github.com/inkline-labs/marginalia/pkg/types"

// Flatten emits the entitydata rows representing the given bags, restricted
// to the keys known for entityType. Unknown keys and mistyped values are
// silently dropped. Output order is deterministic for identical input: keys
// follow the type's field table, list rows follow list order.
//
// An empty list emits zero rows, so "empty" and "absent" are
// indistinguishable on disk. A single reference emits a row only when bound
// to a concrete id; list references emit one row per element.
func Flatten(entityID string, entityType types.EntityType, source string, attributes, relationships map[string]any) []types.EntityDataRow {
	spec, ok := fieldSpecs[entityType]
	if !ok {
		return nil
	}

	var rows []types.EntityDataRow

	for _, key := range spec.scalars {
		value, ok := asScalar(attributes[key])
		if !ok {
			continue
		}
		rows = append(rows, types.EntityDataRow{
			EntityID: entityID,
			Source:   source,
			Type:     types.DataScalar,
			Key:      key,
			Value:    &value,
		})
	}

	for _, key := range spec.lists {
		list, ok := asStringList(attributes[key])
		if !ok {
			continue
		}
		for _, element := range list {
			rows = append(rows, types.EntityDataRow{
				EntityID: entityID,
				Source:   source,
				Type:     types.DataScalarList,
				Key:      key,
				Value:    &element,
			})
		}
	}

	for _, key := range spec.refs {
		rel, ok := asRelationship(relationships[key])
		if !ok || !isBound(rel) {
			continue
		}
		rows = append(rows, types.EntityDataRow{
			EntityID: entityID,
			Source:   source,
			Type:     types.DataReference,
			Key:      key,
			Value:    rel.ID,
		})
	}

	for _, key := range spec.refLists {
		list, ok := asRelationshipList(relationships[key])
		if !ok {
			continue
		}
		for _, rel := range list {
			rows = append(rows, types.EntityDataRow{
				EntityID: entityID,
				Source:   source,
				Type:     types.DataReferenceList,
				Key:      key,
				Value:    rel.ID,
			})
		}
	}

	return rows
}
