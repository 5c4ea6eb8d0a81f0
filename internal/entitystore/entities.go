package entitystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkline-labs/marginalia/internal/codec"
	"github.com/inkline-labs/marginalia/pkg/types"
)

// EntitiesForPaper reads every entity of one paper revision and reconstructs
// the typed objects. When version is nil the paper's latest version is used.
// Entities whose rows cannot satisfy their type's contract are dropped; the
// returned slice preserves the row order as read from storage.
func (s *Store) EntitiesForPaper(ctx context.Context, sel types.PaperSelector, version *int64) ([]types.Entity, error) {
	paperID, err := s.resolvePaper(ctx, s.db, sel)
	if err != nil {
		return nil, err
	}

	v := int64(0)
	if version != nil {
		v = *version
	} else {
		v, err = s.latestVersion(ctx, s.db, paperID)
		if err != nil {
			return nil, err
		}
	}

	entityRows, err := s.selectEntityRows(ctx, paperID, v)
	if err != nil {
		return nil, err
	}
	boxesByEntity, err := s.selectBoundingBoxes(ctx, paperID, v)
	if err != nil {
		return nil, err
	}
	dataByEntity, err := s.selectDataRows(ctx, paperID, v)
	if err != nil {
		return nil, err
	}

	entities := make([]types.Entity, 0, len(entityRows))
	dropped := 0
	for _, row := range entityRows {
		meta := types.EntityMeta{
			ID:            row.ID,
			Type:          types.EntityType(row.Type),
			Version:       row.Version,
			Source:        row.Source,
			BoundingBoxes: boxesByEntity[row.ID],
		}
		attrs, rels := codec.Unpack(dataByEntity[row.ID])
		entity := codec.Construct(meta, attrs, rels)
		if entity == nil {
			dropped++
			continue
		}
		entities = append(entities, entity)
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed entities", "paper_id", paperID, "version", v, "count", dropped)
	}
	return entities, nil
}

func (s *Store) selectEntityRows(ctx context.Context, paperID string, version int64) ([]types.EntityRow, error) {
	query := `SELECT id, paper_id, version, type, source FROM entity
WHERE paper_id = ? AND version = ? ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), paperID, version)
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.EntityRow
	for rows.Next() {
		var r types.EntityRow
		if err := rows.Scan(&r.ID, &r.PaperID, &r.Version, &r.Type, &r.Source); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func (s *Store) selectBoundingBoxes(ctx context.Context, paperID string, version int64) (map[string][]types.BoundingBox, error) {
	query := `SELECT b.entity_id, b.source, b.page, b."left", b."top", b.width, b.height
FROM boundingbox b JOIN entity e ON e.id = b.entity_id
WHERE e.paper_id = ? AND e.version = ? ORDER BY b.id`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), paperID, version)
	if err != nil {
		return nil, fmt.Errorf("select bounding boxes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	grouped := map[string][]types.BoundingBox{}
	for rows.Next() {
		var (
			entityID string
			box      types.BoundingBox
		)
		if err := rows.Scan(&entityID, &box.Source, &box.Page, &box.Left, &box.Top, &box.Width, &box.Height); err != nil {
			return nil, fmt.Errorf("scan bounding box: %w", err)
		}
		grouped[entityID] = append(grouped[entityID], box)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bounding boxes: %w", err)
	}
	return grouped, nil
}

func (s *Store) selectDataRows(ctx context.Context, paperID string, version int64) (map[string][]types.EntityDataRow, error) {
	query := `SELECT d.entity_id, d.source, d.type, d.key, d.value
FROM entitydata d JOIN entity e ON e.id = d.entity_id
WHERE e.paper_id = ? AND e.version = ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), paperID, version)
	if err != nil {
		return nil, fmt.Errorf("select entity data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	grouped := map[string][]types.EntityDataRow{}
	for rows.Next() {
		var r types.EntityDataRow
		if err := rows.Scan(&r.EntityID, &r.Source, &r.Type, &r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("scan entity data: %w", err)
		}
		grouped[r.EntityID] = append(grouped[r.EntityID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity data: %w", err)
	}
	return grouped, nil
}

// CreateEntity writes a new entity with its bounding boxes and data rows in
// one transaction, then reconstructs it from the rows just written so the
// response carries only type-validated fields. A payload that does not
// satisfy its type's contract rolls back and returns ErrInvalidData.
func (s *Store) CreateEntity(ctx context.Context, sel types.PaperSelector, data types.EntityCreateData) (types.Entity, error) {
	paperID, err := s.resolvePaper(ctx, s.db, sel)
	if err != nil {
		return nil, err
	}

	version := int64(0)
	if data.Version != nil {
		version = *data.Version
	} else {
		version, err = s.latestVersion(ctx, s.db, paperID)
		if err != nil {
			return nil, err
		}
	}

	entityID := newUUID()
	dataRows := codec.Flatten(entityID, data.Type, data.Source, data.Attributes, data.Relationships)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO entity (id, paper_id, version, type, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, s.rebind(query), entityID, paperID, version, string(data.Type), data.Source, nowRFC3339()); err != nil {
		return nil, fmt.Errorf("insert entity: %w", err)
	}
	if err := s.insertBoundingBoxes(ctx, tx, entityID, data.Source, data.BoundingBoxes); err != nil {
		return nil, err
	}
	if err := s.insertDataRows(ctx, tx, dataRows); err != nil {
		return nil, err
	}

	meta := types.EntityMeta{
		ID:            entityID,
		Type:          data.Type,
		Version:       version,
		Source:        data.Source,
		BoundingBoxes: data.BoundingBoxes,
	}
	attrs, rels := codec.Unpack(dataRows)
	entity := codec.Construct(meta, attrs, rels)
	if entity == nil {
		return nil, fmt.Errorf("create %s entity: %w", data.Type, types.ErrInvalidData)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("created entity", "entity_id", entityID, "type", string(data.Type), "paper_id", paperID, "version", version)
	return entity, nil
}

// UpdateEntity applies a partial, field-group-scoped update in one
// transaction. Metadata changes apply in place. Bounding boxes, when
// present, are replaced wholesale. Attributes are replaced per key, so
// relationship rows survive an attribute patch. Relationships, when
// present, replace all reference-typed rows of the entity.
func (s *Store) UpdateEntity(ctx context.Context, patch types.EntityPatch) error {
	if patch.ID == "" {
		return types.ErrInvalidID
	}

	var currentSource string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT source FROM entity WHERE id = ?`), patch.ID).Scan(&currentSource)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("entity %s: %w", patch.ID, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check entity: %w", err)
	}

	source := currentSource
	if patch.Source != nil {
		source = *patch.Source
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if patch.Source != nil || patch.Version != nil {
		if err := s.updateEntityRow(ctx, tx, patch); err != nil {
			return err
		}
	}

	if patch.BoundingBoxes != nil {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM boundingbox WHERE entity_id = ?`), patch.ID); err != nil {
			return fmt.Errorf("delete bounding boxes: %w", err)
		}
		if err := s.insertBoundingBoxes(ctx, tx, patch.ID, source, patch.BoundingBoxes); err != nil {
			return err
		}
	}

	if patch.Attributes != nil {
		attrRows := codec.Flatten(patch.ID, patch.Type, source, patch.Attributes, nil)
		// Delete per (type, key) so reference rows are untouched.
		deleteKey := s.rebind(`DELETE FROM entitydata WHERE entity_id = ? AND type = ? AND key = ?`)
		deleted := map[string]bool{}
		for _, row := range attrRows {
			k := string(row.Type) + "\x00" + row.Key
			if deleted[k] {
				continue
			}
			if _, err := tx.ExecContext(ctx, deleteKey, row.EntityID, string(row.Type), row.Key); err != nil {
				return fmt.Errorf("delete attribute rows: %w", err)
			}
			deleted[k] = true
		}
		if err := s.insertDataRows(ctx, tx, attrRows); err != nil {
			return err
		}
	}

	if patch.Relationships != nil {
		relRows := codec.Flatten(patch.ID, patch.Type, source, nil, patch.Relationships)
		query := `DELETE FROM entitydata WHERE entity_id = ? AND type IN (?, ?)`
		if _, err := tx.ExecContext(ctx, s.rebind(query), patch.ID, string(types.DataReference), string(types.DataReferenceList)); err != nil {
			return fmt.Errorf("delete relationship rows: %w", err)
		}
		if err := s.insertDataRows(ctx, tx, relRows); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("updated entity", "entity_id", patch.ID, "type", string(patch.Type))
	return nil
}

func (s *Store) updateEntityRow(ctx context.Context, q execer, patch types.EntityPatch) error {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if patch.Source != nil {
		sets = append(sets, "source = ?")
		args = append(args, *patch.Source)
	}
	if patch.Version != nil {
		sets = append(sets, "version = ?")
		args = append(args, *patch.Version)
	}
	args = append(args, patch.ID)

	query := "UPDATE entity SET " + joinSets(sets) + " WHERE id = ?"
	if _, err := q.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("update entity row: %w", err)
	}
	return nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

// DeleteEntity removes the entity row and, explicitly, its dependent
// bounding-box and entitydata rows. The explicit deletes keep behavior
// identical on backends without foreign-key cascades.
func (s *Store) DeleteEntity(ctx context.Context, entityID string) error {
	if entityID == "" {
		return types.ErrInvalidID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM entitydata WHERE entity_id = ?`), entityID); err != nil {
		return fmt.Errorf("delete entity data: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM boundingbox WHERE entity_id = ?`), entityID); err != nil {
		return fmt.Errorf("delete bounding boxes: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM entity WHERE id = ?`), entityID)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entity %s: %w", entityID, types.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("deleted entity", "entity_id", entityID)
	return nil
}
