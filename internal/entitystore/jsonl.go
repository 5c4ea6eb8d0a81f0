// JSONL snapshot interchange for one paper's annotations. Each line is a
// tagged record holding an entity, boundingbox, or entitydata row, so a
// snapshot can move between deployments without either side understanding
// the entity types involved.

package entitystore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/inkline-labs/marginalia/pkg/types"
)

// Record table tags.
const (
	recordEntity      = "entity"
	recordBoundingBox = "boundingbox"
	recordEntityData  = "entitydata"
)

// jsonlRecord is one line of a snapshot. Exactly one payload field is set,
// named by Table.
type jsonlRecord struct {
	Table       string                `json:"table"`
	Entity      *types.EntityRow      `json:"entity,omitempty"`
	BoundingBox *types.BoundingBoxRow `json:"boundingbox,omitempty"`
	EntityData  *types.EntityDataRow  `json:"entitydata,omitempty"`
}

// ExportJSONL writes all annotation rows of one paper revision to w, one
// JSON record per line. When version is nil the latest revision is used.
func (s *Store) ExportJSONL(ctx context.Context, w io.Writer, sel types.PaperSelector, version *int64) error {
	paperID, err := s.resolvePaper(ctx, s.db, sel)
	if err != nil {
		return err
	}
	v := int64(0)
	if version != nil {
		v = *version
	} else {
		v, err = s.latestVersion(ctx, s.db, paperID)
		if err != nil {
			return err
		}
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	entityRows, err := s.selectEntityRows(ctx, paperID, v)
	if err != nil {
		return err
	}
	for i := range entityRows {
		if err := enc.Encode(jsonlRecord{Table: recordEntity, Entity: &entityRows[i]}); err != nil {
			return fmt.Errorf("encode entity: %w", err)
		}
	}

	boxRows, err := s.selectBoundingBoxRows(ctx, paperID, v)
	if err != nil {
		return err
	}
	for i := range boxRows {
		if err := enc.Encode(jsonlRecord{Table: recordBoundingBox, BoundingBox: &boxRows[i]}); err != nil {
			return fmt.Errorf("encode bounding box: %w", err)
		}
	}

	dataByEntity, err := s.selectDataRows(ctx, paperID, v)
	if err != nil {
		return err
	}
	for _, row := range entityRows {
		for i := range dataByEntity[row.ID] {
			if err := enc.Encode(jsonlRecord{Table: recordEntityData, EntityData: &dataByEntity[row.ID][i]}); err != nil {
				return fmt.Errorf("encode entity data: %w", err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	s.logger.Info("exported snapshot", "paper_id", paperID, "version", v, "entities", len(entityRows))
	return nil
}

// selectBoundingBoxRows reads the full bounding-box rows (including row ids)
// for snapshot export, in contrast to the grouped domain boxes used on the
// read path.
func (s *Store) selectBoundingBoxRows(ctx context.Context, paperID string, version int64) ([]types.BoundingBoxRow, error) {
	query := `SELECT b.id, b.entity_id, b.source, b.page, b."left", b."top", b.width, b.height
FROM boundingbox b JOIN entity e ON e.id = b.entity_id
WHERE e.paper_id = ? AND e.version = ? ORDER BY b.id`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), paperID, version)
	if err != nil {
		return nil, fmt.Errorf("select bounding box rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.BoundingBoxRow
	for rows.Next() {
		var r types.BoundingBoxRow
		if err := rows.Scan(&r.ID, &r.EntityID, &r.Source, &r.Page, &r.Left, &r.Top, &r.Width, &r.Height); err != nil {
			return nil, fmt.Errorf("scan bounding box row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bounding box rows: %w", err)
	}
	return out, nil
}

// ImportJSONL loads a snapshot into the given paper inside one transaction.
// Imported entity rows are re-homed onto the target paper; row ids are kept
// so cross-entity references stay valid. Blank and malformed lines are
// skipped.
func (s *Store) ImportJSONL(ctx context.Context, r io.Reader, sel types.PaperSelector) error {
	paperID, err := s.resolvePaper(ctx, s.db, sel)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertEntity := s.rebind(`INSERT INTO entity (id, paper_id, version, type, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	insertBox := s.rebind(`INSERT INTO boundingbox (id, entity_id, source, page, "left", "top", width, height) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	imported := 0
	skipped := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		switch {
		case rec.Table == recordEntity && rec.Entity != nil:
			e := rec.Entity
			_, err = tx.ExecContext(ctx, insertEntity, e.ID, paperID, e.Version, e.Type, e.Source, nowRFC3339())
		case rec.Table == recordBoundingBox && rec.BoundingBox != nil:
			b := rec.BoundingBox
			_, err = tx.ExecContext(ctx, insertBox, b.ID, b.EntityID, b.Source, b.Page, b.Left, b.Top, b.Width, b.Height)
		case rec.Table == recordEntityData && rec.EntityData != nil:
			err = s.insertDataRows(ctx, tx, []types.EntityDataRow{*rec.EntityData})
		default:
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("import %s record: %w", rec.Table, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("imported snapshot", "paper_id", paperID, "records", imported, "skipped", skipped)
	return nil
}
