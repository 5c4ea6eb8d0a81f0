package entitystore

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/inkline-labs/marginalia/pkg/types"
)

func strptr(s string) *string { return &s }

func int64ptr(v int64) *int64 { return &v }

// setupStore opens a fresh SQLite database in a temp dir, initializes the
// schema, and registers one paper.
func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "annotations.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store, err := New(db, DialectSQLite, nil)
	require.NoError(t, err)
	require.NoError(t, store.InitSchema(context.Background()))
	require.NoError(t, store.EnsurePaper(context.Background(), "s2-paper-1", "1705.00001"))
	return store
}

func paper() types.PaperSelector {
	return types.PaperSelector{S2ID: "s2-paper-1"}
}

func symbolCreateData() types.EntityCreateData {
	return types.EntityCreateData{
		Type:   types.EntitySymbol,
		Source: "human-annotation",
		BoundingBoxes: []types.BoundingBox{
			{Page: 2, Left: 0.1, Top: 0.2, Width: 0.05, Height: 0.01},
		},
		Attributes: map[string]any{
			"mathml":              "<mi>x</mi>",
			"mathml_near_matches": []string{"<mi>x</mi>"},
		},
		Relationships: map[string]any{
			"sentence": types.Relationship{Type: "sentence", ID: strptr("sent-1")},
			"children": []types.Relationship{{Type: "symbol", ID: strptr("sym-child")}},
		},
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, DialectSQLite, nil)
	assert.Error(t, err)

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, "oracle", nil)
	assert.ErrorIs(t, err, types.ErrUnknownDialect)
}

func TestRebind(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer db.Close()

	sqliteStore, err := New(db, DialectSQLite, nil)
	require.NoError(t, err)
	pgStore, err := New(db, DialectPostgres, nil)
	require.NoError(t, err)

	q := `INSERT INTO t (a, b) VALUES (?, ?)`
	assert.Equal(t, q, sqliteStore.rebind(q))
	assert.Equal(t, `INSERT INTO t (a, b) VALUES ($1, $2)`, pgStore.rebind(q))
}

func TestCreateAndReadRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)
	createdSymbol, ok := created.(*types.Symbol)
	require.True(t, ok, "create must return the cleaned typed entity")
	assert.NotEmpty(t, createdSymbol.ID)
	assert.Equal(t, "<mi>x</mi>", createdSymbol.MathML)

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	symbol, ok := entities[0].(*types.Symbol)
	require.True(t, ok)
	assert.Equal(t, createdSymbol.ID, symbol.ID)
	assert.Equal(t, "human-annotation", symbol.Source)
	assert.Equal(t, []string{"<mi>x</mi>"}, symbol.MathMLNearMatches)
	require.NotNil(t, symbol.Sentence.ID)
	assert.Equal(t, "sent-1", *symbol.Sentence.ID)
	require.Len(t, symbol.Children, 1)
	assert.Equal(t, "sym-child", *symbol.Children[0].ID)
	require.Len(t, symbol.BoundingBoxes, 1)
	assert.Equal(t, 2, symbol.BoundingBoxes[0].Page)
	// Boxes created without a source inherit the entity source.
	assert.Equal(t, "human-annotation", symbol.BoundingBoxes[0].Source)
}

func TestReadPreservesEntityOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		created, err := store.CreateEntity(ctx, paper(), types.EntityCreateData{
			Type:       types.EntityCitation,
			Source:     "pipeline",
			Attributes: map[string]any{"paper_id": "cited"},
		})
		require.NoError(t, err)
		ids = append(ids, created.Meta().ID)
	}

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 5)
	for i, e := range entities {
		assert.Equal(t, ids[i], e.Meta().ID)
	}
}

func TestPaperNotFound(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.EntitiesForPaper(ctx, types.PaperSelector{ArxivID: "9999.99999"}, nil)
	assert.ErrorIs(t, err, types.ErrPaperNotFound)

	_, err = store.CreateEntity(ctx, types.PaperSelector{S2ID: "nope"}, symbolCreateData())
	assert.ErrorIs(t, err, types.ErrPaperNotFound)

	_, err = store.EntitiesForPaper(ctx, types.PaperSelector{}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidSelector)

	_, err = store.EntitiesForPaper(ctx, types.PaperSelector{ArxivID: "a", S2ID: "b"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidSelector)
}

func TestResolveByArxivID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.CreateEntity(ctx, types.PaperSelector{ArxivID: "1705.00001"}, symbolCreateData())
	require.NoError(t, err)

	entities, err := store.EntitiesForPaper(ctx, types.PaperSelector{ArxivID: "1705.00001"}, nil)
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}

func TestCreateInvalidDataRollsBack(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	data := symbolCreateData()
	delete(data.Attributes, "mathml")

	_, err := store.CreateEntity(ctx, paper(), data)
	assert.ErrorIs(t, err, types.ErrInvalidData)

	// The rolled-back entity must not be visible, not even as raw rows.
	var buf bytes.Buffer
	require.NoError(t, store.ExportJSONL(ctx, &buf, paper(), nil))
	assert.Zero(t, buf.Len())
}

func TestUpdateAttributesLeavesRelationshipsIntact(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)

	err = store.UpdateEntity(ctx, types.EntityPatch{
		ID:   created.Meta().ID,
		Type: types.EntitySymbol,
		Attributes: map[string]any{
			"mathml": "<mi>y</mi>",
		},
	})
	require.NoError(t, err)

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	symbol := entities[0].(*types.Symbol)

	assert.Equal(t, "<mi>y</mi>", symbol.MathML)
	// Untouched attribute keys survive a per-key replacement.
	assert.Equal(t, []string{"<mi>x</mi>"}, symbol.MathMLNearMatches)
	// Relationship rows are not disturbed by an attribute patch.
	require.NotNil(t, symbol.Sentence.ID)
	assert.Equal(t, "sent-1", *symbol.Sentence.ID)
	require.Len(t, symbol.Children, 1)
}

func TestUpdateRelationshipsReplacedWholesale(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)

	err = store.UpdateEntity(ctx, types.EntityPatch{
		ID:   created.Meta().ID,
		Type: types.EntitySymbol,
		Relationships: map[string]any{
			"children": []types.Relationship{
				{Type: "symbol", ID: strptr("sym-new-1")},
				{Type: "symbol", ID: strptr("sym-new-2")},
			},
		},
	})
	require.NoError(t, err)

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	symbol := entities[0].(*types.Symbol)

	// Attributes untouched by a relationship patch.
	assert.Equal(t, "<mi>x</mi>", symbol.MathML)
	// The old sentence reference is gone: reference rows are replaced as a
	// group.
	assert.Nil(t, symbol.Sentence.ID)
	require.Len(t, symbol.Children, 2)
	assert.Equal(t, "sym-new-1", *symbol.Children[0].ID)
	assert.Equal(t, "sym-new-2", *symbol.Children[1].ID)
}

func TestUpdateBoundingBoxesAndMetadata(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)

	err = store.UpdateEntity(ctx, types.EntityPatch{
		ID:     created.Meta().ID,
		Type:   types.EntitySymbol,
		Source: strptr("other-pipeline"),
		BoundingBoxes: []types.BoundingBox{
			{Page: 3, Left: 0.5, Top: 0.5, Width: 0.1, Height: 0.02},
			{Page: 4, Left: 0.1, Top: 0.9, Width: 0.1, Height: 0.02},
		},
	})
	require.NoError(t, err)

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	symbol := entities[0].(*types.Symbol)

	assert.Equal(t, "other-pipeline", symbol.Source)
	require.Len(t, symbol.BoundingBoxes, 2)
	pages := []int{symbol.BoundingBoxes[0].Page, symbol.BoundingBoxes[1].Page}
	assert.ElementsMatch(t, []int{3, 4}, pages)
}

func TestUpdateMissingEntity(t *testing.T) {
	store := setupStore(t)
	err := store.UpdateEntity(context.Background(), types.EntityPatch{
		ID:   "ghost",
		Type: types.EntitySymbol,
	})
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = store.UpdateEntity(context.Background(), types.EntityPatch{})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestDeleteEntityCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)

	require.NoError(t, store.DeleteEntity(ctx, created.Meta().ID))

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	assert.Empty(t, entities)

	// Dependent rows go with the entity; the snapshot is empty.
	var buf bytes.Buffer
	require.NoError(t, store.ExportJSONL(ctx, &buf, paper(), nil))
	assert.Zero(t, buf.Len())

	assert.ErrorIs(t, store.DeleteEntity(ctx, created.Meta().ID), types.ErrNotFound)
	assert.ErrorIs(t, store.DeleteEntity(ctx, ""), types.ErrInvalidID)
}

func TestVersionPinning(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)

	next, err := store.BumpVersion(ctx, paper())
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	created, err := store.CreateEntity(ctx, paper(), types.EntityCreateData{
		Type:       types.EntityCitation,
		Source:     "pipeline",
		Attributes: map[string]any{"paper_id": "s2-cited"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Meta().Version)

	// Default read pins to the latest version.
	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	_, ok := entities[0].(*types.Citation)
	assert.True(t, ok)

	// An explicit version reads the older revision.
	entities, err = store.EntitiesForPaper(ctx, paper(), int64ptr(0))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	_, ok = entities[0].(*types.Symbol)
	assert.True(t, ok)

	latest, err := store.LatestVersion(ctx, paper())
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest)
}

func TestMalformedRowsAreDroppedOnRead(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)

	// Simulate an external writer that stored a symbol without its required
	// rows: insert the base row directly.
	_, err = store.db.ExecContext(ctx,
		`INSERT INTO entity (id, paper_id, version, type, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"broken-sym", "s2-paper-1", 0, "symbol", "external", nowRFC3339())
	require.NoError(t, err)

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1, "the malformed symbol is dropped, not surfaced")
}

func TestUnknownEntityTypeStaysGeneric(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.CreateEntity(ctx, paper(), types.EntityCreateData{
		Type:       "experiment",
		Source:     "plugin",
		Attributes: map[string]any{"secret": "do not leak"},
	})
	require.NoError(t, err)
	_, ok := created.(*types.Generic)
	assert.True(t, ok)

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	_, ok = entities[0].(*types.Generic)
	assert.True(t, ok)
}

func TestJSONLRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.CreateEntity(ctx, paper(), symbolCreateData())
	require.NoError(t, err)
	_, err = store.CreateEntity(ctx, paper(), types.EntityCreateData{
		Type:       types.EntityCitation,
		Source:     "pipeline",
		Attributes: map[string]any{"paper_id": "s2-cited"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSONL(ctx, &buf, paper(), nil))
	assert.Positive(t, buf.Len())

	require.NoError(t, store.EnsurePaper(ctx, "s2-paper-2", ""))
	target := types.PaperSelector{S2ID: "s2-paper-2"}
	require.NoError(t, store.ImportJSONL(ctx, &buf, target))

	source, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	imported, err := store.EntitiesForPaper(ctx, target, nil)
	require.NoError(t, err)
	require.Len(t, imported, len(source))

	for i := range source {
		assert.Equal(t, source[i].Meta().ID, imported[i].Meta().ID)
		assert.Equal(t, source[i].Meta().Type, imported[i].Meta().Type)
	}
}

func TestImportSkipsMalformedLines(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	snapshot := `not json at all
{"table":"entity","entity":{"id":"e-1","paper_id":"ignored","version":0,"type":"citation","source":"s"}}
{"table":"mystery"}
{"table":"entitydata","entitydata":{"entity_id":"e-1","source":"s","type":"scalar","key":"paper_id","value":"s2-x"}}
`
	require.NoError(t, store.ImportJSONL(ctx, bytes.NewBufferString(snapshot), paper()))

	entities, err := store.EntitiesForPaper(ctx, paper(), nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	citation := entities[0].(*types.Citation)
	assert.Equal(t, "s2-x", citation.PaperID)
}
