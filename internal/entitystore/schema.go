package entitystore

// Schema DDL for the annotation tables. The statements are kept to the SQL
// subset shared by SQLite and Postgres; "left" and "top" are quoted because
// they are keywords in Postgres.
const (
	createPaper = `CREATE TABLE IF NOT EXISTS paper (
    s2_id TEXT PRIMARY KEY,
    arxiv_id TEXT
);`

	createVersion = `CREATE TABLE IF NOT EXISTS version (
    paper_id TEXT NOT NULL,
    idx INTEGER NOT NULL,
    PRIMARY KEY (paper_id, idx)
);`

	createEntity = `CREATE TABLE IF NOT EXISTS entity (
    id TEXT PRIMARY KEY,
    paper_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    type TEXT NOT NULL,
    source TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createEntityIndex = `CREATE INDEX IF NOT EXISTS idx_entity_paper_version ON entity (paper_id, version);`

	createBoundingBox = `CREATE TABLE IF NOT EXISTS boundingbox (
    id TEXT PRIMARY KEY,
    entity_id TEXT NOT NULL,
    source TEXT NOT NULL,
    page INTEGER NOT NULL,
    "left" REAL NOT NULL,
    "top" REAL NOT NULL,
    width REAL NOT NULL,
    height REAL NOT NULL
);`

	createBoundingBoxIndex = `CREATE INDEX IF NOT EXISTS idx_boundingbox_entity ON boundingbox (entity_id);`

	createEntityData = `CREATE TABLE IF NOT EXISTS entitydata (
    entity_id TEXT NOT NULL,
    source TEXT NOT NULL,
    type TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT
);`

	createEntityDataIndex = `CREATE INDEX IF NOT EXISTS idx_entitydata_entity ON entitydata (entity_id);`
)

// schemaStatements lists the DDL in dependency order.
var schemaStatements = []string{
	createPaper,
	createVersion,
	createEntity,
	createEntityIndex,
	createBoundingBox,
	createBoundingBoxIndex,
	createEntityData,
	createEntityDataIndex,
}
