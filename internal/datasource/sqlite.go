package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/graphlens/pkg/model"
)

// Schema is the layout of a graph database file. The position columns keep
// registry and element order stable across a round trip.
const Schema = `
CREATE TABLE IF NOT EXISTS nodetypes (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL DEFAULT '',
	color    TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS reltypes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	color      TEXT NOT NULL,
	color_mode TEXT NOT NULL DEFAULT 'custom',
	position   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS nodes (
	id          TEXT PRIMARY KEY,
	nodetype_id TEXT NOT NULL REFERENCES nodetypes(id),
	label       TEXT,
	properties  TEXT,
	x           REAL,
	y           REAL,
	position    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS relationships (
	id         TEXT PRIMARY KEY,
	reltype_id TEXT NOT NULL REFERENCES reltypes(id),
	source     TEXT NOT NULL REFERENCES nodes(id),
	target     TEXT NOT NULL REFERENCES nodes(id),
	position   INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteReader provides read access to a graph database file
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode; the viewer never writes graph data
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadPayload reads the whole graph.
func (r *SQLiteReader) LoadPayload(ctx context.Context) (*model.Payload, error) {
	p := &model.Payload{}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color FROM nodetypes ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query node types: %w", err)
	}
	for rows.Next() {
		var t model.NodeType
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan node type: %w", err)
		}
		p.NodeTypes = append(p.NodeTypes, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT id, name, color, color_mode FROM reltypes ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query relationship types: %w", err)
	}
	for rows.Next() {
		var t model.EdgeType
		var mode string
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &mode); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan relationship type: %w", err)
		}
		t.ColorMode = model.ColorMode(mode)
		p.EdgeTypes = append(p.EdgeTypes, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT id, nodetype_id, label, properties, x, y FROM nodes ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	for rows.Next() {
		var n model.NodeData
		var label, props sql.NullString
		var x, y sql.NullFloat64
		if err := rows.Scan(&n.ID, &n.TypeID, &label, &props, &x, &y); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Label = label.String
		if props.Valid && props.String != "" && props.String != "null" {
			if err := json.Unmarshal([]byte(props.String), &n.Properties); err != nil {
				rows.Close()
				return nil, fmt.Errorf("node %s properties: %w", n.ID, err)
			}
		}
		if x.Valid && y.Valid {
			xv, yv := x.Float64, y.Float64
			n.X, n.Y = &xv, &yv
		}
		p.Nodes = append(p.Nodes, n)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT id, reltype_id, source, target FROM relationships ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	for rows.Next() {
		var e model.EdgeData
		if err := rows.Scan(&e.ID, &e.TypeID, &e.Source, &e.Target); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		p.Edges = append(p.Edges, e)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	p.Normalize()
	return p, nil
}

// CountNodes returns the number of nodes without loading them.
func (r *SQLiteReader) CountNodes(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}

// WriteSQLite stores p in a new database file at path, replacing any
// existing file.
func WriteSQLite(ctx context.Context, path string, p *model.Payload) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, t := range p.NodeTypes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO nodetypes (id, name, color, position) VALUES (?, ?, ?, ?)`,
			t.ID, t.Name, t.Color, i); err != nil {
			return fmt.Errorf("insert node type %s: %w", t.ID, err)
		}
	}
	for i, t := range p.EdgeTypes {
		mode := t.ColorMode
		if mode == "" {
			mode = model.ColorModeCustom
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO reltypes (id, name, color, color_mode, position) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.Color, string(mode), i); err != nil {
			return fmt.Errorf("insert relationship type %s: %w", t.ID, err)
		}
	}
	for i, n := range p.Nodes {
		var props any
		if len(n.Properties) > 0 {
			data, err := json.Marshal(n.Properties)
			if err != nil {
				return fmt.Errorf("node %s properties: %w", n.ID, err)
			}
			props = string(data)
		}
		var x, y any
		if n.X != nil && n.Y != nil {
			x, y = *n.X, *n.Y
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO nodes (id, nodetype_id, label, properties, x, y, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.TypeID, n.Label, props, x, y, i); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	for i, e := range p.Edges {
		if _, err := tx.ExecContext(ctx, `INSERT INTO relationships (id, reltype_id, source, target, position) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.TypeID, e.Source, e.Target, i); err != nil {
			return fmt.Errorf("insert relationship %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}
