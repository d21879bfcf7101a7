// Package prefstore keeps the cosmetic preferences of a graph view in a
// local SQLite database and serves them through the hostapi.Host interface:
// type colors, the side panel layout and named node queries.
package prefstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/graphlens/pkg/hostapi"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

// ErrUnknownQuery is returned for a query id that was never saved.
var ErrUnknownQuery = errors.New("unknown query")

const schema = `
CREATE TABLE IF NOT EXISTS type_colors (
	kind       TEXT NOT NULL,
	type_id    TEXT NOT NULL,
	color      TEXT NOT NULL,
	color_mode TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL,
	PRIMARY KEY (kind, type_id)
);
CREATE TABLE IF NOT EXISTS boxes (
	name      TEXT PRIMARY KEY,
	top       REAL NOT NULL,
	left_     REAL NOT NULL,
	collapsed INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS queries (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	node_ids   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SearchFunc resolves free-text terms to node ids.
type SearchFunc func(terms string) []string

// Store is a hostapi.Host backed by SQLite. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	search SearchFunc
	now    func() time.Time
}

var _ hostapi.Host = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithSearch sets how free-text queries are answered. Without it searches
// return no ids.
func WithSearch(fn SearchFunc) Option {
	return func(s *Store) { s.search = fn }
}

// DefaultPath returns ~/.local/share/graphlens/prefs.db, honoring
// XDG_DATA_HOME.
func DefaultPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "graphlens", "prefs.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".graphlens", "prefs.db")
	}
	return filepath.Join(home, ".local", "share", "graphlens", "prefs.db")
}

// Open opens or creates the store at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open preferences: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create preferences schema: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PersistTypeColor implements hostapi.Host.
func (s *Store) PersistTypeColor(ctx context.Context, c hostapi.TypeColor) error {
	return s.putColors(ctx, []hostapi.TypeColor{c})
}

// PersistEveryEdgeTypeColor implements hostapi.Host.
func (s *Store) PersistEveryEdgeTypeColor(ctx context.Context, cs []hostapi.TypeColor) error {
	return s.putColors(ctx, cs)
}

func (s *Store) putColors(ctx context.Context, cs []hostapi.TypeColor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	for _, c := range cs {
		if c.Kind != hostapi.KindNode && c.Kind != hostapi.KindEdge {
			return fmt.Errorf("type %s: unknown kind %q", c.TypeID, c.Kind)
		}
		if c.TypeID == "" {
			return fmt.Errorf("type color without type id")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO type_colors (kind, type_id, color, color_mode, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (kind, type_id) DO UPDATE SET color = excluded.color, color_mode = excluded.color_mode, updated_at = excluded.updated_at`,
			string(c.Kind), c.TypeID, c.Color, c.ColorMode, stamp); err != nil {
			return fmt.Errorf("save color of %s %s: %w", c.Kind, c.TypeID, err)
		}
	}
	return tx.Commit()
}

// TypeColors returns every saved color.
func (s *Store) TypeColors(ctx context.Context) ([]hostapi.TypeColor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, type_id, color, color_mode FROM type_colors ORDER BY kind, type_id`)
	if err != nil {
		return nil, fmt.Errorf("query type colors: %w", err)
	}
	defer rows.Close()
	var out []hostapi.TypeColor
	for rows.Next() {
		var c hostapi.TypeColor
		var kind string
		if err := rows.Scan(&kind, &c.TypeID, &c.Color, &c.ColorMode); err != nil {
			return nil, err
		}
		c.Kind = hostapi.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Apply overrides the type colors of p with the saved ones. Saved types the
// payload lacks are ignored. It returns how many types changed.
func (s *Store) Apply(ctx context.Context, p *model.Payload) (int, error) {
	cs, err := s.TypeColors(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cs {
		switch c.Kind {
		case hostapi.KindNode:
			for i := range p.NodeTypes {
				if p.NodeTypes[i].ID == c.TypeID && !strings.EqualFold(p.NodeTypes[i].Color, c.Color) {
					p.NodeTypes[i].Color = c.Color
					n++
				}
			}
		case hostapi.KindEdge:
			for i := range p.EdgeTypes {
				t := &p.EdgeTypes[i]
				if t.ID != c.TypeID {
					continue
				}
				mode := model.ColorMode(c.ColorMode)
				if strings.EqualFold(t.Color, c.Color) && (mode == "" || mode == t.ColorMode) {
					continue
				}
				t.Color = c.Color
				if mode.IsValid() {
					t.ColorMode = mode
				}
				n++
			}
		}
	}
	return n, nil
}

// PersistBoxLayout implements hostapi.Host. The saved layout replaces the
// previous one.
func (s *Store) PersistBoxLayout(ctx context.Context, l hostapi.BoxLayout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM boxes`); err != nil {
		return fmt.Errorf("clear boxes: %w", err)
	}
	for name, b := range l.Boxes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO boxes (name, top, left_, collapsed) VALUES (?, ?, ?, ?)`,
			name, b.Top, b.Left, b.Collapsed); err != nil {
			return fmt.Errorf("save box %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// BoxLayout returns the saved side panel layout.
func (s *Store) BoxLayout(ctx context.Context) (hostapi.BoxLayout, error) {
	out := hostapi.BoxLayout{Boxes: map[string]hostapi.BoxPosition{}}
	rows, err := s.db.QueryContext(ctx, `SELECT name, top, left_, collapsed FROM boxes`)
	if err != nil {
		return out, fmt.Errorf("query boxes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var b hostapi.BoxPosition
		if err := rows.Scan(&name, &b.Top, &b.Left, &b.Collapsed); err != nil {
			return out, err
		}
		out.Boxes[name] = b
	}
	return out, rows.Err()
}

// SaveQuery stores a named node id list under id.
func (s *Store) SaveQuery(ctx context.Context, id, name string, nodeIDs []string) error {
	if id == "" {
		return fmt.Errorf("query without id")
	}
	data, err := json.Marshal(nodeIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queries (id, name, node_ids, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, node_ids = excluded.node_ids, updated_at = excluded.updated_at`,
		id, name, string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save query %s: %w", id, err)
	}
	return nil
}

// SavedQuery is a stored query without its ids.
type SavedQuery struct {
	ID   string
	Name string
}

// Queries lists the stored queries by id.
func (s *Store) Queries(ctx context.Context) ([]SavedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM queries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query queries: %w", err)
	}
	defer rows.Close()
	var out []SavedQuery
	for rows.Next() {
		var q SavedQuery
		if err := rows.Scan(&q.ID, &q.Name); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// PersistSelectionQuery implements hostapi.Host.
func (s *Store) PersistSelectionQuery(ctx context.Context, q hostapi.Query) ([]string, error) {
	if q.Terms != "" {
		if s.search == nil {
			return nil, nil
		}
		return s.search(q.Terms), nil
	}
	if q.ID == "" {
		return nil, fmt.Errorf("empty query")
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT node_ids FROM queries WHERE id = ?`, q.ID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, q.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("load query %s: %w", q.ID, err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.ID, err)
	}
	return ids, nil
}

// PayloadSearch answers free-text queries over a loaded payload. A node
// matches when every whitespace-separated term occurs, case-insensitively,
// in its id, label or a string property.
func PayloadSearch(p *model.Payload) SearchFunc {
	type entry struct {
		id   string
		text string
	}
	index := make([]entry, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		parts := []string{n.ID, n.Label}
		for _, v := range n.Properties {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		index = append(index, entry{id: n.ID, text: strings.ToLower(strings.Join(parts, "\x00"))})
	}
	return func(terms string) []string {
		fields := strings.Fields(strings.ToLower(terms))
		if len(fields) == 0 {
			return nil
		}
		var out []string
	next:
		for _, e := range index {
			for _, f := range fields {
				if !strings.Contains(e.text, f) {
					continue next
				}
			}
			out = append(out, e.id)
		}
		return out
	}
}
