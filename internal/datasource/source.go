// Package datasource loads graph payloads from the places graphlens can
// read them: JSON files, SQLite databases and Neo4j servers.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSON is a payload file as written by model.WritePayload
	SourceTypeJSON SourceType = "json"
	// SourceTypeSQLite is a graph database file (sqlite://path)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeNeo4j is a Neo4j server (neo4j://, bolt:// and their +s variants)
	SourceTypeNeo4j SourceType = "neo4j"
)

// DataSource is a parsed payload location.
type DataSource struct {
	Type SourceType `json:"type"`
	// Path is the file path for file sources and the connection URI for Neo4j.
	Path string `json:"path"`
	// ModTime is the last modification time of a file source.
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	if s.Type == SourceTypeNeo4j {
		return fmt.Sprintf("%s (%s)", s.Path, s.Type)
	}
	return fmt.Sprintf("%s (%s, %d bytes, mod=%s)", s.Path, s.Type, s.Size, s.ModTime.Format(time.RFC3339))
}

// IsFile reports whether the source lives on the local file system and can
// be watched for changes.
func (s DataSource) IsFile() bool {
	return s.Type == SourceTypeJSON || s.Type == SourceTypeSQLite
}

var neo4jSchemes = []string{"neo4j://", "neo4j+s://", "neo4j+ssc://", "bolt://", "bolt+s://", "bolt+ssc://"}

// Parse interprets a payload location given on the command line.
func Parse(spec string) (DataSource, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DataSource{}, fmt.Errorf("empty source")
	}
	for _, scheme := range neo4jSchemes {
		if strings.HasPrefix(spec, scheme) {
			return DataSource{Type: SourceTypeNeo4j, Path: spec}, nil
		}
	}

	src := DataSource{Type: SourceTypeJSON, Path: spec}
	switch {
	case strings.HasPrefix(spec, "sqlite://"):
		src = DataSource{Type: SourceTypeSQLite, Path: strings.TrimPrefix(spec, "sqlite://")}
	case hasExt(spec, ".db", ".sqlite", ".sqlite3"):
		src.Type = SourceTypeSQLite
	case !hasExt(spec, ".json"):
		return DataSource{}, fmt.Errorf("unrecognized source %q: want a .json file, sqlite://path or neo4j://host", spec)
	}

	abs, err := filepath.Abs(src.Path)
	if err != nil {
		return DataSource{}, fmt.Errorf("resolve %s: %w", src.Path, err)
	}
	src.Path = abs
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("%s is a directory", abs)
	}
	src.ModTime = info.ModTime()
	src.Size = info.Size()
	return src, nil
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
