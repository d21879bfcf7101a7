package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/graphlens/pkg/metrics"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

// Options carries credentials for server sources.
type Options struct {
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

// Load reads and validates the payload behind source.
func Load(ctx context.Context, source DataSource, opts Options) (*model.Payload, error) {
	done := metrics.Timer(metrics.PayloadLoad)
	defer done()

	var (
		p   *model.Payload
		err error
	)
	switch source.Type {
	case SourceTypeJSON:
		p, err = model.ReadPayloadFile(source.Path)
	case SourceTypeSQLite:
		var r *SQLiteReader
		r, err = NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer r.Close()
		p, err = r.LoadPayload(ctx)
	case SourceTypeNeo4j:
		var r *Neo4jReader
		r, err = NewNeo4jReader(source.Path, opts)
		if err != nil {
			return nil, err
		}
		defer r.Close(ctx)
		p, err = r.LoadPayload(ctx)
	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source.Path, err)
	}
	return p, nil
}

// LoadSpec parses spec and loads it.
func LoadSpec(ctx context.Context, spec string, opts Options) (*model.Payload, DataSource, error) {
	src, err := Parse(spec)
	if err != nil {
		return nil, DataSource{}, err
	}
	p, err := Load(ctx, src, opts)
	return p, src, err
}
