package datasource

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vanderheijden86/graphlens/pkg/model"
)

// UnlabeledType is the node type of nodes without labels.
const UnlabeledType = "_unlabeled"

const (
	nodesQuery = `MATCH (n) RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props`
	relsQuery  = `MATCH (a)-[r]->(b) RETURN elementId(r) AS id, type(r) AS type, elementId(a) AS source, elementId(b) AS target`
)

// Runner executes one Cypher query and buffers its records.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

type driverRunner struct {
	driver neo4j.DriverWithContext
	db     string
}

func (d driverRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	res, err := neo4j.ExecuteQuery(ctx, d.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(d.db),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j query: %w", err)
	}
	return res, nil
}

// Neo4jReader loads a whole graph from a Neo4j server. A node's first label
// (in sorted order) becomes its type; relationship types map one to one.
type Neo4jReader struct {
	runner Runner
	driver neo4j.DriverWithContext
}

// NewNeo4jReader connects to uri with the credentials in opts.
func NewNeo4jReader(uri string, opts Options) (*Neo4jReader, error) {
	auth := neo4j.NoAuth()
	if opts.Neo4jUser != "" {
		auth = neo4j.BasicAuth(opts.Neo4jUser, opts.Neo4jPassword, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jReader{runner: driverRunner{driver: driver, db: opts.Neo4jDatabase}, driver: driver}, nil
}

// NewNeo4jReaderWithRunner reads through r instead of a driver.
func NewNeo4jReaderWithRunner(r Runner) *Neo4jReader {
	return &Neo4jReader{runner: r}
}

// Close releases the driver.
func (r *Neo4jReader) Close(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Close(ctx)
}

// LoadPayload fetches every node and relationship.
func (r *Neo4jReader) LoadPayload(ctx context.Context) (*model.Payload, error) {
	res, err := r.runner.Run(ctx, nodesQuery, nil)
	if err != nil {
		return nil, err
	}
	p := &model.Payload{}
	nodeTypes := map[string]bool{}
	for _, rec := range res.Records {
		id, err := recordString(rec, "id")
		if err != nil {
			return nil, err
		}
		n := model.NodeData{ID: id, TypeID: UnlabeledType}
		if raw, ok := rec.Get("labels"); ok {
			if labels := stringSlice(raw); len(labels) > 0 {
				sort.Strings(labels)
				n.TypeID = labels[0]
			}
		}
		if raw, ok := rec.Get("props"); ok {
			if props, ok := raw.(map[string]any); ok && len(props) > 0 {
				n.Properties = props
				n.Label = displayLabel(props)
			}
		}
		nodeTypes[n.TypeID] = true
		p.Nodes = append(p.Nodes, n)
	}

	res, err = r.runner.Run(ctx, relsQuery, nil)
	if err != nil {
		return nil, err
	}
	edgeTypes := map[string]bool{}
	for _, rec := range res.Records {
		var e model.EdgeData
		for key, dst := range map[string]*string{"id": &e.ID, "type": &e.TypeID, "source": &e.Source, "target": &e.Target} {
			if *dst, err = recordString(rec, key); err != nil {
				return nil, err
			}
		}
		edgeTypes[e.TypeID] = true
		p.Edges = append(p.Edges, e)
	}

	for i, id := range sortedKeys(nodeTypes) {
		p.NodeTypes = append(p.NodeTypes, model.NodeType{ID: id, Name: id, Color: PaletteColor(i)})
	}
	for i, id := range sortedKeys(edgeTypes) {
		p.EdgeTypes = append(p.EdgeTypes, model.EdgeType{ID: id, Name: id, Color: PaletteColor(len(nodeTypes) + i)})
	}
	p.Normalize()
	return p, nil
}

// PaletteColor returns the i-th color of an open-ended palette. Hues advance
// by the golden angle so neighbors stay distinct.
func PaletteColor(i int) string {
	h := math.Mod(float64(i)*137.508, 360)
	return colorful.Hcl(h, 0.4, 0.65).Clamped().Hex()
}

func recordString(rec *neo4j.Record, key string) (string, error) {
	v, ok := rec.Get(key)
	if !ok {
		return "", fmt.Errorf("neo4j record has no %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("neo4j record %q is %T, not a string", key, v)
	}
	return s, nil
}

func stringSlice(v any) []string {
	switch vs := v.(type) {
	case []string:
		return append([]string(nil), vs...)
	case []any:
		out := make([]string, 0, len(vs))
		for _, x := range vs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// displayLabel picks the conventional naming property of a node.
func displayLabel(props map[string]any) string {
	for _, key := range []string{"name", "title", "label"} {
		if s, ok := props[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
