package sqlgraph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/quarry-orm/quarry"
	"github.com/quarry-orm/quarry/dialect"
	"github.com/quarry-orm/quarry/dialect/sql"
	"github.com/quarry-orm/quarry/schema/relation"
)

// Loader resolves relation eager-load requests into batched queries. For a
// root set of any size it issues exactly one query per requested load node
// (1 + K queries total for K distinct paths), never one per root row.
type Loader struct {
	schema *Schema
	drv    dialect.Driver
	logger *slog.Logger
	// attachMu serializes cache writes when sibling relations of the same
	// parents load concurrently over independent connections.
	attachMu sync.Mutex
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for surfaced conditions. Defaults to
// slog.Default.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// NewLoader returns a loader over the given schema and default driver.
// Models registered with their own driver load through it instead.
func NewLoader(schema *Schema, drv dialect.Driver, opts ...LoaderOption) *Loader {
	ld := &Loader{schema: schema, drv: drv, logger: slog.Default()}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Report summarizes one eager-load run.
type Report struct {
	queries      atomic.Int64
	mu           sync.Mutex
	crossBackend []quarry.CrossBackendCondition
}

// Queries returns the number of batch queries issued.
func (r *Report) Queries() int64 { return r.queries.Load() }

// CrossBackend returns the surfaced cross-backend conditions, one per
// relation whose parent and child loaded over different connections.
func (r *Report) CrossBackend() []quarry.CrossBackendCondition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]quarry.CrossBackendCondition(nil), r.crossBackend...)
}

func (r *Report) addCrossBackend(c quarry.CrossBackendCondition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crossBackend = append(r.crossBackend, c)
}

// Load resolves the requested relation paths onto the root nodes. All path
// names are validated against the schema before any query runs; an unknown
// relation fails fast.
//
// Parent levels always complete before their child levels start. Sibling
// relations at the same level run concurrently only when they load over
// different connections; a single connection never carries more than one
// in-flight statement.
//
// Cancellation between batches leaves already-loaded relations populated
// and unfinished ones in the not-loaded state, so a later access
// re-triggers the load instead of reporting a false empty result.
func (l *Loader) Load(ctx context.Context, model string, roots []*Node, opts ...LoadOption) (*Report, error) {
	tree := buildTree(opts)
	if err := l.validate(model, tree); err != nil {
		return nil, err
	}
	report := &Report{}
	if err := l.loadLevel(ctx, model, roots, tree, report); err != nil {
		return report, err
	}
	return report, nil
}

// validate walks the load tree and resolves every relation name before the
// first query is issued.
func (l *Loader) validate(model string, nodes []*loadNode) error {
	for _, n := range nodes {
		d, err := l.schema.resolve(model, n.rel)
		if err != nil {
			return err
		}
		if err := l.validate(d.Model, n.children); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadLevel(ctx context.Context, model string, parents []*Node, nodes []*loadNode, report *Report) error {
	if len(nodes) == 0 {
		return nil
	}
	// Siblings grouped by connection: distinct connections may proceed in
	// parallel, one statement at a time flows through each connection.
	groups, order := l.groupByDriver(model, nodes)
	g, gctx := errgroup.WithContext(ctx)
	for _, drv := range order {
		batch := groups[drv]
		g.Go(func() error {
			for _, n := range batch {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := l.loadOne(gctx, model, parents, n, report); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (l *Loader) groupByDriver(model string, nodes []*loadNode) (map[dialect.Driver][]*loadNode, []dialect.Driver) {
	groups := make(map[dialect.Driver][]*loadNode)
	var order []dialect.Driver
	for _, n := range nodes {
		d, _ := l.schema.resolve(model, n.rel)
		drv := l.driverFor(d.Model)
		if _, ok := groups[drv]; !ok {
			order = append(order, drv)
		}
		groups[drv] = append(groups[drv], n)
	}
	return groups, order
}

func (l *Loader) driverFor(model string) dialect.Driver {
	if m, ok := l.schema.Model(model); ok && m.Driver != nil {
		return m.Driver
	}
	return l.drv
}

// loadOne issues the single batch query of one load node and attaches the
// grouped results to every parent.
func (l *Loader) loadOne(ctx context.Context, model string, parents []*Node, node *loadNode, report *Report) error {
	rel, err := l.schema.resolve(model, node.rel)
	if err != nil {
		return err
	}
	parentKey, childKey := joinKeys(rel)
	keys := collectKeys(parents, parentKey)
	var children []*Node
	if len(keys) > 0 {
		childDrv := l.driverFor(rel.Model)
		parentDrv := l.driverFor(model)
		if childDrv != parentDrv {
			cond := quarry.CrossBackendCondition{
				Relation:      rel.Name,
				ParentDialect: parentDrv.Dialect(),
				ChildDialect:  childDrv.Dialect(),
			}
			report.addCrossBackend(cond)
			l.logger.Warn("cross-backend relation load", "condition", cond.String())
		}
		sel := sql.Select().From(rel.Table).Where(sql.In(childKey, keys...))
		if rel.Kind == relation.KindPolymorphic {
			sel = sel.Where(sql.EQ(rel.TypeColumn, model))
		}
		if node.modifier != nil {
			sel = node.modifier(sel)
		}
		rows, err := sel.RunWith(childDrv).All(ctx)
		if err != nil {
			return fmt.Errorf("sqlgraph: load %s.%s: %w", model, rel.Name, err)
		}
		report.queries.Add(1)
		children = make([]*Node, len(rows))
		for i, row := range rows {
			children[i] = NewNode(rel.Model, row)
		}
	}
	l.attachMu.Lock()
	attach(parents, children, rel, parentKey, childKey)
	l.attachMu.Unlock()
	return l.loadLevel(ctx, rel.Model, children, node.children, report)
}

// joinKeys returns the owning-side and target-side columns of a relation.
func joinKeys(rel relation.Descriptor) (parentKey, childKey string) {
	return rel.LocalKey, rel.ForeignKey
}

// collectKeys returns the distinct owning-side key values of the parent
// set, in first-seen order so the generated IN list is deterministic.
func collectKeys(parents []*Node, column string) []any {
	seen := make(map[any]bool, len(parents))
	keys := make([]any, 0, len(parents))
	for _, p := range parents {
		k := normalizeKey(p.Value(column))
		if k == nil || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// attach groups children by foreign key and stores the result on every
// parent's cache slot. A parent with no matching children gets an empty
// collection (plural kinds) or nil (singular kinds), which is a loaded
// state, never a cache miss.
func attach(parents, children []*Node, rel relation.Descriptor, parentKey, childKey string) {
	grouped := make(map[any][]*Node, len(children))
	for _, c := range children {
		k := normalizeKey(c.Value(childKey))
		grouped[k] = append(grouped[k], c)
	}
	for _, p := range parents {
		k := normalizeKey(p.Value(parentKey))
		matches := grouped[k]
		if rel.Kind.Singular() {
			var one *Node
			if len(matches) > 0 {
				one = matches[0]
			}
			p.Rels.Store(rel.Name, one, rel.CacheTTL)
			continue
		}
		if matches == nil {
			matches = []*Node{}
		}
		p.Rels.Store(rel.Name, matches, rel.CacheTTL)
	}
}

// normalizeKey widens scanned key values so that e.g. an int parent key
// matches the int64 a driver scans for the child's foreign key.
func normalizeKey(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case []byte:
		return string(v)
	default:
		return v
	}
}
