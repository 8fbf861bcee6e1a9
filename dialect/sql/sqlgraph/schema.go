package sqlgraph

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-openapi/inflect"
	"github.com/quarry-orm/quarry"
	"github.com/quarry-orm/quarry/dialect"
	"github.com/quarry-orm/quarry/schema/relation"
)

// Model is the registered metadata of one model: its table, an optional
// dedicated driver, and its relation descriptors. Models are immutable
// after registration.
type Model struct {
	Name      string
	Table     string
	Driver    dialect.Driver // nil means the loader's default driver.
	relations map[string]relation.Descriptor
}

// Relation returns the named relation descriptor.
func (m *Model) Relation(name string) (relation.Descriptor, bool) {
	d, ok := m.relations[name]
	return d, ok
}

// ModelSpec declares a model for registration.
type ModelSpec struct {
	Name string
	// Table defaults to the pluralized, lowercased model name.
	Table string
	// Driver optionally pins the model to its own backend connection.
	Driver dialect.Driver
	// Relations are the model's relation declarations.
	Relations []relation.Descriptor
}

// Schema is the process-wide model registry. Registration is synchronized
// and copies the model map; lookups read an atomic snapshot and take no
// lock.
type Schema struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[map[string]*Model]
}

// NewSchema returns an empty schema registry.
func NewSchema() *Schema {
	s := &Schema{}
	m := make(map[string]*Model)
	s.snapshot.Store(&m)
	return s
}

// Register adds a model, filling defaulted descriptor fields from
// inflection rules (e.g. relation "posts" on model "user" defaults to
// table "posts" with foreign key "user_id").
func (s *Schema) Register(spec ModelSpec) (*Model, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("sqlgraph: model requires a name")
	}
	name := strings.ToLower(spec.Name)
	table := spec.Table
	if table == "" {
		table = inflect.Pluralize(name)
	}
	m := &Model{
		Name:      name,
		Table:     table,
		Driver:    spec.Driver,
		relations: make(map[string]relation.Descriptor, len(spec.Relations)),
	}
	for _, d := range spec.Relations {
		if d.Name == "" {
			return nil, fmt.Errorf("sqlgraph: model %s has an unnamed relation", name)
		}
		m.relations[d.Name] = defaulted(m, d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.snapshot.Load()
	next := make(map[string]*Model, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[name] = m
	s.snapshot.Store(&next)
	return m, nil
}

// Model returns the registered model by name.
func (s *Schema) Model(name string) (*Model, bool) {
	m, ok := (*s.snapshot.Load())[strings.ToLower(name)]
	return m, ok
}

// resolve returns the descriptor of a relation on a model, or an
// UnknownRelation error. It never skips silently.
func (s *Schema) resolve(model, rel string) (relation.Descriptor, error) {
	m, ok := s.Model(model)
	if !ok {
		return relation.Descriptor{}, quarry.NewUnknownRelationError(model, rel)
	}
	d, ok := m.Relation(rel)
	if !ok {
		return relation.Descriptor{}, quarry.NewUnknownRelationError(model, rel)
	}
	return d, nil
}

// defaulted fills the inflection-derived defaults of a descriptor declared
// on the given owner model.
func defaulted(owner *Model, d relation.Descriptor) relation.Descriptor {
	if d.Model == "" {
		d.Model = inflect.Singularize(d.Name)
	}
	if d.Table == "" {
		d.Table = inflect.Pluralize(d.Model)
	}
	switch d.Kind {
	case relation.KindBelongsTo:
		if d.LocalKey == "" {
			d.LocalKey = inflect.Singularize(d.Name) + "_id"
		}
		if d.ForeignKey == "" {
			d.ForeignKey = "id"
		}
	default:
		if d.LocalKey == "" {
			d.LocalKey = "id"
		}
		if d.ForeignKey == "" {
			d.ForeignKey = inflect.Singularize(owner.Table) + "_id"
		}
	}
	return d
}
