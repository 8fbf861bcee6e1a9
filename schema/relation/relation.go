// Package relation declares the static relation descriptors of a model.
// Descriptors are built once at model-registration time and shared
// read-only across all instances; the per-instance relation cache lives
// with the instance, not here.
package relation

import "time"

// Kind enumerates the supported relation kinds. The set is closed: kinds
// are resolved at registration time, never by runtime attribute inspection.
type Kind uint8

// Relation kinds.
const (
	// KindHasOne relates a row to at most one child row holding its key.
	KindHasOne Kind = iota
	// KindHasMany relates a row to any number of child rows holding its key.
	KindHasMany
	// KindBelongsTo relates a row to the parent row its own key points at.
	KindBelongsTo
	// KindPolymorphic is a HasMany whose child table serves several parent
	// models, discriminated by a type column.
	KindPolymorphic
)

var kindText = [...]string{
	KindHasOne:      "has_one",
	KindHasMany:     "has_many",
	KindBelongsTo:   "belongs_to",
	KindPolymorphic: "polymorphic",
}

// String returns the kind name.
func (k Kind) String() string { return kindText[k] }

// Singular reports whether the relation resolves to at most one row.
// Singular relations cache nil for "no match"; plural ones cache an empty
// collection.
func (k Kind) Singular() bool {
	return k == KindHasOne || k == KindBelongsTo
}

// Descriptor is the static declaration of one relation. Empty fields are
// filled with inflection-derived defaults at registration time.
type Descriptor struct {
	// Name is the relation name used in eager-load paths.
	Name string
	// Kind is the relation kind.
	Kind Kind
	// Model is the target model name. Defaults to the singular of Name.
	Model string
	// Table is the target table. Defaults to the target model's table.
	Table string
	// LocalKey is the column on the owning side. Defaults to "id", or to
	// "<singular target>_id" for BelongsTo.
	LocalKey string
	// ForeignKey is the column on the target side. Defaults to
	// "<singular owner table>_id", or to "id" for BelongsTo.
	ForeignKey string
	// InverseOf names the reverse relation on the target model, if any.
	InverseOf string
	// TypeColumn discriminates the parent model for polymorphic relations.
	TypeColumn string
	// CacheTTL expires cached values for this relation. Zero means the
	// cache only empties on explicit clear.
	CacheTTL time.Duration
}

// Builder assembles a Descriptor fluently.
type Builder struct {
	d Descriptor
}

// HasOne declares a singular child relation.
func HasOne(name string) *Builder {
	return &Builder{d: Descriptor{Name: name, Kind: KindHasOne}}
}

// HasMany declares a plural child relation.
func HasMany(name string) *Builder {
	return &Builder{d: Descriptor{Name: name, Kind: KindHasMany}}
}

// BelongsTo declares the owning side of a reference.
func BelongsTo(name string) *Builder {
	return &Builder{d: Descriptor{Name: name, Kind: KindBelongsTo}}
}

// Polymorphic declares a plural child relation discriminated by a type
// column.
func Polymorphic(name, typeColumn string) *Builder {
	return &Builder{d: Descriptor{Name: name, Kind: KindPolymorphic, TypeColumn: typeColumn}}
}

// Model sets the target model name.
func (b *Builder) Model(name string) *Builder {
	b.d.Model = name
	return b
}

// Table sets the target table.
func (b *Builder) Table(name string) *Builder {
	b.d.Table = name
	return b
}

// LocalKey sets the owning-side column.
func (b *Builder) LocalKey(column string) *Builder {
	b.d.LocalKey = column
	return b
}

// ForeignKey sets the target-side column.
func (b *Builder) ForeignKey(column string) *Builder {
	b.d.ForeignKey = column
	return b
}

// InverseOf names the reverse relation on the target model.
func (b *Builder) InverseOf(name string) *Builder {
	b.d.InverseOf = name
	return b
}

// CacheTTL sets the expiry of cached values for this relation.
func (b *Builder) CacheTTL(d time.Duration) *Builder {
	b.d.CacheTTL = d
	return b
}

// Build returns the assembled descriptor.
func (b *Builder) Build() Descriptor {
	return b.d
}
