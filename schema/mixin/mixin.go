// Package mixin provides composable lifecycle capabilities for queries.
//
// A mixin contributes a fixed, named stage to a linear pipeline applied to
// a selector; capabilities attach by explicit registration, not by
// inheritance or virtual dispatch, and stages run in declaration order.
//
//	sel := sql.Select().From("posts")
//	sel = mixin.Apply(sel, mixin.SoftDelete{}, mixin.Tenant{Column: "org_id", Value: 7})
package mixin

import (
	"github.com/quarry-orm/quarry/dialect/sql"
)

// Stage is one named step of the query pipeline.
type Stage struct {
	// Name identifies the stage for ordering and debugging.
	Name string
	// Apply transforms the selector. Selectors are copy-on-chain, so a
	// stage can never corrupt a branched query.
	Apply func(*sql.Selector) *sql.Selector
}

// Mixin is a capability contributing stages to the pipeline.
type Mixin interface {
	Stages() []Stage
}

// Schema is the default implementation for the Mixin interface. Embed it
// in custom mixin definitions and override Stages.
type Schema struct{}

// Stages returns the stages of the mixin.
func (Schema) Stages() []Stage { return nil }

var _ Mixin = (*Schema)(nil)

// Apply runs the stages of every mixin over the selector, in order.
func Apply(sel *sql.Selector, mixins ...Mixin) *sql.Selector {
	for _, m := range mixins {
		for _, st := range m.Stages() {
			sel = st.Apply(sel)
		}
	}
	return sel
}

// SoftDelete filters out soft-deleted rows by requiring the deletion
// timestamp column to be NULL.
type SoftDelete struct {
	Schema
	// Column defaults to "deleted_at".
	Column string
}

// Stages returns the soft-delete filter stage.
func (d SoftDelete) Stages() []Stage {
	column := d.Column
	if column == "" {
		column = "deleted_at"
	}
	return []Stage{{
		Name: "soft-delete",
		Apply: func(s *sql.Selector) *sql.Selector {
			return s.Where(sql.IsNull(column))
		},
	}}
}

// Tenant scopes every query to one tenant value.
type Tenant struct {
	Schema
	Column string
	Value  any
}

// Stages returns the tenant filter stage.
func (t Tenant) Stages() []Stage {
	return []Stage{{
		Name: "tenant",
		Apply: func(s *sql.Selector) *sql.Selector {
			return s.Where(sql.EQ(t.Column, t.Value))
		},
	}}
}

// Time orders results by their creation timestamp, newest first. It pairs
// with schemas carrying created_at/updated_at columns.
type Time struct {
	Schema
	// CreatedColumn defaults to "created_at".
	CreatedColumn string
}

// Stages returns the recency ordering stage.
func (t Time) Stages() []Stage {
	column := t.CreatedColumn
	if column == "" {
		column = "created_at"
	}
	return []Stage{{
		Name: "time",
		Apply: func(s *sql.Selector) *sql.Selector {
			return s.OrderByDesc(column)
		},
	}}
}
