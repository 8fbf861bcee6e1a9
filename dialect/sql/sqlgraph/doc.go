// Package sqlgraph resolves relation eager-load requests into a bounded
// number of batched queries.
//
// Models and their relation descriptors are registered once in a Schema;
// the Loader then takes a root node set and a list of dotted relation
// paths, merges the paths into a load tree, and issues exactly one
// foreign-key IN (...) query per load node. Loading N roots with K
// distinct paths costs 1 + K queries, independent of N.
//
//	schema := sqlgraph.NewSchema()
//	schema.Register(sqlgraph.ModelSpec{Name: "user", Relations: []relation.Descriptor{
//		relation.HasMany("posts").Build(),
//	}})
//	schema.Register(sqlgraph.ModelSpec{Name: "post", Relations: []relation.Descriptor{
//		relation.HasMany("comments").Build(),
//	}})
//	loader := sqlgraph.NewLoader(schema, drv)
//	report, err := loader.Load(ctx, "user", roots,
//		sqlgraph.With("posts.comments"))
//
// Results land in each node's relation cache: empty matches are cached as
// empty (a loaded state), and a cancelled run leaves unfinished relations
// not loaded so a later access retries instead of seeing false emptiness.
package sqlgraph
