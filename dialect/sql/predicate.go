package sql

import "time"

// StringField provides type-safe predicate constructors for a string
// column. Declaring fields once per model keeps call sites free of
// stringly-typed values:
//
//	var Email = sql.StringField("email")
//	sel.Where(Email.EQ("a@example.com"))
type StringField string

// Name returns the column name.
func (f StringField) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f StringField) EQ(v string) Expr { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f StringField) NEQ(v string) Expr { return NEQ(string(f), v) }

// In returns a field IN (...) predicate.
func (f StringField) In(vs ...string) Expr {
	return In(string(f), anySlice(vs)...)
}

// NotIn returns a field NOT IN (...) predicate.
func (f StringField) NotIn(vs ...string) Expr {
	return NotIn(string(f), anySlice(vs)...)
}

// GT returns a field > value predicate.
func (f StringField) GT(v string) Expr { return GT(string(f), v) }

// LT returns a field < value predicate.
func (f StringField) LT(v string) Expr { return LT(string(f), v) }

// Contains returns a substring-match predicate.
func (f StringField) Contains(v string) Expr { return Like(string(f), "%"+v+"%") }

// HasPrefix returns a prefix-match predicate.
func (f StringField) HasPrefix(v string) Expr { return Like(string(f), v+"%") }

// HasSuffix returns a suffix-match predicate.
func (f StringField) HasSuffix(v string) Expr { return Like(string(f), "%"+v) }

// IsNull returns a field IS NULL predicate.
func (f StringField) IsNull() Expr { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f StringField) NotNull() Expr { return NotNull(string(f)) }

// IntField provides type-safe predicate constructors for an integer column.
type IntField string

// Name returns the column name.
func (f IntField) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f IntField) EQ(v int) Expr { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f IntField) NEQ(v int) Expr { return NEQ(string(f), v) }

// In returns a field IN (...) predicate.
func (f IntField) In(vs ...int) Expr { return In(string(f), anySlice(vs)...) }

// NotIn returns a field NOT IN (...) predicate.
func (f IntField) NotIn(vs ...int) Expr { return NotIn(string(f), anySlice(vs)...) }

// GT returns a field > value predicate.
func (f IntField) GT(v int) Expr { return GT(string(f), v) }

// GTE returns a field >= value predicate.
func (f IntField) GTE(v int) Expr { return GTE(string(f), v) }

// LT returns a field < value predicate.
func (f IntField) LT(v int) Expr { return LT(string(f), v) }

// LTE returns a field <= value predicate.
func (f IntField) LTE(v int) Expr { return LTE(string(f), v) }

// Between returns a low <= field <= high predicate.
func (f IntField) Between(low, high int) Expr { return Between(string(f), low, high) }

// IsNull returns a field IS NULL predicate.
func (f IntField) IsNull() Expr { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f IntField) NotNull() Expr { return NotNull(string(f)) }

// BoolField provides type-safe predicate constructors for a boolean column.
type BoolField string

// Name returns the column name.
func (f BoolField) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f BoolField) EQ(v bool) Expr { return EQ(string(f), v) }

// IsTrue returns a field = true predicate.
func (f BoolField) IsTrue() Expr { return EQ(string(f), true) }

// IsFalse returns a field = false predicate.
func (f BoolField) IsFalse() Expr { return EQ(string(f), false) }

// TimeField provides type-safe predicate constructors for a time column.
type TimeField string

// Name returns the column name.
func (f TimeField) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f TimeField) EQ(v time.Time) Expr { return EQ(string(f), v) }

// Before returns a field < value predicate.
func (f TimeField) Before(v time.Time) Expr { return LT(string(f), v) }

// After returns a field > value predicate.
func (f TimeField) After(v time.Time) Expr { return GT(string(f), v) }

// IsNull returns a field IS NULL predicate.
func (f TimeField) IsNull() Expr { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f TimeField) NotNull() Expr { return NotNull(string(f)) }

func anySlice[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
