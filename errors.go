package quarry

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for the query core.
var (
	// ErrInvalidPlan is returned when a query plan is structurally invalid
	// (e.g. HAVING without GROUP BY, a non-CROSS join without an ON clause).
	ErrInvalidPlan = errors.New("quarry: invalid query plan")

	// ErrUnsupportedFeature is returned when a plan requires a SQL feature
	// the target backend does not support.
	ErrUnsupportedFeature = errors.New("quarry: unsupported feature")

	// ErrUnregisteredType is returned when no type adapter can be resolved
	// for a bound value.
	ErrUnregisteredType = errors.New("quarry: unregistered type")

	// ErrUnknownRelation is returned when an eager-load path references a
	// relation that was never declared on the model.
	ErrUnknownRelation = errors.New("quarry: unknown relation")

	// ErrNotFound is returned when a query that expects exactly one row
	// returns none.
	ErrNotFound = errors.New("quarry: row not found")

	// ErrNotSingular is returned when a query that expects exactly one row
	// returns more than one.
	ErrNotSingular = errors.New("quarry: row not singular")
)

// InvalidPlanError describes a structural problem in a query plan. It is
// detected before any SQL is generated and never reaches the backend.
type InvalidPlanError struct {
	Reason string
}

// Error returns the error string.
func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("quarry: invalid query plan: %s", e.Reason)
}

// Is reports whether the target error matches InvalidPlanError.
// This allows errors.Is(err, ErrInvalidPlan) to return true.
func (e *InvalidPlanError) Is(err error) bool {
	return err == ErrInvalidPlan
}

// NewInvalidPlanError returns a new InvalidPlanError with the given reason.
func NewInvalidPlanError(format string, args ...any) *InvalidPlanError {
	return &InvalidPlanError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidPlan returns true if the error is an InvalidPlanError.
func IsInvalidPlan(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidPlanError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidPlan)
}

// ArityMismatchError is an InvalidPlanError variant reported when the
// operands of a set operation select a different number of columns.
type ArityMismatchError struct {
	Op    string // Set operation (UNION, INTERSECT, EXCEPT).
	Left  int    // Column count of the left operand.
	Right int    // Column count of the right operand.
}

// Error returns the error string.
func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("quarry: %s operands select %d and %d columns", e.Op, e.Left, e.Right)
}

// Is reports whether the target error matches ArityMismatchError.
// Arity mismatches are a kind of invalid plan, so
// errors.Is(err, ErrInvalidPlan) also returns true.
func (e *ArityMismatchError) Is(err error) bool {
	return err == ErrInvalidPlan
}

// NewArityMismatchError returns a new ArityMismatchError for the given set
// operation and operand column counts.
func NewArityMismatchError(op string, left, right int) *ArityMismatchError {
	return &ArityMismatchError{Op: op, Left: left, Right: right}
}

// IsArityMismatch returns true if the error is an ArityMismatchError.
func IsArityMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *ArityMismatchError
	return errors.As(err, &e)
}

// UnsupportedFeatureError is returned when a plan requires a capability the
// target backend's capability descriptor does not declare. It is raised
// before compilation completes, never after SQL was sent.
type UnsupportedFeatureError struct {
	Dialect    string // Target dialect.
	Category   string // Capability category (e.g. "cte").
	Capability string // Specific capability (e.g. "recursive"). May be empty.
}

// Error returns the error string.
func (e *UnsupportedFeatureError) Error() string {
	if e.Capability != "" {
		return fmt.Sprintf("quarry: dialect %s does not support %s/%s", e.Dialect, e.Category, e.Capability)
	}
	return fmt.Sprintf("quarry: dialect %s does not support %s", e.Dialect, e.Category)
}

// Is reports whether the target error matches UnsupportedFeatureError.
func (e *UnsupportedFeatureError) Is(err error) bool {
	return err == ErrUnsupportedFeature
}

// NewUnsupportedFeatureError returns a new UnsupportedFeatureError.
func NewUnsupportedFeatureError(dialect, category, capability string) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{Dialect: dialect, Category: category, Capability: capability}
}

// IsUnsupportedFeature returns true if the error is an UnsupportedFeatureError.
func IsUnsupportedFeature(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedFeatureError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedFeature)
}

// UnregisteredTypeError is returned at bind time when no adapter is
// resolvable for a value's type.
type UnregisteredTypeError struct {
	Type string // Go type of the unadaptable value.
}

// Error returns the error string.
func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("quarry: no adapter registered for type %s", e.Type)
}

// Is reports whether the target error matches UnregisteredTypeError.
func (e *UnregisteredTypeError) Is(err error) bool {
	return err == ErrUnregisteredType
}

// NewUnregisteredTypeError returns a new UnregisteredTypeError for the given
// Go type name.
func NewUnregisteredTypeError(typ string) *UnregisteredTypeError {
	return &UnregisteredTypeError{Type: typ}
}

// IsUnregisteredType returns true if the error is an UnregisteredTypeError.
func IsUnregisteredType(err error) bool {
	if err == nil {
		return false
	}
	var e *UnregisteredTypeError
	return errors.As(err, &e) || errors.Is(err, ErrUnregisteredType)
}

// UnknownRelationError is returned at resolver-build time when an eager-load
// path names a relation that was not declared on the model. It fails fast,
// before any query executes.
type UnknownRelationError struct {
	Model    string // Model the path was resolved against.
	Relation string // The undeclared relation name.
}

// Error returns the error string.
func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("quarry: model %s has no relation %q", e.Model, e.Relation)
}

// Is reports whether the target error matches UnknownRelationError.
func (e *UnknownRelationError) Is(err error) bool {
	return err == ErrUnknownRelation
}

// NewUnknownRelationError returns a new UnknownRelationError.
func NewUnknownRelationError(model, relation string) *UnknownRelationError {
	return &UnknownRelationError{Model: model, Relation: relation}
}

// IsUnknownRelation returns true if the error is an UnknownRelationError.
func IsUnknownRelation(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownRelationError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownRelation)
}

// NotFoundError represents an error when a singular query matches no rows.
type NotFoundError struct {
	label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("quarry: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the table or model label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a singular query matches more
// than one row.
type NotSingularError struct {
	label string
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("quarry: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// NewNotSingularError returns a new NotSingularError for the given label.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// NotLoadedError represents an error when accessing a relation that was not
// eager-loaded. It is distinct from a loaded-but-empty relation: an empty
// result is cached as an empty collection (or nil for *One kinds), while a
// not-loaded relation re-triggers the load on next access.
type NotLoadedError struct {
	relation string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("quarry: relation %q was not loaded", e.relation)
}

// Relation returns the relation name.
func (e *NotLoadedError) Relation() string {
	return e.relation
}

// NewNotLoadedError returns a new NotLoadedError for the given relation name.
func NewNotLoadedError(relation string) *NotLoadedError {
	return &NotLoadedError{relation: relation}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// CrossBackendCondition reports that a relation load spanned two backend
// connections. It is a surfaced condition, not a failure: the two loads
// execute as independent round trips and cannot share a transaction.
type CrossBackendCondition struct {
	Relation      string // The relation that crossed backends.
	ParentDialect string
	ChildDialect  string
}

// String returns a human-readable description of the condition.
func (c CrossBackendCondition) String() string {
	return fmt.Sprintf("relation %q spans backends %s and %s; loads are not atomic",
		c.Relation, c.ParentDialect, c.ChildDialect)
}
