package dialect

import (
	"strconv"
	"strings"
)

// Category identifies a family of SQL features.
type Category string

// Capability categories consulted by the compiler and by test selection.
const (
	CategoryCTE        Category = "cte"
	CategoryWindow     Category = "window"
	CategorySetOps     Category = "setops"
	CategoryPagination Category = "pagination"
	CategoryReturning  Category = "returning"
	CategoryJSON       Category = "json"
	CategoryUpsert     Category = "upsert"
	CategoryLocking    Category = "locking"
	CategoryExplain    Category = "explain"
)

// Capability is a bit within a category's bitmask.
type Capability uint64

// CTE capabilities.
const (
	CTEBasic Capability = 1 << iota
	CTERecursive
	CTEMaterialized
)

// Window-function capabilities.
const (
	WindowRowNumber Capability = 1 << iota
	WindowRank
	WindowDenseRank
	WindowLag
	WindowLead
	WindowNtile
)

// Set-operation capabilities.
const (
	SetOpUnion Capability = 1 << iota
	SetOpIntersect
	SetOpExcept
)

// Pagination capabilities.
const (
	// PaginationLimitOffset is the LIMIT n OFFSET m syntax.
	PaginationLimitOffset Capability = 1 << iota
	// PaginationFetchNext is the OFFSET m ROWS FETCH NEXT n ROWS ONLY syntax.
	PaginationFetchNext
)

// Explain capabilities.
const (
	ExplainStatement Capability = 1 << iota
)

const allWindow = WindowRowNumber | WindowRank | WindowDenseRank | WindowLag | WindowLead | WindowNtile

// Features is the capability descriptor of a backend connection. It is
// built once from the dialect and detected server version and is immutable
// thereafter, so concurrent lookups need no locking.
type Features struct {
	dialect    string
	version    string
	categories map[Category]Capability
}

// Dialect returns the dialect the descriptor was built for.
func (f *Features) Dialect() string { return f.dialect }

// Version returns the server version the descriptor was built from.
// It is empty when the version was unknown and defaults were assumed.
func (f *Features) Version() string { return f.version }

// SupportsCategory reports whether the backend supports any capability in
// the category.
func (f *Features) SupportsCategory(c Category) bool {
	return f.categories[c] != 0
}

// Supports reports whether the backend supports every given capability bit
// of the category.
func (f *Features) Supports(c Category, caps Capability) bool {
	return f.categories[c]&caps == caps
}

// Detect builds the capability descriptor for a dialect and server version.
// An empty or unparsable version assumes a current release of the backend.
// The returned descriptor is immutable.
func Detect(d, version string) *Features {
	f := &Features{dialect: Normalize(d), version: version, categories: map[Category]Capability{}}
	v := parseVersion(version)
	set := func(c Category, caps Capability) { f.categories[c] |= caps }
	switch f.dialect {
	case SQLite:
		set(CategorySetOps, SetOpUnion|SetOpIntersect|SetOpExcept)
		set(CategoryPagination, PaginationLimitOffset)
		set(CategoryExplain, ExplainStatement)
		if v.atLeast(3, 8, 3) {
			set(CategoryCTE, CTEBasic|CTERecursive)
		}
		if v.atLeast(3, 24, 0) {
			set(CategoryUpsert, 1)
		}
		if v.atLeast(3, 25, 0) {
			set(CategoryWindow, allWindow)
		}
		if v.atLeast(3, 35, 0) {
			set(CategoryCTE, CTEMaterialized)
			set(CategoryReturning, 1)
		}
		if v.atLeast(3, 38, 0) {
			set(CategoryJSON, 1)
		}
	case MySQL:
		set(CategorySetOps, SetOpUnion)
		set(CategoryPagination, PaginationLimitOffset)
		set(CategoryUpsert, 1)
		set(CategoryLocking, 1)
		set(CategoryExplain, ExplainStatement)
		if v.atLeast(5, 7, 0) {
			set(CategoryJSON, 1)
		}
		if v.atLeast(8, 0, 0) {
			set(CategoryCTE, CTEBasic|CTERecursive)
			set(CategoryWindow, allWindow)
		}
		if v.atLeast(8, 0, 31) {
			set(CategorySetOps, SetOpIntersect|SetOpExcept)
		}
	case MariaDB:
		set(CategorySetOps, SetOpUnion)
		set(CategoryPagination, PaginationLimitOffset)
		set(CategoryUpsert, 1)
		set(CategoryLocking, 1)
		set(CategoryExplain, ExplainStatement)
		if v.atLeast(10, 2, 0) {
			set(CategoryCTE, CTEBasic|CTERecursive)
			set(CategoryWindow, allWindow)
			set(CategoryJSON, 1)
		}
		if v.atLeast(10, 3, 0) {
			set(CategorySetOps, SetOpIntersect|SetOpExcept)
		}
		if v.atLeast(10, 5, 0) {
			set(CategoryReturning, 1)
		}
	case Postgres:
		set(CategoryCTE, CTEBasic|CTERecursive)
		set(CategoryWindow, allWindow)
		set(CategorySetOps, SetOpUnion|SetOpIntersect|SetOpExcept)
		set(CategoryPagination, PaginationLimitOffset|PaginationFetchNext)
		set(CategoryReturning, 1)
		set(CategoryJSON, 1)
		set(CategoryLocking, 1)
		set(CategoryExplain, ExplainStatement)
		if v.atLeast(9, 5, 0) {
			set(CategoryUpsert, 1)
		}
		if v.atLeast(12, 0, 0) {
			set(CategoryCTE, CTEMaterialized)
		}
	case Oracle:
		set(CategoryCTE, CTEBasic|CTERecursive)
		set(CategoryWindow, allWindow)
		set(CategorySetOps, SetOpUnion|SetOpIntersect|SetOpExcept)
		set(CategoryReturning, 1)
		set(CategoryLocking, 1)
		set(CategoryExplain, ExplainStatement)
		// OFFSET/FETCH arrived in 12c; earlier servers fall back to the
		// ROWNUM subquery emitted by the compiler.
		if v.atLeast(12, 1, 0) {
			set(CategoryPagination, PaginationFetchNext)
		}
		if v.atLeast(21, 0, 0) {
			set(CategoryJSON, 1)
		}
	case SQLServer:
		set(CategoryCTE, CTEBasic|CTERecursive)
		set(CategoryWindow, allWindow)
		set(CategorySetOps, SetOpUnion|SetOpIntersect|SetOpExcept)
		set(CategoryLocking, 1)
		if v.atLeast(11, 0, 0) {
			set(CategoryPagination, PaginationFetchNext)
		}
		if v.atLeast(13, 0, 0) {
			set(CategoryJSON, 1)
		}
	}
	return f
}

// serverVersion is a parsed dotted version. A zero value means unknown and
// compares as newer than everything, so unknown servers get the dialect's
// full default capability set.
type serverVersion struct {
	known               bool
	major, minor, patch int
}

func (v serverVersion) atLeast(major, minor, patch int) bool {
	if !v.known {
		return true
	}
	if v.major != major {
		return v.major > major
	}
	if v.minor != minor {
		return v.minor > minor
	}
	return v.patch >= patch
}

// parseVersion extracts the leading numeric components of a server version
// string (e.g. "8.0.32-log" or "10.6.12-MariaDB").
func parseVersion(s string) serverVersion {
	var v serverVersion
	s = strings.TrimSpace(s)
	if s == "" {
		return v
	}
	parts := strings.SplitN(s, ".", 3)
	nums := make([]int, 0, 3)
	for _, p := range parts {
		i := 0
		for i < len(p) && p[i] >= '0' && p[i] <= '9' {
			i++
		}
		if i == 0 {
			break
		}
		n, err := strconv.Atoi(p[:i])
		if err != nil {
			break
		}
		nums = append(nums, n)
		if i != len(p) {
			break
		}
	}
	if len(nums) == 0 {
		return v
	}
	v.known = true
	v.major = nums[0]
	if len(nums) > 1 {
		v.minor = nums[1]
	}
	if len(nums) > 2 {
		v.patch = nums[2]
	}
	return v
}
