package entities

import "sort"

const (
	// All is the sentinel resource name meaning "every index" or
	// "every type". Resolvers return it when a request shape cannot
	// expose per-item resources.
	All = "_all"
)

// IndexType is the composite key the privilege engine works with: a
// concrete index (or alias) name paired with a document type. A type
// of "_all" means "any type" and only a wildcard type grant covers it.
type IndexType struct {
	Index string
	Type  string
}

// Resolved is the outcome of resource resolution for one request:
// the set of concrete indices/aliases and types the request touches.
//
// Two degenerate shapes are distinguished deliberately: the "_all"
// sentinel (request touches everything, checks must be maximally
// strict) and the explicit empty set (request touches nothing local,
// e.g. a purely remote cross-cluster search, so there is nothing to
// check). Collapsing the two would turn "nothing to check" into
// "deny everything".
type Resolved struct {
	Indices []string
	Types   []string
}

// ResolvedAll returns the wildcard resolution.
func ResolvedAll() *Resolved {
	return &Resolved{Indices: []string{All}, Types: []string{All}}
}

// ResolvedNone returns the explicit "no local resources" resolution.
func ResolvedNone() *Resolved {
	return &Resolved{}
}

// NewResolved builds a resolution from index and type sets. Empty
// types default to the "_all" sentinel.
func NewResolved(indices, types []string) *Resolved {
	if len(types) == 0 {
		types = []string{All}
	}
	return &Resolved{Indices: dedupSorted(indices), Types: dedupSorted(types)}
}

// IsAll reports whether the resolution is the "_all" wildcard.
func (r *Resolved) IsAll() bool {
	for _, idx := range r.Indices {
		if idx == All {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the request touches no local resources.
func (r *Resolved) IsEmpty() bool {
	return len(r.Indices) == 0
}

// ContainsIndex reports whether the resolution includes the given
// concrete index name (the "_all" wildcard contains every index).
func (r *Resolved) ContainsIndex(name string) bool {
	for _, idx := range r.Indices {
		if idx == All || idx == name {
			return true
		}
	}
	return false
}

// IndexTypes returns the cross product of resolved indices and types,
// the working set permission matching reduces against.
func (r *Resolved) IndexTypes() []IndexType {
	types := r.Types
	if len(types) == 0 {
		types = []string{All}
	}
	result := make([]IndexType, 0, len(r.Indices)*len(types))
	for _, idx := range r.Indices {
		for _, t := range types {
			result = append(result, IndexType{Index: idx, Type: t})
		}
	}
	return result
}

// Union merges two resolutions. The "_all" wildcard is absorbing: if
// either side is the wildcard, so is the union.
func (r *Resolved) Union(other *Resolved) *Resolved {
	if other == nil {
		return r
	}
	if r.IsAll() || other.IsAll() {
		return ResolvedAll()
	}
	return NewResolved(
		append(append([]string{}, r.Indices...), other.Indices...),
		append(append([]string{}, r.Types...), other.Types...),
	)
}

func dedupSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	sort.Strings(result)
	return result
}
