package privileges

import "context"

// Internal sub-requests of one logical request chain must observe the
// same document/field filters as the original call, or a nested call
// running under a different effective principal could widen its own
// visibility. The filters attached by the first evaluation travel in
// the request context; later evaluations in the same chain compare
// against them and fail on any difference.

type attachedFiltersKey struct{}

// AttachedFilters are the filters already bound to a request chain.
type AttachedFilters struct {
	DLS map[string][]string
	FLS map[string][]string
}

// WithAttachedFilters marks the context with the filters computed by
// an earlier evaluation in the same request chain.
func WithAttachedFilters(ctx context.Context, dls, fls map[string][]string) context.Context {
	return context.WithValue(ctx, attachedFiltersKey{}, &AttachedFilters{DLS: dls, FLS: fls})
}

// AttachedFiltersFrom returns the filters previously bound to the
// chain, if any.
func AttachedFiltersFrom(ctx context.Context) (*AttachedFilters, bool) {
	f, ok := ctx.Value(attachedFiltersKey{}).(*AttachedFilters)
	return f, ok
}

func filtersEqual(a, b map[string][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, va := range a {
		vb, ok := b[key]
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if va[i] != vb[i] {
				return false
			}
		}
	}
	return true
}
