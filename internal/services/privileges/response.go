package privileges

import "sort"

// Decision is the outcome of one evaluation call. It is built up
// privately during evaluation and immutable once returned. A decision
// is only valid for the configuration version it was computed under; a
// configuration reload invalidates it and callers must re-evaluate.
type Decision struct {
	Allowed bool

	// MissingPrivileges names the permissions that were required but
	// not granted. Empty on allow.
	MissingPrivileges []string

	// DLSQueries maps a grant pattern or concrete index name to the
	// document-level filter queries that must be attached downstream.
	DLSQueries map[string][]string

	// FLSFields maps a grant pattern or concrete index name to the
	// field allow-list that must be attached downstream.
	FLSFields map[string][]string

	// ConfigVersion is the configuration snapshot the decision was
	// computed under.
	ConfigVersion string
}

func newDecision(action, version string) *Decision {
	return &Decision{
		MissingPrivileges: []string{action},
		ConfigVersion:     version,
	}
}

func (d *Decision) allow() *Decision {
	d.Allowed = true
	d.MissingPrivileges = nil
	return d
}

func (d *Decision) deny(missing []string) *Decision {
	d.Allowed = false
	if len(missing) > 0 {
		d.MissingPrivileges = append([]string{}, missing...)
		sort.Strings(d.MissingPrivileges)
	}
	return d
}
