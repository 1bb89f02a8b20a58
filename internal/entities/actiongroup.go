package entities

// ActionGroup is a named alias for a set of permission strings.
// Entries may reference other action groups; expansion is recursive
// with cycle detection.
type ActionGroup struct {
	Name        string   // Group name
	Permissions []string // Permission patterns or names of other groups
}
