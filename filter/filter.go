package filter

// ComponentFilter is a filter that matches archetypes based on the set of
// component-type names they carry.
type ComponentFilter interface {
	// MatchesComponents returns true if an archetype with the given
	// component-type names matches the filter.
	MatchesComponents(components []string) bool
}
