package filter

type contains struct {
	components []string
}

// Contains matches archetypes that contain all the component types
// specified. This is the superset match used by entity queries: an
// archetype carrying extra component types still matches.
func Contains(components ...string) ComponentFilter {
	return &contains{components: components}
}

func (f *contains) MatchesComponents(components []string) bool {
	for _, name := range f.components {
		if !MatchComponent(components, name) {
			return false
		}
	}
	return true
}
