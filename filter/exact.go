package filter

type exact struct {
	components []string
}

// Exact matches archetypes that contain exactly the component types
// specified, no more and no fewer.
func Exact(components ...string) ComponentFilter {
	return exact{components: components}
}

func (f exact) MatchesComponents(components []string) bool {
	if len(components) != len(f.components) {
		return false
	}
	for _, name := range components {
		if !MatchComponent(f.components, name) {
			return false
		}
	}
	return true
}
