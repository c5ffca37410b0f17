package filter

// MatchComponent returns true if the given slice of component-type names
// contains the given name.
func MatchComponent(components []string, name string) bool {
	for _, c := range components {
		if c == name {
			return true
		}
	}
	return false
}
