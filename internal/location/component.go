package location

// Component is an argument to SetURL: either keep the current query or
// hash, or replace it (the empty string clears it).
type Component struct {
	replace bool
	value   string
}

// Keep leaves the component as it is.
func Keep() Component {
	return Component{}
}

// Replace sets the component to value.
func Replace(value string) Component {
	return Component{replace: true, value: value}
}

// Resolve returns the value to use given the current one.
func (c Component) Resolve(current string) string {
	if c.replace {
		return c.value
	}
	return current
}

// IsKeep reports whether c keeps the current value.
func (c Component) IsKeep() bool {
	return !c.replace
}
