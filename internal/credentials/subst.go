package credentials

import "strings"

// Catalogue is the fixed token→value map applied to manifest text before
// submission. Tokens use the ${NAME} form.
//
// Values are fully expanded at construction time, so that no catalogue value
// can itself contain another catalogue token. Application is therefore
// order-independent, and unknown placeholders pass through byte-for-byte,
// making the pass safe to run unconditionally on partially-templated input.
type Catalogue struct {
	names  []string
	values map[string]string
}

// NewCatalogue builds a catalogue from a credential set.
func NewCatalogue(set *Set) *Catalogue {
	c := &Catalogue{
		names:  set.Names(),
		values: make(map[string]string, len(set.names)),
	}
	for _, name := range c.names {
		c.values[name] = set.MustGet(name)
	}
	c.expand()
	return c
}

// expand resolves catalogue tokens nested inside catalogue values. Each pass
// can only shorten the remaining nesting depth, so len(names) passes suffice.
func (c *Catalogue) expand() {
	for range c.names {
		changed := false
		for name, value := range c.values {
			replaced := c.replaceKnown(value)
			if replaced != value {
				c.values[name] = replaced
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// Apply substitutes every known ${NAME} token in text. Tokens not in the
// catalogue are left untouched.
func (c *Catalogue) Apply(text string) string {
	return c.replaceKnown(text)
}

func (c *Catalogue) replaceKnown(text string) string {
	for name, value := range c.values {
		text = strings.ReplaceAll(text, "${"+name+"}", value)
	}
	return text
}
