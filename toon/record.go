package toon

// Field is one named scalar of a record.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for building a Field.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Record is an ordered set of present fields. A field that has no value is
// left out of the record entirely; there are no null placeholders.
type Record []Field

// Names returns the field names of r in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Item is one entry of a Block. An item with a Nested block is a structural
// wrapper: its own fields plus a sub-collection, rendered one level deeper.
type Item struct {
	Record Record
	Nested *Block
}

// Wrapper reports whether the item carries a nested block.
func (it Item) Wrapper() bool {
	return it.Nested != nil
}

// Block is a named collection of items.
type Block struct {
	Name  string
	Items []Item
}

// NewBlock builds a Block from plain records.
func NewBlock(name string, records ...Record) Block {
	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = Item{Record: r}
	}
	return Block{Name: name, Items: items}
}

// Uniform reports whether items can be written in tabular mode and, if so,
// returns the shared field list in the order of the first record.
//
// A sequence is uniform when it is non-empty, contains no wrapper items, and
// every record has exactly the same set of field names.
func Uniform(items []Item) ([]string, bool) {
	if len(items) == 0 {
		return nil, false
	}
	first := items[0].Record
	if len(first) == 0 {
		return nil, false
	}
	want := make(map[string]bool, len(first))
	for _, f := range first {
		if want[f.Name] {
			return nil, false
		}
		want[f.Name] = true
	}
	for _, it := range items {
		if it.Wrapper() || !sameFieldSet(want, it.Record) {
			return nil, false
		}
	}
	return first.Names(), true
}

func sameFieldSet(want map[string]bool, r Record) bool {
	if len(r) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(r))
	for _, f := range r {
		if !want[f.Name] || seen[f.Name] {
			return false
		}
		seen[f.Name] = true
	}
	return true
}
