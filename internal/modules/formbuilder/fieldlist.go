package formbuilder

// FieldList is the ordered set of committed fields of one form.
// SortOrder of every entry equals its position after each structural mutation.
type FieldList struct {
	fields []Field
}

// NewFieldList copies fields in their current order and resequences them.
func NewFieldList(fields []Field) *FieldList {
	l := &FieldList{fields: CloneFields(fields)}
	l.Resequence()
	return l
}

// Len returns the number of committed fields.
func (l *FieldList) Len() int { return len(l.fields) }

// Fields returns a deep copy of the list in order.
func (l *FieldList) Fields() []Field { return CloneFields(l.fields) }

// At returns a copy of the field at index i.
func (l *FieldList) At(i int) (Field, error) {
	if i < 0 || i >= len(l.fields) {
		return Field{}, outOfRange(i)
	}
	return l.fields[i].Clone(), nil
}

// IndexOfKey returns the position of the field with key, or -1.
func (l *FieldList) IndexOfKey(key string) int {
	for i, f := range l.fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// Append adds f at the end and resequences.
func (l *FieldList) Append(f Field) {
	l.fields = append(l.fields, f.Clone())
	l.Resequence()
}

// Replace stores f at index i by value and resequences.
func (l *FieldList) Replace(i int, f Field) error {
	if i < 0 || i >= len(l.fields) {
		return outOfRange(i)
	}
	l.fields[i] = f.Clone()
	l.Resequence()
	return nil
}

// Delete removes the entry at index i.
func (l *FieldList) Delete(i int) error {
	if i < 0 || i >= len(l.fields) {
		return outOfRange(i)
	}
	l.fields = append(l.fields[:i], l.fields[i+1:]...)
	l.Resequence()
	return nil
}

// Move removes the entry at from and reinserts it at to.
func (l *FieldList) Move(from, to int) error {
	if from < 0 || from >= len(l.fields) {
		return outOfRange(from)
	}
	if to < 0 || to >= len(l.fields) {
		return outOfRange(to)
	}
	if from == to {
		l.Resequence()
		return nil
	}

	moved := l.fields[from]
	rest := append(l.fields[:from:from], l.fields[from+1:]...)
	out := make([]Field, 0, len(l.fields))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	l.fields = out
	l.Resequence()
	return nil
}

// Resequence assigns SortOrder = position for every entry.
func (l *FieldList) Resequence() {
	for i := range l.fields {
		l.fields[i].SortOrder = i
	}
}

// Reset empties the list.
func (l *FieldList) Reset() { l.fields = nil }
