package merge

import "github.com/tsawler/pdfhtml/core"

// SourceID identifies one source document within a merge. Sources are
// numbered from 0 in the order they are added.
type SourceID int

type objectKey struct {
	source SourceID
	ref    core.IndirectRef
}

// ObjectMap maps (source, object) pairs to object numbers in the merged
// document. Numbers are handed out sequentially, so an object reached
// from several pages of one source is assigned, and copied, once.
type ObjectMap struct {
	numbers map[objectKey]int
	next    int
}

// NewObjectMap creates a map whose first assigned number is first.
func NewObjectMap(first int) *ObjectMap {
	return &ObjectMap{numbers: make(map[objectKey]int), next: first}
}

// Lookup returns the destination number of ref in source.
func (m *ObjectMap) Lookup(source SourceID, ref core.IndirectRef) (int, bool) {
	num, ok := m.numbers[objectKey{source, ref}]
	return num, ok
}

// Assign returns the destination number of ref in source, allocating the
// next free number on first use. added reports whether it was allocated
// by this call.
func (m *ObjectMap) Assign(source SourceID, ref core.IndirectRef) (num int, added bool) {
	key := objectKey{source, ref}
	if num, ok := m.numbers[key]; ok {
		return num, false
	}
	num = m.Reserve()
	m.numbers[key] = num
	return num, true
}

// Reserve allocates a number that no source object maps to.
func (m *ObjectMap) Reserve() int {
	num := m.next
	m.next++
	return num
}

// Len returns the number of mapped source objects.
func (m *ObjectMap) Len() int { return len(m.numbers) }

// Next returns the number the next allocation will use.
func (m *ObjectMap) Next() int { return m.next }
