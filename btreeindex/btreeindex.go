// Package btreeindex is a deliberately skeletal stand-in for a B-tree
// index over a table's records. spec.md §1 calls the source form of this
// component "a non-functional linked list" and "not a real design"; this
// package keeps that shape rather than building a real index, since doing
// so is explicitly out of this module's scope.
package btreeindex

import "github.com/ferrolabs/ferrodb/record"

// entry is one key/RID pair in the stub index.
type entry struct {
	key  interface{}
	rid  record.RID
	next *entry
}

// Index is an in-memory, unbalanced linked list masquerading as a B-tree.
// It is never consulted by the record manager; nothing in this module
// keeps it consistent with table contents on insert/delete.
type Index struct {
	head *entry
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Insert prepends a key/RID pair to the list. There is no balancing, no
// splitting, and no ordering invariant — a real B-tree is out of scope.
func (idx *Index) Insert(key interface{}, rid record.RID) {
	idx.head = &entry{key: key, rid: rid, next: idx.head}
}

// Lookup does a linear scan for key, matching by ==. Duplicate keys return
// the most recently inserted match.
func (idx *Index) Lookup(key interface{}) (record.RID, bool) {
	for e := idx.head; e != nil; e = e.next {
		if e.key == key {
			return e.rid, true
		}
	}
	return record.RID{}, false
}
