package record

// Predicate is the minimal interface a scan's caller supplies to filter
// records. Expression evaluation itself (parsing, building predicates out
// of comparisons and boolean connectives) is explicitly out of this
// module's scope — spec.md treats it as an external collaborator whose
// interface is specified only where the scan consumes it.
type Predicate interface {
	Eval(schema *Schema, r *Record) (bool, error)
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(schema *Schema, r *Record) (bool, error)

// Eval calls f.
func (f PredicateFunc) Eval(schema *Schema, r *Record) (bool, error) { return f(schema, r) }

// AlwaysTrue is the predicate used by a full, unfiltered scan.
var AlwaysTrue Predicate = PredicateFunc(func(*Schema, *Record) (bool, error) { return true, nil })
