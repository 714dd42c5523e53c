package schema

// Selector picks which validators a scoped validation runs: an ad-hoc
// list, a [start, end] index range, or specific indices.
type Selector struct {
	list    []Validator
	start   int
	end     int
	ranged  bool
	indices []int
}

// SelectList runs the given ad-hoc validators instead of the field's.
func SelectList(vs ...Validator) Selector { return Selector{list: vs} }

// SelectRange runs the field validators with index in [start, end).
func SelectRange(start, end int) Selector {
	return Selector{start: start, end: end, ranged: true}
}

// SelectAt runs the field validators at the given indices.
func SelectAt(indices ...int) Selector { return Selector{indices: indices} }

// pick resolves the selection against the declared validators and
// returns the list plus the index base for issue records.
func (sel Selector) pick(declared []Validator) ([]Validator, int) {
	switch {
	case sel.list != nil:
		return sel.list, 0
	case sel.ranged:
		start, end := sel.start, sel.end
		if start < 0 {
			start = 0
		}
		if end > len(declared) {
			end = len(declared)
		}
		if start >= end {
			return nil, 0
		}
		return declared[start:end], start
	case sel.indices != nil:
		out := make([]Validator, 0, len(sel.indices))
		for _, i := range sel.indices {
			if i >= 0 && i < len(declared) {
				out = append(out, declared[i])
			}
		}
		// index base is lost for sparse picks; issues report positions
		// within the picked list
		return out, 0
	}
	return declared, 0
}
