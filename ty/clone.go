package ty

// ClonePattern deep-copies a pattern tree. Structural types other than
// SelfRef are cloned through their Clone methods, literals through
// CloneValue; rules, self references and prototype tokens are shared,
// their hooks are stateless by contract.
func ClonePattern(p Pattern) Pattern {
	switch x := p.(type) {
	case *Type:
		return x.Clone()
	case *Dict:
		return x.Clone()
	case *List:
		return x.Clone()
	case *Tuple:
		return x.Clone()
	case *Enum:
		return x.Clone()
	case *Range:
		return x.Clone()
	case map[string]interface{}:
		m := make(Map, len(x))
		for k, v := range x {
			m[k] = ClonePattern(v)
		}
		return m
	case []interface{}:
		return cloneSeq(x)
	}
	return p
}

func cloneSeq(s Seq) Seq {
	out := make(Seq, len(s))
	for i, v := range s {
		out[i] = ClonePattern(v)
	}
	return out
}

// CloneValue deep-copies plain data: maps and sequences are copied
// recursively, everything else is shared. Used for defaults, restore
// input and snapshots so instances never share mutable state.
func CloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		m := make(Map, len(x))
		for k, sub := range x {
			m[k] = CloneValue(sub)
		}
		return m
	case []interface{}:
		s := make(Seq, len(x))
		for i, sub := range x {
			s[i] = CloneValue(sub)
		}
		return s
	}
	return v
}
