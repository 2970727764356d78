package verify

// Direction is the ordering a sorted snapshot must follow.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// EmptyPolicy decides the verdict of AllMatch on an empty snapshot.
type EmptyPolicy int

const (
	// RejectEmpty fails verification when nothing was observed.
	RejectEmpty EmptyPolicy = iota
	// AcceptEmpty passes verification when nothing was observed.
	AcceptEmpty
)

// IsSortedBy reports whether every adjacent pair of s respects dir under cmp
// applied to key. Equal keys satisfy both directions. An absent element
// fails the check.
func IsSortedBy[T, K any](s []Value[T], key func(T) K, cmp func(a, b K) int, dir Direction) bool {
	return FirstDisorder(s, key, cmp, dir) < 0
}

// FirstDisorder returns the index of the first element that breaks the
// ordering (an absent element, or the left side of a misordered pair), or -1.
func FirstDisorder[T, K any](s []Value[T], key func(T) K, cmp func(a, b K) int, dir Direction) int {
	for i, x := range s {
		if !x.ok {
			return i
		}
	}
	for i := 1; i < len(s); i++ {
		c := cmp(key(s[i-1].v), key(s[i].v))
		if (dir == Ascending && c > 0) || (dir == Descending && c < 0) {
			return i - 1
		}
	}
	return -1
}

// AllMatch reports whether every element of s satisfies pred. An absent
// element fails. An empty snapshot yields the verdict chosen by empty.
func AllMatch[T any](s []Value[T], pred func(T) bool, empty EmptyPolicy) bool {
	ok, _ := AllMatchSkipping(s, pred, nil, empty)
	return ok
}

// AllMatchSkipping is AllMatch where elements accepted by skip are exempt.
// The exempted indexes are returned so callers can report them.
func AllMatchSkipping[T any](s []Value[T], pred, skip func(T) bool, empty EmptyPolicy) (bool, []int) {
	if len(s) == 0 {
		return empty == AcceptEmpty, nil
	}
	var skipped []int
	for i, x := range s {
		if !x.ok {
			return false, skipped
		}
		if skip != nil && skip(x.v) {
			skipped = append(skipped, i)
			continue
		}
		if !pred(x.v) {
			return false, skipped
		}
	}
	return true, skipped
}

// FirstMismatch returns the index of the first element that is absent or
// fails pred, ignoring elements accepted by skip, or -1.
func FirstMismatch[T any](s []Value[T], pred, skip func(T) bool) int {
	for i, x := range s {
		if !x.ok {
			return i
		}
		if skip != nil && skip(x.v) {
			continue
		}
		if !pred(x.v) {
			return i
		}
	}
	return -1
}

// AnyMatch reports whether group shares at least one element with candidates.
func AnyMatch[E comparable](group, candidates []E) bool {
	set := make(map[E]struct{}, len(candidates))
	for _, c := range candidates {
		set[c] = struct{}{}
	}
	for _, g := range group {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}

// SkipEmpty exempts elements with no members, such as results without tags.
func SkipEmpty[E any](set []E) bool {
	return len(set) == 0
}

// Contains reports whether set holds want.
func Contains[E comparable](set []E, want E) bool {
	for _, e := range set {
		if e == want {
			return true
		}
	}
	return false
}

// SameOrder compares an observed sequence against an independently computed
// expected one and returns the first index where they differ, or -1.
func SameOrder[T comparable](observed, expected []T) int {
	n := min(len(observed), len(expected))
	for i := 0; i < n; i++ {
		if observed[i] != expected[i] {
			return i
		}
	}
	if len(observed) != len(expected) {
		return n
	}
	return -1
}
