package syncer

import "math"

// slot is a stored record as seen by placement: its sort and whether the
// sync owns it.
type slot struct {
	sort     int
	external bool
}

// place assigns sort values to the external records of one scope, given in
// tree order. Records the sync does not own share the scope and keep their
// values.
//
// When the stored externals already follow tree order, sit ahead of every
// newcomer and collide with nothing, their values are kept and newcomers
// go after the highest value of the scope. Otherwise all externals are laid
// out again after the last record the sync does not own. A second run over
// an unchanged tree therefore changes nothing, even after the scope was
// renumbered.
func place(scope map[string]slot, order []string) map[string]int {
	top, topOther := -1, -1
	others := map[int]struct{}{}
	for _, s := range scope {
		top = max(top, s.sort)
		if !s.external {
			topOther = max(topOther, s.sort)
			others[s.sort] = struct{}{}
		}
	}

	out := make(map[string]int, len(order))
	if inOrder(scope, order, others) {
		next := top + 1
		for _, id := range order {
			if s, ok := scope[id]; ok {
				out[id] = s.sort
				continue
			}
			out[id] = next
			next++
		}
		return out
	}

	for i, id := range order {
		out[id] = topOther + 1 + i
	}
	return out
}

func inOrder(scope map[string]slot, order []string, others map[int]struct{}) bool {
	last := math.MinInt
	newcomer := false
	for _, id := range order {
		s, ok := scope[id]
		if !ok {
			newcomer = true
			continue
		}
		if newcomer || !s.external || s.sort <= last {
			return false
		}
		if _, clash := others[s.sort]; clash {
			return false
		}
		last = s.sort
	}
	return true
}
