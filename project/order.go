package project

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is wrapped by the error reported for cyclic class references.
var ErrCycle = errors.New("cyclic class dependency")

// dependencyOrder sorts classes so every class follows the classes it
// depends on. Ties keep resource path order so output is deterministic.
func dependencyOrder(classes []*Class) ([]*Class, error) {
	indegree := make(map[*Class]int, len(classes))
	dependents := make(map[*Class][]*Class)
	for _, c := range classes {
		indegree[c] += 0
		for _, d := range c.Deps {
			indegree[c]++
			dependents[d] = append(dependents[d], c)
		}
	}

	var ready []*Class
	for _, c := range classes {
		if indegree[c] == 0 {
			ready = append(ready, c)
		}
	}

	ordered := make([]*Class, 0, len(classes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Path < ready[j].Path })
		c := ready[0]
		ready = ready[1:]
		ordered = append(ordered, c)
		for _, d := range dependents[c] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(ordered) != len(classes) {
		var stuck []string
		for _, c := range classes {
			if indegree[c] > 0 {
				stuck = append(stuck, c.Path)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w between %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return ordered, nil
}
