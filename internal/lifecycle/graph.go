package lifecycle

import "sort"

// plan is the outcome of ordering a set of pending components.
type plan struct {
	order   []string            // Initialization order for orderable components
	cycles  [][]string          // Strongly connected groups that can never be ordered
	blocked map[string]string   // Component -> pending dependency it waits on
	edges   map[string][]string // Component -> pending dependencies
}

// orderComponents runs Kahn's algorithm over pending. deps maps every pending
// component to its dependencies; dependencies outside pending are treated as
// already satisfied or handled by the caller. Ties are broken by rank.
func orderComponents(pending []string, deps map[string][]string, rank map[string]int) plan {
	inPending := make(map[string]bool, len(pending))
	for _, id := range pending {
		inPending[id] = true
	}

	p := plan{
		blocked: make(map[string]string),
		edges:   make(map[string][]string, len(pending)),
	}

	indegree := make(map[string]int, len(pending))
	dependents := make(map[string][]string, len(pending))
	for _, id := range pending {
		indegree[id] = 0
		for _, dep := range deps[id] {
			if !inPending[dep] {
				continue
			}
			p.edges[id] = append(p.edges[id], dep)
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for _, id := range pending {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	done := make(map[string]bool, len(pending))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return rank[ready[i]] < rank[ready[j]] })
		id := ready[0]
		ready = ready[1:]

		p.order = append(p.order, id)
		done[id] = true

		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(p.order) == len(pending) {
		return p
	}

	var remaining []string
	for _, id := range pending {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}

	inCycle := make(map[string]bool)
	for _, scc := range stronglyConnected(remaining, p.edges, rank) {
		if len(scc) > 1 {
			p.cycles = append(p.cycles, scc)
			for _, id := range scc {
				inCycle[id] = true
			}
		}
	}

	for _, id := range remaining {
		if inCycle[id] {
			continue
		}
		for _, dep := range p.edges[id] {
			if !done[dep] {
				p.blocked[id] = dep
				break
			}
		}
	}

	return p
}

// stronglyConnected returns the strongly connected components of the graph
// restricted to nodes, using Tarjan's algorithm. Members of each component
// are sorted by rank.
func stronglyConnected(nodes []string, edges map[string][]string, rank map[string]int) [][]string {
	member := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		member[id] = true
	}

	var (
		index   int
		stack   []string
		onStack = make(map[string]bool)
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		result  [][]string
	)

	var visit func(id string)
	visit = func(id string) {
		indices[id] = index
		lowlink[id] = index
		index++
		stack = append(stack, id)
		onStack[id] = true

		for _, dep := range edges[id] {
			if !member[dep] {
				continue
			}
			if _, seen := indices[dep]; !seen {
				visit(dep)
				lowlink[id] = min(lowlink[id], lowlink[dep])
			} else if onStack[dep] {
				lowlink[id] = min(lowlink[id], indices[dep])
			}
		}

		if lowlink[id] != indices[id] {
			return
		}

		var scc []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			scc = append(scc, top)
			if top == id {
				break
			}
		}
		sort.Slice(scc, func(i, j int) bool { return rank[scc[i]] < rank[scc[j]] })
		result = append(result, scc)
	}

	for _, id := range nodes {
		if _, seen := indices[id]; !seen {
			visit(id)
		}
	}

	sort.Slice(result, func(i, j int) bool { return rank[result[i][0]] < rank[result[j][0]] })
	return result
}

// cyclePath returns a dependency path through the members of a strongly
// connected group that starts and ends at its first member.
func cyclePath(scc []string, edges map[string][]string) []string {
	if len(scc) == 0 {
		return nil
	}
	member := make(map[string]bool, len(scc))
	for _, id := range scc {
		member[id] = true
	}

	start := scc[0]
	visited := make(map[string]bool, len(scc))
	var path []string

	var walk func(id string) bool
	walk = func(id string) bool {
		path = append(path, id)
		visited[id] = true
		for _, dep := range edges[id] {
			if !member[dep] {
				continue
			}
			if dep == start {
				path = append(path, start)
				return true
			}
			if !visited[dep] && walk(dep) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if walk(start) {
		return path
	}
	return append(append([]string{}, scc...), start)
}
