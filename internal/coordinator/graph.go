package coordinator

import "github.com/CA-git-com-co/ACGS-sub011/internal/model"

// dependencyGraph maps task id to the ids of its direct dependencies.
type dependencyGraph map[string][]string

// buildDependencyGraph adjacency-lists tasks by resolving each task's
// Dependencies (task IDs) against the set itself.
func buildDependencyGraph(tasks []model.TaskDefinition) dependencyGraph {
	graph := make(dependencyGraph, len(tasks))
	for _, t := range tasks {
		graph[t.ID] = t.Dependencies
	}
	return graph
}

// hasCycle reports whether graph contains a cycle, via DFS with a
// recursion-stack marker. A cycle here means a decomposition strategy wired
// two templates into a dependency loop — a caller bug, reported as
// KindInvalidTransition per spec.md §9's resolved design note, never
// silently dropped.
func hasCycle(graph dependencyGraph) bool {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(graph))

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, dep := range graph[id] {
			if visit(dep) {
				return true
			}
		}
		state[id] = done
		return false
	}

	for id := range graph {
		if visit(id) {
			return true
		}
	}
	return false
}

// criticalPath returns the longest dependency chain through graph, read as
// the order a dependent task must wait for its dependency to finish
// (dependency first). Ported from the original's "longest path from a
// start task following the tasks that depend on it" walk, restated over an
// adjacency list keyed by dependency rather than dependent.
func criticalPath(graph dependencyGraph) []string {
	dependents := make(map[string][]string, len(graph))
	var roots []string
	for id, deps := range graph {
		if len(deps) == 0 {
			roots = append(roots, id)
		}
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var longestPath func(id string) []string
	longestPath = func(id string) []string {
		path := []string{id}
		var longestSub []string
		for _, dependent := range dependents[id] {
			sub := longestPath(dependent)
			if len(sub) > len(longestSub) {
				longestSub = sub
			}
		}
		return append(path, longestSub...)
	}

	var longest []string
	for _, root := range roots {
		path := longestPath(root)
		if len(path) > len(longest) {
			longest = path
		}
	}
	return longest
}

// parallelGroups level-partitions graph: group 0 is every task with no
// dependencies, group N+1 is every remaining task whose dependencies are
// all satisfied by groups 0..N. A task whose dependency never resolves
// (cycle, or dangling id) is dropped rather than looping forever.
func parallelGroups(graph dependencyGraph) [][]string {
	processed := make(map[string]bool, len(graph))
	var groups [][]string

	for len(processed) < len(graph) {
		var current []string
		for id, deps := range graph {
			if processed[id] {
				continue
			}
			ready := true
			for _, dep := range deps {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				current = append(current, id)
			}
		}
		if len(current) == 0 {
			break // no progress possible; remaining ids form a cycle or reference missing tasks
		}
		for _, id := range current {
			processed[id] = true
		}
		groups = append(groups, current)
	}
	return groups
}
