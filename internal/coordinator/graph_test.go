package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCycle_DetectsSimpleCycle(t *testing.T) {
	graph := dependencyGraph{"a": {"b"}, "b": {"a"}}
	assert.True(t, hasCycle(graph))
}

func TestHasCycle_AcyclicGraphPasses(t *testing.T) {
	graph := dependencyGraph{"a": {}, "b": {"a"}, "c": {"b"}}
	assert.False(t, hasCycle(graph))
}

func TestCriticalPath_LongestChain(t *testing.T) {
	// a -> b -> c (c depends on b, b depends on a); d is isolated.
	graph := dependencyGraph{"a": {}, "b": {"a"}, "c": {"b"}, "d": {}}
	path := criticalPath(graph)
	assert.Equal(t, []string{"a", "b", "c"}, path)
}

func TestParallelGroups_LevelPartitions(t *testing.T) {
	graph := dependencyGraph{"a": {}, "b": {}, "c": {"a", "b"}}
	groups := parallelGroups(graph)
	assert.Len(t, groups, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, groups[0])
	assert.Equal(t, []string{"c"}, groups[1])
}

func TestParallelGroups_BreaksOnCycleWithoutLooping(t *testing.T) {
	graph := dependencyGraph{"a": {"b"}, "b": {"a"}}
	groups := parallelGroups(graph)
	assert.Empty(t, groups)
}
