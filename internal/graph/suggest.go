package graph

import (
	"fmt"
	"sort"
	"strings"
)

// SuggestGroups clusters modules by their runtime dependency structure
// using a Louvain-style modularity optimization and returns one proposed
// group per detected cluster. Only clusters with two or more members are
// proposed. Node order is fixed, so identical maps yield identical
// suggestions.
func SuggestGroups(m *ModuleMap) []ModuleGroup {
	ids, index := moduleIndex(m)
	if len(ids) == 0 {
		return nil
	}
	matrix := buildModuleAdjacency(m, index, len(ids))
	communities := assignCommunities(matrix)

	clusters := map[int][]int{}
	for node, comm := range communities {
		clusters[comm] = append(clusters[comm], node)
	}
	commIDs := make([]int, 0, len(clusters))
	for comm := range clusters {
		commIDs = append(commIDs, comm)
	}
	sort.Ints(commIDs)

	var groups []ModuleGroup
	for _, comm := range commIDs {
		members := clusters[comm]
		if len(members) < 2 {
			continue
		}
		leader := members[0]
		leaderDegree := rowSum(matrix[leader])
		memberIDs := make([]string, 0, len(members))
		for _, node := range members {
			memberIDs = append(memberIDs, ids[node])
			if d := rowSum(matrix[node]); d > leaderDegree {
				leader, leaderDegree = node, d
			}
		}
		sort.Strings(memberIDs)
		groups = append(groups, ModuleGroup{
			ID:             "cluster-" + ids[leader],
			Name:           clusterName(memberIDs),
			ModuleIDs:      memberIDs,
			Responsibility: fmt.Sprintf("Runtime dependency cluster around %s", ids[leader]),
			LeaderModule:   ids[leader],
		})
	}
	return groups
}

// SuggestLayers assigns every module to an architecture layer by longest
// path over runtime edges: modules with no runtime dependencies sit in
// layer 0, every other module one layer above its deepest dependency.
// Modules on a dependency cycle are placed at the depth reached when the
// cycle closes; run Validate first to surface cycles as errors.
func SuggestLayers(m *ModuleMap) []ArchitectureLayer {
	ids, index := moduleIndex(m)
	if len(ids) == 0 {
		return nil
	}
	adj := make([][]int, len(ids))
	addDep := func(from, to string) {
		fi, fok := index[from]
		ti, tok := index[to]
		if fok && tok && fi != ti {
			adj[fi] = append(adj[fi], ti)
		}
	}
	for i := range m.Modules {
		for _, dep := range m.Modules[i].Dependencies {
			if dep.IsRuntime() {
				addDep(m.Modules[i].ID, dep.ModuleID)
			}
		}
	}
	if m.DependencyGraph != nil {
		for _, e := range m.DependencyGraph.Edges {
			if e.IsRuntime() {
				addDep(e.From, e.To)
			}
		}
	}

	const unvisited = -1
	depth := make([]int, len(ids))
	onStack := make([]bool, len(ids))
	for i := range depth {
		depth[i] = unvisited
	}
	var visit func(node int) int
	visit = func(node int) int {
		if onStack[node] {
			return 0
		}
		if depth[node] != unvisited {
			return depth[node]
		}
		onStack[node] = true
		d := 0
		for _, dep := range adj[node] {
			if dd := visit(dep) + 1; dd > d {
				d = dd
			}
		}
		onStack[node] = false
		depth[node] = d
		return d
	}

	maxDepth := 0
	for i := range ids {
		if d := visit(i); d > maxDepth {
			maxDepth = d
		}
	}

	layers := make([]ArchitectureLayer, maxDepth+1)
	for i := range layers {
		layers[i].Name = fmt.Sprintf("layer-%d", i)
	}
	for i, id := range ids {
		layers[depth[i]].Modules = append(layers[depth[i]].Modules, id)
	}
	for i := range layers {
		sort.Strings(layers[i].Modules)
	}
	return layers
}

// moduleIndex returns the module ids sorted plus an id->index mapping.
func moduleIndex(m *ModuleMap) ([]string, map[string]int) {
	ids := make([]string, 0, len(m.Modules))
	for i := range m.Modules {
		ids = append(ids, m.Modules[i].ID)
	}
	sort.Strings(ids)
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return ids, index
}

// buildModuleAdjacency builds an undirected weighted adjacency matrix
// over runtime dependencies, taking the union of per-module dependency
// lists and the dependency graph's edge set.
func buildModuleAdjacency(m *ModuleMap, index map[string]int, n int) [][]float64 {
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	seen := map[[2]int]bool{}
	addEdge := func(from, to string) {
		fi, fok := index[from]
		ti, tok := index[to]
		if !fok || !tok || fi == ti {
			return
		}
		key := [2]int{fi, ti}
		if seen[key] {
			return
		}
		seen[key] = true
		matrix[fi][ti] += 1.0
		matrix[ti][fi] += 1.0
	}
	for i := range m.Modules {
		for _, dep := range m.Modules[i].Dependencies {
			if dep.IsRuntime() {
				addEdge(m.Modules[i].ID, dep.ModuleID)
			}
		}
	}
	if m.DependencyGraph != nil {
		for _, e := range m.DependencyGraph.Edges {
			if e.IsRuntime() {
				addEdge(e.From, e.To)
			}
		}
	}
	return matrix
}

// assignCommunities assigns a community to every node with a simplified
// Louvain pass over the weighted adjacency matrix. Nodes are visited in
// index order every sweep, so the result is deterministic for a fixed
// matrix. Returned community ids are renumbered consecutively from 0.
func assignCommunities(matrix [][]float64) []int {
	n := len(matrix)
	if n == 0 {
		return nil
	}
	communities := make([]int, n)
	for i := range communities {
		communities[i] = i
	}

	var totalWeight float64
	degrees := make([]float64, n)
	for i := 0; i < n; i++ {
		degrees[i] = rowSum(matrix[i])
		totalWeight += degrees[i]
	}
	if totalWeight == 0 {
		return communities
	}

	improved := true
	for iterations := 0; improved && iterations < 100; iterations++ {
		improved = false
		for node := 0; node < n; node++ {
			current := communities[node]
			bestComm := current
			// Staying put is the baseline; a move must strictly beat it,
			// otherwise equal-gain hops oscillate forever.
			bestGain := modularityGain(node, current, communities, matrix, degrees, totalWeight)

			neighborComms := map[int]bool{}
			for j := 0; j < n; j++ {
				if matrix[node][j] > 0 {
					neighborComms[communities[j]] = true
				}
			}
			sorted := make([]int, 0, len(neighborComms))
			for comm := range neighborComms {
				sorted = append(sorted, comm)
			}
			sort.Ints(sorted)

			for _, comm := range sorted {
				if comm == current {
					continue
				}
				if gain := modularityGain(node, comm, communities, matrix, degrees, totalWeight); gain > bestGain {
					bestGain = gain
					bestComm = comm
				}
			}
			if bestComm != current {
				communities[node] = bestComm
				improved = true
			}
		}
	}

	renumber := map[int]int{}
	next := 0
	for i := range communities {
		if _, ok := renumber[communities[i]]; !ok {
			renumber[communities[i]] = next
			next++
		}
		communities[i] = renumber[communities[i]]
	}
	return communities
}

// modularityGain computes the modularity contribution of placing node in
// comm, with the node itself excluded from the community sums, so the
// value is comparable across candidate communities.
func modularityGain(node, comm int, communities []int, matrix [][]float64, degrees []float64, totalWeight float64) float64 {
	var sigmaIn, sigmaTot float64
	for j := range communities {
		if communities[j] == comm && j != node {
			sigmaIn += matrix[node][j]
			sigmaTot += degrees[j]
		}
	}
	sigmaTot += degrees[node]
	ki := degrees[node]
	return (sigmaIn / totalWeight) - ((ki * sigmaTot) / (totalWeight * totalWeight))
}

func rowSum(row []float64) float64 {
	var s float64
	for _, v := range row {
		s += v
	}
	return s
}

func clusterName(members []string) string {
	if len(members) <= 3 {
		return strings.Join(members, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(members[:3], ", "), len(members)-3)
}
