package compiler

import (
	"strconv"

	"github.com/cuemby/pipestack/pkg/manifest"
)

// determineStepTopics computes each non-root node's transport topic by
// iterative relaxation (Kahn's-algorithm-style worklist): a root (no
// dependsOn, or an empty list) sits at depth 1 and receives no topic; every
// other node's depth is 1 + max(depth of its dependencies), assigned once
// all of its dependencies have a depth. The loop runs to a fixed point; any
// node left without a depth at that point names a CompileError: a
// dependency on an undeclared node reports MissingDependency, otherwise the
// remaining nodes form a true cycle and report CycleDetected.
func determineStepTopics(pipeline *manifest.Pipeline, workspaceSlug string) (map[string]string, error) {
	depths := make(map[string]int, len(pipeline.Nodes))
	names := make(map[string]bool, len(pipeline.Nodes))

	for _, n := range pipeline.Nodes {
		names[n.Name] = true
		if !n.HasDependencies() {
			depths[n.Name] = 1
		}
	}

	for {
		changed := false
		for _, n := range pipeline.Nodes {
			if !n.HasDependencies() {
				continue
			}
			if _, done := depths[n.Name]; done {
				continue
			}
			maxDepth := 0
			allResolved := true
			for _, dep := range n.DependsOn {
				d, ok := depths[dep]
				if !ok {
					allResolved = false
					break
				}
				if d > maxDepth {
					maxDepth = d
				}
			}
			if allResolved {
				depths[n.Name] = maxDepth + 1
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, n := range pipeline.Nodes {
		if _, ok := depths[n.Name]; ok {
			continue
		}
		for _, dep := range n.DependsOn {
			if !names[dep] {
				return nil, newCompileError(MissingDependency,
					"node %q depends on %q, which is not declared in this pipeline", n.Name, dep)
			}
		}
		return nil, newCompileError(CycleDetected,
			"node %q has an unresolved dependency chain (cycle)", n.Name)
	}

	topics := make(map[string]string, len(pipeline.Nodes))
	for _, n := range pipeline.Nodes {
		if !n.HasDependencies() {
			continue
		}
		depth := depths[n.Name]
		topics[n.Name] = stepTopic(workspaceSlug, pipeline.Name, depth)
	}
	return topics, nil
}

func stepTopic(workspaceSlug, pipelineName string, depth int) string {
	return "pipestack." + workspaceSlug + "." + pipelineName + ".step-" +
		strconv.Itoa(depth) + "-in"
}
