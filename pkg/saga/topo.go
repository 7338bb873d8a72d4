package saga

import (
	"fmt"

	"github.com/cuemby/corestate/pkg/types"
)

// topoSort orders steps so every step appears after all of its
// dependsOn steps. It fails with *types.ValidationError on a cycle or
// a dangling dependency.
func topoSort(steps []types.Step) ([]types.Step, error) {
	byID := make(map[string]types.Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, &types.ValidationError{
					Subject: s.ID,
					Reason:  fmt.Sprintf("depends on unknown step %q", dep),
				}
			}
		}
	}

	const (
		white = 0 // unvisited
		gray  = 1 // in progress
		black = 2 // done
	)
	color := make(map[string]int, len(steps))
	order := make([]types.Step, 0, len(steps))

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return &types.ValidationError{Subject: id, Reason: "cycle detected in step dependsOn graph"}
		}
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		order = append(order, byID[id])
		return nil
	}

	for _, s := range steps {
		if err := visit(s.ID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// reverseSteps returns a new slice with steps in the opposite order, used
// to run Sequential compensation in reverse topological order.
func reverseSteps(steps []types.Step) []types.Step {
	out := make([]types.Step, len(steps))
	for i, s := range steps {
		out[len(steps)-1-i] = s
	}
	return out
}
