package internal

import "fmt"

// Validate checks a reaction on its own, before it is compared with the table.
func Validate(r *Reaction) error {
	if r.Body == nil {
		return fmt.Errorf("%s: %w", r.Name, ErrNoBody)
	}
	if len(r.Triggers) == 0 {
		return fmt.Errorf("%s: %w", r.Name, ErrNoTrigger)
	}

	seen := make(map[Key]bool, len(r.Triggers))
	for _, t := range r.Triggers {
		if seen[t.Key()] {
			return fmt.Errorf("%s: %w: %s", r.Name, ErrDuplicateTrigger, t)
		}
		seen[t.Key()] = true
	}

	if r.SelfTriggerSafe {
		return nil
	}
	for _, t := range r.Triggers {
		if t.Kind == KindModified && r.writes(t.Ref) {
			return &SelfTriggerError{Reaction: r.Name, Ref: t.Ref}
		}
	}

	return nil
}

// Graph links reactions that write a property to reactions modified-triggered by it.
type Graph struct {
	readers map[Ref][]*Reaction
}

func NewGraph(reactions []*Reaction) *Graph {
	g := &Graph{readers: make(map[Ref][]*Reaction)}
	for _, r := range reactions {
		g.add(r)
	}
	return g
}

func (g *Graph) add(r *Reaction) {
	for _, t := range r.Triggers {
		if t.Kind == KindModified {
			g.readers[t.Ref] = append(g.readers[t.Ref], r)
		}
	}
}

// next returns the reactions r's outputs trigger, ignoring self edges
// (which Validate already rejected unless the reaction is marked safe).
func (g *Graph) next(r *Reaction) []*Reaction {
	var out []*Reaction
	for _, o := range r.Outputs {
		for _, reader := range g.readers[o.Ref] {
			if reader != r {
				out = append(out, reader)
			}
		}
	}
	return out
}

// DetectCycle adds r to the graph and looks for a cycle reachable from it.
// The graph is acyclic before r is added, so any cycle found goes through r.
func (g *Graph) DetectCycle(r *Reaction) error {
	g.add(r)

	visited := make(map[*Reaction]bool)
	onStack := make(map[*Reaction]bool)
	path := make([]*Reaction, 0)

	var dfs func(node *Reaction) error
	dfs = func(node *Reaction) error {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, dep := range g.next(node) {
			if onStack[dep] {
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}

				names := make([]string, 0, len(path)-start+1)
				for _, n := range path[start:] {
					names = append(names, n.Name)
				}
				names = append(names, dep.Name)

				return &CyclicDependencyError{Path: names}
			}

			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		onStack[node] = false
		return nil
	}

	return dfs(r)
}
