package graph

// Package graph models what a single resolution saw: which requesters
// constrained the package and how each candidate fared. It is diagnostic
// output only; nothing reads it back during resolution.

// RequirementNode is one constraint found while walking the requester chain.
type RequirementNode struct {
	// Depth is the position in the chain; 0 is the direct requester.
	Depth      int
	ModuleID   string
	Table      string
	Constraint string
}

// CandidateNode is one installed version and the selector's verdict on it.
type CandidateNode struct {
	Version string
	// Considered is false for versions below the selected one, which the
	// highest-first search never reached.
	Considered bool
	Satisfies  bool
}

// Trace is the requirement/candidate picture for one package.
type Trace struct {
	PackageID    string
	Requirements []RequirementNode
	// Candidates are in ascending version order.
	Candidates []CandidateNode
	Selected   string
}

// Considered returns the versions the selector actually tested, highest first.
func (t Trace) Considered() []string {
	out := make([]string, 0, len(t.Candidates))
	for i := len(t.Candidates) - 1; i >= 0; i-- {
		if t.Candidates[i].Considered {
			out = append(out, t.Candidates[i].Version)
		}
	}
	return out
}

// Constrained reports whether any requester declared a constraint.
func (t Trace) Constrained() bool {
	return len(t.Requirements) > 0
}
