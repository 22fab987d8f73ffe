package resolver

import (
	"context"

	"github.com/go-logr/logr"
)

// collect walks the requester chain, nearest first, and gathers every
// constraint on packageID from the given tables. Duplicates are kept.
// Metadata errors are returned unchanged.
func collect(ctx context.Context, requester Module, packageID string, tables []string) ([]Constraint, error) {
	logger := logr.FromContextOrDiscard(ctx)

	var constraints []Constraint
	depth := 0
	for m := requester; m != nil; m, depth = m.Parent(), depth+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		md, err := m.Metadata(ctx)
		if err != nil {
			return nil, err
		}
		for _, table := range tables {
			expr, ok := md.Lookup(table, packageID)
			if !ok || expr == "" {
				continue
			}
			logger.V(1).Info("found constraint", "module", m.ID(), "table", table, "constraint", expr)
			constraints = append(constraints, Constraint{
				Module:     m.ID(),
				Depth:      depth,
				Table:      table,
				Expression: expr,
			})
		}
	}
	return constraints, nil
}
