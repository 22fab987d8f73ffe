package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anvil-platform/vrequire/internal/resolver"
)

type constraintsView struct {
	Package      string            `json:"package" yaml:"package"`
	Combined     string            `json:"combined" yaml:"combined"`
	Requirements []requirementView `json:"requirements" yaml:"requirements"`
}

func (a *app) newConstraintsCmd() *cobra.Command {
	var from []string
	cmd := &cobra.Command{
		Use:   "constraints PACKAGE --from FILE[,FILE...]",
		Short: "Show every constraint on PACKAGE in the requester chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(from) == 0 {
				return errors.New("--from is required")
			}
			constraints, err := a.newResolver().Constraints(cmd.Context(), a.chain(from), args[0])
			if err != nil {
				return err
			}
			view := constraintsView{Package: args[0], Combined: resolver.Combine(constraints)}
			for _, c := range constraints {
				view.Requirements = append(view.Requirements, requirementView{
					Module:     c.Module,
					Depth:      c.Depth,
					Table:      c.Table,
					Constraint: c.Expression,
				})
			}
			return a.render(cmd.OutOrStdout(), view, func(w io.Writer) {
				for _, req := range view.Requirements {
					fmt.Fprintf(w, "%s %s\n", req.Constraint, styleDim.Render(fmt.Sprintf("%s %s", req.Module, req.Table)))
				}
				fmt.Fprintf(w, "%s %s\n", label("combined"), view.Combined)
			})
		},
	}
	cmd.Flags().StringSliceVar(&from, "from", nil, "Requesting module files, nearest first")
	return cmd
}
