package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anvil-platform/vrequire/internal/resolver"
	"github.com/anvil-platform/vrequire/internal/semver"
)

type checkView struct {
	Version    string `json:"version" yaml:"version"`
	Constraint string `json:"constraint" yaml:"constraint"`
	Comparator string `json:"comparator" yaml:"comparator"`
	Valid      bool   `json:"valid" yaml:"valid"`
	Satisfies  bool   `json:"satisfies" yaml:"satisfies"`
}

func (a *app) newCheckCmd() *cobra.Command {
	var bootstrap bool
	cmd := &cobra.Command{
		Use:   "check VERSION [CONSTRAINT]",
		Short: "Test whether VERSION satisfies CONSTRAINT",
		Long: `Check evaluates a single version against a constraint with the same
comparator resolution would use. An omitted constraint accepts every version.
The command exits 3 when the constraint is not satisfied.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cmp semver.Comparator = semver.Bootstrap{}
			if !bootstrap {
				var err error
				if cmp, err = a.newResolver().Comparator(cmd.Context(), ""); err != nil {
					return err
				}
			}
			view := checkView{Version: args[0], Comparator: semver.KindOf(cmp)}
			if len(args) == 2 {
				view.Constraint = args[1]
			}
			view.Valid = cmp.Valid(view.Version)
			view.Satisfies = cmp.Satisfies(view.Version, view.Constraint)

			err := a.render(cmd.OutOrStdout(), view, func(w io.Writer) {
				verdict := styleSelected.Render("satisfied")
				if !view.Satisfies {
					verdict = styleRejected.Render("not satisfied")
				}
				fmt.Fprintf(w, "%s %q %s\n", view.Version, view.Constraint, verdict)
			})
			if err != nil {
				return err
			}
			if !view.Satisfies {
				return fmt.Errorf("%s does not satisfy %q: %w", view.Version, view.Constraint, resolver.ErrUnsatisfiable)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&bootstrap, "bootstrap", false, "Use the bootstrap comparator")
	return cmd
}
