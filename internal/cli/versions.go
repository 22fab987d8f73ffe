package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anvil-platform/vrequire/internal/resolver"
	"github.com/anvil-platform/vrequire/internal/semver"
)

type versionsView struct {
	Dir        string   `json:"dir" yaml:"dir"`
	Comparator string   `json:"comparator" yaml:"comparator"`
	Versions   []string `json:"versions" yaml:"versions"`
}

func (a *app) newVersionsCmd() *cobra.Command {
	var bootstrap bool
	cmd := &cobra.Command{
		Use:   "versions DIR",
		Short: "List the versions installed side by side in DIR, ascending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var cmp semver.Comparator = semver.Bootstrap{}
			if !bootstrap {
				var err error
				if cmp, err = a.newResolver().Comparator(ctx, ""); err != nil {
					return err
				}
			}

			versions, err := resolver.Versions(ctx, a.fs, args[0], cmp)
			if err != nil {
				return err
			}
			view := versionsView{Dir: args[0], Comparator: semver.KindOf(cmp), Versions: versions}
			return a.render(cmd.OutOrStdout(), view, func(w io.Writer) {
				for _, v := range view.Versions {
					fmt.Fprintln(w, v)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&bootstrap, "bootstrap", false, "Validate and order with the bootstrap comparator")
	return cmd
}
