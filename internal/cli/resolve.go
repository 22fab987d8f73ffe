package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anvil-platform/vrequire/internal/resolver"
)

type requirementView struct {
	Module     string `json:"module" yaml:"module"`
	Depth      int    `json:"depth" yaml:"depth"`
	Table      string `json:"table" yaml:"table"`
	Constraint string `json:"constraint" yaml:"constraint"`
}

type candidateView struct {
	Version    string `json:"version" yaml:"version"`
	Considered bool   `json:"considered" yaml:"considered"`
	Satisfies  bool   `json:"satisfies" yaml:"satisfies"`
}

type resolutionView struct {
	Package      string            `json:"package" yaml:"package"`
	Version      string            `json:"version" yaml:"version"`
	Path         string            `json:"path" yaml:"path"`
	Comparator   string            `json:"comparator" yaml:"comparator"`
	Constraint   string            `json:"constraint" yaml:"constraint"`
	Requirements []requirementView `json:"requirements" yaml:"requirements"`
	Candidates   []candidateView   `json:"candidates" yaml:"candidates"`
	Exports      any               `json:"exports,omitempty" yaml:"exports,omitempty"`
}

func newResolutionView(res resolver.Resolution) resolutionView {
	view := resolutionView{
		Package:    res.PackageID,
		Version:    res.Version,
		Path:       res.Path(),
		Comparator: res.Comparator,
		Constraint: res.Combined,
	}
	for _, req := range res.Trace.Requirements {
		view.Requirements = append(view.Requirements, requirementView{
			Module:     req.ModuleID,
			Depth:      req.Depth,
			Table:      req.Table,
			Constraint: req.Constraint,
		})
	}
	for _, c := range res.Trace.Candidates {
		view.Candidates = append(view.Candidates, candidateView{
			Version:    c.Version,
			Considered: c.Considered,
			Satisfies:  c.Satisfies,
		})
	}
	return view
}

func (a *app) newResolveCmd() *cobra.Command {
	var (
		from []string
		load bool
	)
	cmd := &cobra.Command{
		Use:   "resolve PACKAGE --from FILE[,FILE...]",
		Short: "Pick the installed version of PACKAGE a module would receive",
		Long: `Resolve walks the requester chain given by --from (nearest module first),
combines every constraint on PACKAGE, and picks the highest installed version
next to the nearest module that satisfies all of them.

With --load the chosen version's Go sources are interpreted and the value of
its Exports entrypoint is printed as well.`,
		Example: `  vrequire resolve left-pad --from app/node_modules/lib/index.js,app/main.js
  vrequire resolve left-pad --from lib/index.js --load -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(from) == 0 {
				return errors.New("--from is required")
			}
			ctx := cmd.Context()
			r := a.newResolver()

			res, err := r.Plan(ctx, a.chain(from), args[0])
			if err != nil {
				return err
			}
			view := newResolutionView(res)
			if load {
				exports, err := r.Load(ctx, res)
				if err != nil {
					return err
				}
				view.Exports = exports
			}
			return a.render(cmd.OutOrStdout(), view, func(w io.Writer) {
				printResolution(w, view, load)
			})
		},
	}
	cmd.Flags().StringSliceVar(&from, "from", nil, "Requesting module files, nearest first")
	cmd.Flags().BoolVar(&load, "load", false, "Load the chosen version and print its exports")
	return cmd
}

func printResolution(w io.Writer, view resolutionView, loaded bool) {
	fmt.Fprintf(w, "%s %s\n", label("package"), styleNoun.Render(view.Package))
	fmt.Fprintf(w, "%s %s\n", label("version"), styleSelected.Render(view.Version))
	fmt.Fprintf(w, "%s %s\n", label("path"), view.Path)
	constraint := view.Constraint
	if constraint == "" {
		constraint = styleDim.Render("(none)")
	}
	fmt.Fprintf(w, "%s %s\n", label("constraint"), constraint)
	fmt.Fprintf(w, "%s %s\n", label("comparator"), view.Comparator)

	for _, req := range view.Requirements {
		fmt.Fprintf(w, "  %s %s %s\n", styleDim.Render(fmt.Sprintf("[%d]", req.Depth)), req.Constraint, styleDim.Render(req.Module+" "+req.Table))
	}

	marks := make([]string, 0, len(view.Candidates))
	for i := len(view.Candidates) - 1; i >= 0; i-- {
		c := view.Candidates[i]
		switch {
		case c.Satisfies:
			marks = append(marks, styleSelected.Render(c.Version))
		case c.Considered:
			marks = append(marks, styleRejected.Render(c.Version))
		default:
			marks = append(marks, styleDim.Render(c.Version))
		}
	}
	fmt.Fprintf(w, "%s %s\n", label("candidates"), strings.Join(marks, " "))

	if loaded {
		fmt.Fprintf(w, "%s %v\n", label("exports"), view.Exports)
	}
}
