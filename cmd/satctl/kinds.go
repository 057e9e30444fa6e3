package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/preslavrachev/nailgun/core"
)

func newKindsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds [kind]",
		Short: "List entity kinds, or the fields of one kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if len(args) == 0 {
				fmt.Fprintln(w, "KIND\tPATH\tOPERATIONS")
				for _, name := range a.registry.Names() {
					kind, _ := a.registry.Kind(name)
					fmt.Fprintf(w, "%s\t/%s\t%s\n", kind.Name, kind.APIPath, allowedOps(kind))
				}
				return w.Flush()
			}

			kind, err := a.kind(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "FIELD\tTYPE\tREQUIRED\tTARGETS")
			for _, f := range kind.Fields() {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", f.Name, f.Kind, f.Required, strings.Join(f.Targets, ","))
			}
			for _, action := range kind.Actions() {
				fmt.Fprintf(w, "%s\taction\t\t%s\n", action.ID, action.Method)
			}
			return w.Flush()
		},
	}
}

func allowedOps(kind *core.Kind) string {
	var ops core.Operation
	for _, op := range []core.Operation{core.OpCreate, core.OpRead, core.OpUpdate, core.OpDelete, core.OpSearch} {
		if kind.Supports(op) {
			ops |= op
		}
	}
	return ops.String()
}
