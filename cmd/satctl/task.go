package main

import (
	"github.com/spf13/cobra"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with server tasks",
	}

	poll := &cobra.Command{
		Use:   "poll <id>",
		Short: "Wait for a task to finish and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, cfg, err := a.connect()
			if err != nil {
				return err
			}
			info, err := en.PollTask(cmd.Context(), cfg, args[0], pollOptions(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
	pollFlags(poll)
	cmd.AddCommand(poll)
	return cmd
}
