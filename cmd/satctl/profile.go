package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/preslavrachev/nailgun/config"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved server profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save <label>",
		Short: "Save the current server settings under label",
		Long: `Save stores the server given by --url (or the environment) together with
credentials and TLS settings, for later use with --profile.

  satctl --url https://sat.example.com --user admin --password changeme profile save lab`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.serverConfig()
			if err != nil {
				return err
			}
			if err := config.SaveProfile(args[0], cfg, a.v.GetString(keyProfilesFile)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := config.ProfileLabels(a.v.GetString(keyProfilesFile))
			if err != nil {
				return err
			}
			for _, label := range labels {
				fmt.Fprintln(cmd.OutOrStdout(), label)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <label>",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.DeleteProfile(args[0], a.v.GetString(keyProfilesFile))
		},
	})
	return cmd
}
