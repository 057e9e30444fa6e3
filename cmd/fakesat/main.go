// Command fakesat serves a fake Satellite API backed by a SQLite file, for
// trying the client and satctl without a real server.
//
// Credentials come from NAILGUN_USERNAME, NAILGUN_PASSWORD and NAILGUN_TOKEN;
// without them every request is served anonymously.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/preslavrachev/nailgun/adapters/sql"
	"github.com/preslavrachev/nailgun/apiserver"
	"github.com/preslavrachev/nailgun/entities"
	"github.com/preslavrachev/nailgun/middleware/auth"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fakesat",
		Short:        "Serve a fake Satellite API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, closeStore, err := newServer(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer closeStore()

			addr := v.GetString("addr")
			log.Printf("[FAKESAT] Serving %d kinds on %s (store %s)", len(entities.Catalog.Names()), addr, v.GetString("db"))
			return srv.Run(addr)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":3000", "address to listen on")
	flags.String("db", "fakesat.db", "SQLite database file, or :memory:")
	flags.Int("task-polls", apiserver.DefaultTaskPolls, "polls a task stays running for")
	flags.StringSlice("fail", nil, "actions whose tasks fail, e.g. Repository.sync or Product.delete")
	flags.Bool("debug", false, "log requests and SQL statements")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("FAKESAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

// newServer opens the store and builds the API on it
func newServer(ctx context.Context, v *viper.Viper) (*apiserver.Server, func(), error) {
	debug := v.GetBool("debug")
	store, err := sql.Open(ctx, v.GetString("db"), debug)
	if err != nil {
		return nil, nil, err
	}

	authCfg := auth.WithBasicAuthFromConfig()
	if !authCfg.Enabled {
		log.Printf("[FAKESAT] No credentials configured, authentication disabled")
	}
	srv := apiserver.New(store, entities.Catalog, apiserver.Options{
		Auth:           &authCfg,
		TaskPolls:      v.GetInt("task-polls"),
		FailingActions: v.GetStringSlice("fail"),
		Debug:          debug,
	})

	closeAll := func() {
		if tokens, ok := authCfg.TokenStore.(*auth.MemoryTokenStore); ok {
			tokens.Close()
		}
		store.Close()
	}
	return srv, closeAll, nil
}
