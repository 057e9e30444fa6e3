package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/preslavrachev/nailgun/core"
)

// entityArgs builds an entity of the kind named by args[0] from the id in
// args[1] (when withID) and field=value pairs after it
func (a *app) entityArgs(args []string, withID bool) (*core.Kind, map[string]any, error) {
	kind, err := a.kind(args[0])
	if err != nil {
		return nil, nil, err
	}
	rest := args[1:]
	var id string
	if withID {
		id, rest = rest[0], rest[1:]
	}
	values, err := parseAssignments(kind, rest)
	if err != nil {
		return nil, nil, err
	}
	if withID {
		idField, _ := kind.Field("id")
		v, err := parseValue(idField, id)
		if err != nil {
			return nil, nil, fmt.Errorf("id %q: %w", id, err)
		}
		values["id"] = v
	}
	return kind, values, nil
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <kind> <id> [field=value ...]",
		Short: "Read an entity by id",
		Long: `Read fetches one entity. Nested kinds need their parent, e.g.

  satctl read SyncPlan 4 organization=1`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, cfg, err := a.connect()
			if err != nil {
				return err
			}
			kind, values, err := a.entityArgs(args, true)
			if err != nil {
				return err
			}
			e, err := core.New(kind, cfg, values)
			if err != nil {
				return err
			}
			read, err := en.Read(cmd.Context(), e, core.ReadOptions{})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), read)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <kind> [field=value ...]",
		Short: "Search entities of a kind",
		Long: `Search lists entities. Assigned fields become search parameters.

  satctl search Product --search 'name ~ RHEL' --per-page 50
  satctl search SyncPlan organization=1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, cfg, err := a.connect()
			if err != nil {
				return err
			}
			kind, values, err := a.entityArgs(args, false)
			if err != nil {
				return err
			}
			e, err := core.New(kind, cfg, values)
			if err != nil {
				return err
			}

			expr, _ := cmd.Flags().GetString("search")
			page, _ := cmd.Flags().GetInt("page")
			perPage, _ := cmd.Flags().GetInt("per-page")
			q := core.NewSearchQuery().WithSearch(expr).WithPagination(page, perPage)
			if order, _ := cmd.Flags().GetString("order"); order != "" {
				field, direction, err := parseOrder(order)
				if err != nil {
					return err
				}
				q.WithSort(field, direction)
			}

			result, err := en.Search(cmd.Context(), e, core.SearchOptions{Query: q.Params()})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"total":    result.Total,
				"subtotal": result.Subtotal,
				"page":     result.Page,
				"per_page": result.PerPage,
				"results":  result.Entities,
			})
		},
	}
	cmd.Flags().String("search", "", "search expression, e.g. 'name ~ dev'")
	cmd.Flags().String("order", "", "sort field and direction, e.g. 'name desc'")
	cmd.Flags().Int("page", 1, "page to return")
	cmd.Flags().Int("per-page", core.DefaultPageSize, "results per page")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <kind> [field=value ...]",
		Short: "Create an entity",
		Long: `Create sends a new entity to the server. Required fields left out are
generated; an entity given no fields at all gets its required related
entities created too.

  satctl create Organization name=ACME
  satctl create Product name=RHEL organization=1 --create-missing=false`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, cfg, err := a.connect()
			if err != nil {
				return err
			}
			kind, values, err := a.entityArgs(args, false)
			if err != nil {
				return err
			}
			e, err := core.New(kind, cfg, values)
			if err != nil {
				return err
			}
			var opts core.CreateOptions
			if cmd.Flags().Changed("create-missing") {
				v, _ := cmd.Flags().GetBool("create-missing")
				opts.CreateMissing = core.Bool(v)
			}
			created, err := en.Create(cmd.Context(), e, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	cmd.Flags().Bool("create-missing", true, "generate values for missing required fields")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <kind> <id> field=value ...",
		Short: "Update fields of an entity",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, cfg, err := a.connect()
			if err != nil {
				return err
			}
			kind, values, err := a.entityArgs(args, true)
			if err != nil {
				return err
			}
			e, err := core.New(kind, cfg, values)
			if err != nil {
				return err
			}
			var names []string
			for name := range values {
				if name != "id" && name != kind.ParentField() {
					names = append(names, name)
				}
			}
			slices.Sort(names)
			if len(names) == 0 {
				return fmt.Errorf("nothing to update on %s", kind.Name)
			}
			updated, err := en.Update(cmd.Context(), e, names...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <kind> <id> [field=value ...]",
		Short: "Delete an entity",
		Long: `Delete removes an entity. Kinds deleted by a task are waited for unless
--async is given, in which case the task is printed.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, cfg, err := a.connect()
			if err != nil {
				return err
			}
			kind, values, err := a.entityArgs(args, true)
			if err != nil {
				return err
			}
			e, err := core.New(kind, cfg, values)
			if err != nil {
				return err
			}
			async, _ := cmd.Flags().GetBool("async")
			result, err := en.Delete(cmd.Context(), e, core.DeleteOptions{Async: async, Poll: pollOptions(cmd)})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().Bool("async", false, "return the task instead of waiting for it")
	pollFlags(cmd)
	return cmd
}

func newInvokeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke <kind> <id> <action> [field=value ...]",
		Short: "Run a custom action, such as a repository sync",
		Long: `Invoke runs a named action of an entity and waits for the task it starts,
unless --async is given.

  satctl invoke Repository 7 sync
  satctl invoke Organization 1 refresh_manifest --async`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			en, cfg, err := a.connect()
			if err != nil {
				return err
			}
			action := args[2]
			kind, values, err := a.entityArgs(append(args[:2:2], args[3:]...), true)
			if err != nil {
				return err
			}
			e, err := core.New(kind, cfg, values)
			if err != nil {
				return err
			}
			var body map[string]any
			if raw, _ := cmd.Flags().GetString("body"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &body); err != nil {
					return fmt.Errorf("--body: %w", err)
				}
			}
			async, _ := cmd.Flags().GetBool("async")
			result, err := en.Invoke(cmd.Context(), e, action, body, core.InvokeOptions{Async: async, Poll: pollOptions(cmd)})
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().String("body", "", "JSON object sent with the action")
	cmd.Flags().Bool("async", false, "return the task instead of waiting for it")
	pollFlags(cmd)
	return cmd
}

// printResult prints the task of an action, or its data
func printResult(cmd *cobra.Command, result *core.ActionResult) error {
	out := map[string]any{"status": result.StatusCode}
	if result.Task != nil {
		out["task"] = map[string]any{"id": result.Task.ID, "state": result.Task.State, "info": result.Task.Info}
	}
	if result.Data != nil {
		out["data"] = result.Data
	}
	return printJSON(cmd.OutOrStdout(), out)
}
