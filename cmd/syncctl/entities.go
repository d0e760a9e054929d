package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/syncentity"
)

func listCmd(flags *schemaFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every exposed entity with its capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd.Context(), flags)
			if err != nil {
				return err
			}
			writeTable(cmd.OutOrStdout(), reg.Configs())
			return nil
		},
	}
}

func showCmd(flags *schemaFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Show how a key resolves (slug, model name or alias)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd.Context(), flags)
			if err != nil {
				return err
			}
			cfg, ok := reg.Resolve(args[0])
			if !ok {
				if near := nearKeys(reg.Keys(), args[0]); len(near) > 0 {
					return fmt.Errorf("entity %q not found; did you mean %s?", args[0], strings.Join(near, ", "))
				}
				return fmt.Errorf("entity %q not found", args[0])
			}
			writeConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func unresolvedCmd(flags *schemaFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unresolved",
		Short: "Print catalog targets that match no schema model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd.Context(), flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			unresolved := reg.Unresolved()
			if len(unresolved) == 0 {
				fmt.Fprintf(out, "%s all catalog targets resolved\n", color.New(color.FgGreen).Sprint("OK"))
				return nil
			}
			for _, name := range unresolved {
				fmt.Fprintf(out, "%s %s\n", color.New(color.FgYellow).Sprint("MISSING"), name)
			}
			return nil
		},
	}
}

func writeTable(out io.Writer, configs []*syncentity.Config) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tMODEL\tTABLE\tCATEGORY\tCHANGE FIELD\tSOFT DELETE\tWRITE ROLES")
	for _, cfg := range configs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			cfg.Slug, cfg.ModelName, cfg.Table, cfg.Category,
			orDash(cfg.UpdatedField), orDash(softDelete(cfg)), joinRoles(cfg.WriteRoles))
	}
	tw.Flush()
}

func writeConfig(out io.Writer, cfg *syncentity.Config) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "slug:\t%s\n", cfg.Slug)
	fmt.Fprintf(tw, "model:\t%s\n", cfg.ModelName)
	fmt.Fprintf(tw, "table:\t%s\n", cfg.Table)
	fmt.Fprintf(tw, "category:\t%s\n", cfg.Category)
	fmt.Fprintf(tw, "aliases:\t%s\n", orDash(strings.Join(cfg.Aliases, ", ")))
	fmt.Fprintf(tw, "change field:\t%s\n", orDash(cfg.UpdatedField))
	fmt.Fprintf(tw, "soft delete:\t%s\n", orDash(softDelete(cfg)))
	fmt.Fprintf(tw, "read roles:\t%s\n", joinRoles(cfg.ReadRoles))
	fmt.Fprintf(tw, "write roles:\t%s\n", joinRoles(cfg.WriteRoles))
	fmt.Fprintf(tw, "fields:\t%s\n", strings.Join(cfg.Fields, ", "))
	tw.Flush()
}

func softDelete(cfg *syncentity.Config) string {
	var conds []string
	if cfg.DeletedFlagField != "" {
		conds = append(conds, cfg.DeletedFlagField+" = false")
	}
	if cfg.DeletedAtField != "" {
		conds = append(conds, cfg.DeletedAtField+" IS NULL")
	}
	return strings.Join(conds, " AND ")
}

func joinRoles(set models.RoleSet) string {
	roles := set.Slice()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

// nearKeys returns the lookup keys that contain the given key or are contained by it.
func nearKeys(keys []string, key string) []string {
	needle := strings.ToLower(strings.TrimSpace(key))
	if needle == "" {
		return nil
	}
	var out []string
	for _, k := range keys {
		if strings.Contains(k, needle) || strings.Contains(needle, k) {
			out = append(out, k)
		}
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
