package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Shadcn-Component-Manager/web/internal/errors"
	"github.com/Shadcn-Component-Manager/web/internal/registry"
	"github.com/Shadcn-Component-Manager/web/internal/search"
)

func componentsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "components",
		Aliases: []string{"c"},
		Short:   "Query the component registry",
		Long: `Query the component registry directly from GitHub.

Examples:
  scm-web components list
  scm-web components list --author=alice --json
  scm-web components show alice/button
  scm-web components show alice/button --version=1.0.0
  scm-web components search "date picker"`,
	}

	cmd.AddCommand(
		componentsListCmd(flags),
		componentsShowCmd(flags),
		componentsSearchCmd(flags),
	)
	return cmd
}

func componentsListCmd(flags *globalFlags) *cobra.Command {
	var (
		author string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest version of every component",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := cliBackend(flags)
			if err != nil {
				return err
			}

			var entries []registry.CatalogEntry
			if author != "" {
				entries, err = be.registry.ByAuthor(cmd.Context(), author)
			} else {
				entries, err = be.registry.List(cmd.Context())
			}
			if err != nil {
				return errors.New("E100").Wrap(err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, entries)
			}
			printCatalog(out, entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Only list components published under this namespace")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func componentsShowCmd(flags *globalFlags) *cobra.Command {
	var (
		version string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "show <namespace>/<name>",
		Short: "Show a component with its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, name, err := parseComponentRef(args[0])
			if err != nil {
				return err
			}
			be, err := cliBackend(flags)
			if err != nil {
				return err
			}

			detail, err := be.registry.Get(cmd.Context(), namespace, name, version)
			if err != nil {
				return errors.New("E100").WithMessage("Failed to fetch component").Wrap(err)
			}
			if detail == nil {
				return errors.New("E101").WithDetail(fmt.Sprintf("No published version of %s/%s has valid metadata", namespace, name))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, detail)
			}
			if detail.Fallback {
				warn("version %s not found, showing latest %s", detail.RequestedVersion, detail.Version)
			}
			printDetail(out, detail)
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Version to show (default: latest)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func componentsSearchCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			be, err := cliBackend(flags)
			if err != nil {
				return err
			}

			entries, err := be.registry.List(cmd.Context())
			if err != nil {
				return errors.New("E100").Wrap(err)
			}

			results := search.Search(entries, query, limit)
			if len(results) == 0 {
				info("no components match %q", query)
				return nil
			}
			matched := make([]registry.CatalogEntry, len(results))
			for i, r := range results {
				matched[i] = r.Component
			}
			printCatalog(cmd.OutOrStdout(), matched)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum number of results")

	return cmd
}

func cliBackend(flags *globalFlags) (*backend, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return newBackend(cfg, newLogger(cfg), nil, nil)
}

// parseComponentRef splits "<namespace>/<name>".
func parseComponentRef(ref string) (namespace, name string, err error) {
	namespace, name, ok := strings.Cut(ref, "/")
	if !ok || namespace == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.New("E105").
			WithMessage(fmt.Sprintf("Invalid component reference %q", ref)).
			WithSuggestion("Use <namespace>/<name>, e.g. alice/button")
	}
	return namespace, name, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCatalog(w io.Writer, entries []registry.CatalogEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tVERSION\tTYPE\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s/%s\t%s\t%s\t%s\n", e.Author, e.Name, e.Version, e.Type, truncate(e.Description, 60))
	}
	tw.Flush()
}

func printDetail(w io.Writer, d *registry.Detail) {
	fmt.Fprintf(w, "%s/%s@%s\n", d.Author, d.Name, d.Version)
	if d.Title != "" {
		fmt.Fprintf(w, "  Title:        %s\n", d.Title)
	}
	if d.Description != "" {
		fmt.Fprintf(w, "  Description:  %s\n", d.Description)
	}
	fmt.Fprintf(w, "  Type:         %s\n", d.Type)
	fmt.Fprintf(w, "  Versions:     %s\n", strings.Join(d.AllVersions, ", "))
	if len(d.Dependencies) > 0 {
		fmt.Fprintf(w, "  Dependencies: %s\n", strings.Join(d.Dependencies, ", "))
	}
	if len(d.RegistryDependencies) > 0 {
		fmt.Fprintf(w, "  Registry:     %s\n", strings.Join(d.RegistryDependencies, ", "))
	}
	fmt.Fprintln(w, "  Files:")
	for _, f := range d.Files {
		state := fmt.Sprintf("%d bytes", len(f.Content))
		if f.Content == "" {
			state = "unavailable"
		}
		fmt.Fprintf(w, "    %s (%s)\n", f.Path, state)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
