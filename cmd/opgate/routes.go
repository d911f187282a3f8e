package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/artpar/opgate/app"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the operation table",
	Long: `Print every operation the server exposes with its method and path.

Examples:
  opgate routes
  opgate routes --base-path /rpc
  opgate routes --json`,
	RunE: runRoutes,
}

var (
	routesBasePath string
	routesJSON     bool
)

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringVar(&routesBasePath, "base-path", "/api", "mount point of the operation routers")
	routesCmd.Flags().BoolVar(&routesJSON, "json", false, "output as JSON")
}

func runRoutes(cmd *cobra.Command, args []string) error {
	// The route table does not depend on the stores; none are opened.
	api, err := app.New(app.Deps{}).Router()
	if err != nil {
		return fmt.Errorf("build operation router: %w", err)
	}

	base := "/" + strings.Trim(routesBasePath, "/")
	if base == "/" {
		base = ""
	}
	routes := api.Routes()
	for i := range routes {
		routes[i].Path = base + routes[i].Path
	}

	out := cmd.OutOrStdout()
	if routesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tKIND\tINPUT\tSUMMARY")
	fmt.Fprintln(w, "------\t----\t----\t-----\t-------")
	for _, r := range routes {
		input := "-"
		if r.HasSchema {
			input = "schema"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Method, r.Path, r.Kind, input, r.Summary)
	}
	return w.Flush()
}
