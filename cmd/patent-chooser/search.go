// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/patent-chooser/internal/search"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a datasource and show one page of results",
	Long: `Search runs a query against the primary provider or one of the auxiliary
datasources. Auxiliary results are number lists; they are looked up against
the primary provider so every requested number appears on the page, with
placeholders for documents the provider does not know.

The query is recorded in the history of the active project.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	datasource, _ := cmd.Flags().GetString("datasource")
	rng, _ := cmd.Flags().GetString("range")
	flavor, _ := cmd.Flags().GetString("flavor")
	keywords, _ := cmd.Flags().GetString("keywords")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if _, err := a.activate(ctx); err != nil {
		return err
	}

	req := search.Request{
		Query:      strings.Join(args, " "),
		Datasource: datasource,
		Range:      rng,
		Flavor:     flavor,
		Keywords:   keywords,
	}
	if cmd.Flags().Changed("review") {
		review, _ := cmd.Flags().GetBool("review")
		req.ReviewMode = &review
	}
	if err := a.search.PerformSearch(ctx, req); err != nil {
		return err
	}
	return printState(a, a.search.State(), jsonOutput)
}

// printState writes provider messages to stderr and the result page to
// stdout.
func printState(a *app, st search.State, jsonOutput bool) error {
	a.printMessages(os.Stderr)
	if st.Error != "" {
		fmt.Fprintf(os.Stderr, "%s: %s\n", st.Metadata.Datasource, st.Error)
	}
	if jsonOutput {
		return search.FormatJSON(st, os.Stdout)
	}
	search.FormatTable(st, os.Stdout)
	return nil
}

var numberlistCmd = &cobra.Command{
	Use:   "numberlist [numbers...]",
	Short: "Look up a list of publication numbers",
	Long: `Numberlist looks up the given publication numbers against the primary
provider. Arguments may be separated by spaces, commas, or newlines; use
--file to read the list from a file ("-" for stdin). A leading "field="
selects the query field (default pn).`,
	RunE: runNumberlist,
}

func runNumberlist(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	rng, _ := cmd.Flags().GetString("range")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	raw := strings.Join(args, "\n")
	if file != "" {
		b, err := readInput(file)
		if err != nil {
			return err
		}
		raw = string(b)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if _, err := a.activate(ctx); err != nil {
		return err
	}
	if err := a.search.PerformNumberlistSearch(ctx, raw, rng); err != nil {
		return err
	}
	return printState(a, a.search.State(), jsonOutput)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func init() {
	searchCmd.Flags().StringP("datasource", "d", types.DatasourceOPS, "datasource: ops, depatisnet, ifi, ftpro, google, patentsview")
	searchCmd.Flags().StringP("range", "r", "", "result range, e.g. 11-20 (default: first page)")
	searchCmd.Flags().String("flavor", "", "query flavor understood by the datasource (e.g. comfort)")
	searchCmd.Flags().String("keywords", "", "keywords to highlight, comma separated")
	searchCmd.Flags().Bool("review", false, "switch review mode on or off")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	numberlistCmd.Flags().StringP("file", "f", "", "read the number list from a file (- for stdin)")
	numberlistCmd.Flags().StringP("range", "r", "", "result range, e.g. 11-20 (default: first page)")
	numberlistCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(numberlistCmd)
}
