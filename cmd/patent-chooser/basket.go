// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/patent-chooser/internal/basket"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

var basketCmd = &cobra.Command{
	Use:   "basket",
	Short: "Manage the document basket of the active project",
	Long: `Basket keeps the documents selected for a project together with their
rating (1 to 3 stars), dismiss flag, and seen flag. Entries are stored in
SQLite by default or PostgreSQL when basket.driver is postgres.`,
}

// --- list subcommand ---

var basketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List basket entries",
	RunE:  runBasketList,
}

func runBasketList(cmd *cobra.Command, args []string) error {
	honorDismiss, _ := cmd.Flags().GetBool("honor-dismiss")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return withBasket(func(_ context.Context, _ *app, b *basket.Basket) error {
		entries := b.Entries()
		if honorDismiss {
			kept := entries[:0]
			for _, e := range entries {
				if !e.Dismissed() {
					kept = append(kept, e)
				}
			}
			entries = kept
		}
		return formatEntries(b.Project(), entries, jsonOutput)
	})
}

func formatEntries(project string, entries []types.BasketEntry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Printf("Basket of project %q is empty.\n", project)
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-5s  %-7s  %-4s  %-40s  %s\n",
		"Number", "Score", "Dismiss", "Seen", "Title", "Added")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, e := range entries {
		score := ""
		if e.Score != nil {
			score = strings.Repeat("*", *e.Score)
		}
		dismiss := ""
		if e.Dismissed() {
			dismiss = "yes"
		}
		seen := ""
		if e.Seen {
			seen = "yes"
		}
		title := e.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-5s  %-7s  %-4s  %-40s  %s\n",
			e.Number, score, dismiss, seen, title, e.Timestamp.Format(time.DateTime))
	}
	fmt.Fprintf(os.Stdout, "\n%d entries in project %q\n", len(entries), project)
	return nil
}

// --- add / remove subcommands ---

var basketAddCmd = &cobra.Command{
	Use:   "add <number>...",
	Short: "Add publication numbers to the basket",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBasket(func(ctx context.Context, _ *app, b *basket.Basket) error {
			if err := b.InitFromQuery(ctx, strings.Join(args, ",")); err != nil {
				return err
			}
			fmt.Printf("Basket of project %q holds %d entries\n", b.Project(), len(b.Entries()))
			return nil
		})
	},
}

var basketRemoveCmd = &cobra.Command{
	Use:   "remove <number>...",
	Short: "Remove publication numbers from the basket",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBasket(func(ctx context.Context, _ *app, b *basket.Basket) error {
			for _, n := range args {
				if !b.Exists(n) {
					fmt.Fprintf(os.Stderr, "%s is not in the basket\n", n)
					continue
				}
				if err := b.Remove(ctx, n); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

// --- rate / seen subcommands ---

var basketRateCmd = &cobra.Command{
	Use:   "rate <number>",
	Short: "Rate a document with 1 to 3 stars or dismiss it",
	Long: `Rate adds the number to the basket if needed and sets its score and
dismiss flag. Omitting --score clears the score; omitting --dismiss clears
the dismiss flag. Rating resets the seen flag.`,
	Args: cobra.ExactArgs(1),
	RunE: runBasketRate,
}

func runBasketRate(cmd *cobra.Command, args []string) error {
	var score *int
	if cmd.Flags().Changed("score") {
		v, _ := cmd.Flags().GetInt("score")
		score = &v
	}
	var dismiss *bool
	if cmd.Flags().Changed("dismiss") {
		v, _ := cmd.Flags().GetBool("dismiss")
		dismiss = &v
	}

	return withBasket(func(ctx context.Context, a *app, _ *basket.Basket) error {
		e, err := a.session.Rate(ctx, args[0], score, dismiss)
		if err != nil {
			return err
		}
		return formatEntries(a.session.Project(), []types.BasketEntry{e}, false)
	})
}

var basketSeenCmd = &cobra.Command{
	Use:   "seen <number>...",
	Short: "Mark documents as seen",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBasket(func(ctx context.Context, a *app, _ *basket.Basket) error {
			for _, n := range args {
				twice, err := a.session.SeenTwice(n)
				if err != nil {
					return err
				}
				if twice {
					fmt.Fprintf(os.Stderr, "%s was already seen\n", n)
				}
				if err := a.session.MarkSeen(ctx, n); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

// --- review subcommand ---

var basketReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Show the basket documents as a result list",
	Long: `Review looks up every non-dismissed basket number against the primary
provider and prints the result page, the same way a numberlist search does.`,
	RunE: runBasketReview,
}

func runBasketReview(cmd *cobra.Command, args []string) error {
	rng, _ := cmd.Flags().GetString("range")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return withBasket(func(ctx context.Context, a *app, b *basket.Basket) error {
		if b.Empty() {
			fmt.Printf("Basket of project %q is empty.\n", b.Project())
			return nil
		}
		if err := b.Review(ctx, rng); err != nil {
			return err
		}
		return printState(a, a.search.State(), jsonOutput)
	})
}

// --- export / share subcommands ---

var basketExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the basket as CSV, a star listing, or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withBasket(func(_ context.Context, _ *app, b *basket.Basket) error {
			switch format {
			case "csv":
				printLines(b.CSVList())
			case "stars":
				printLines(b.UnicodeStarsList())
			case "yaml":
				return b.ExportYAML(os.Stdout)
			default:
				return fmt.Errorf("unknown format %q: use csv, stars, or yaml", format)
			}
			return nil
		})
	},
}

var basketShareCmd = &cobra.Command{
	Use:   "share",
	Short: "Print the subject and body of a share-by-email message",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewerURL, _ := cmd.Flags().GetString("viewer-url")
		return withBasket(func(_ context.Context, _ *app, b *basket.Basket) error {
			p := b.ShareEmailParams(viewerURL, time.Now())
			fmt.Printf("Subject: %s\n\n%s\n", p.Subject, p.Body)
			return nil
		})
	},
}

// --- history subcommand ---

var basketHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List the queries recorded for the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return withBasket(func(ctx context.Context, a *app, b *basket.Basket) error {
			records, err := a.store.Queries(ctx, b.Project())
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Println("No queries recorded.")
				return nil
			}
			fmt.Fprintf(os.Stdout, "%-19s  %-12s  %-8s  %-9s  %s\n", "Created", "Datasource", "Hits", "Range", "Query")
			fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
			for _, r := range records {
				fmt.Fprintf(os.Stdout, "%-19s  %-12s  %-8d  %-9s  %s\n",
					r.Created.Format(time.DateTime), r.Datasource, r.ResultCount, r.Range, r.Query)
			}
			return nil
		})
	},
}

// withBasket builds the app, activates the configured project, and runs fn
// against its basket.
func withBasket(fn func(ctx context.Context, a *app, b *basket.Basket) error) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	b, err := a.activate(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, a, b)
}

func printLines(lines []string) {
	for _, l := range lines {
		fmt.Println(l)
	}
}

func init() {
	basketListCmd.Flags().Bool("honor-dismiss", false, "hide dismissed entries")
	basketListCmd.Flags().Bool("json", false, "output entries as JSON")

	basketRateCmd.Flags().Int("score", 0, "score from 1 to 3")
	basketRateCmd.Flags().Bool("dismiss", false, "dismiss the document")

	basketReviewCmd.Flags().StringP("range", "r", "", "result range, e.g. 11-20 (default: first page)")
	basketReviewCmd.Flags().Bool("json", false, "output results as JSON")

	basketExportCmd.Flags().String("format", "csv", "export format: csv, stars, yaml")
	basketShareCmd.Flags().String("viewer-url", "http://localhost:8080/", "address the share link points to")
	basketHistoryCmd.Flags().Bool("json", false, "output history as JSON")

	basketCmd.AddCommand(basketListCmd)
	basketCmd.AddCommand(basketAddCmd)
	basketCmd.AddCommand(basketRemoveCmd)
	basketCmd.AddCommand(basketRateCmd)
	basketCmd.AddCommand(basketSeenCmd)
	basketCmd.AddCommand(basketReviewCmd)
	basketCmd.AddCommand(basketExportCmd)
	basketCmd.AddCommand(basketShareCmd)
	basketCmd.AddCommand(basketHistoryCmd)
	rootCmd.AddCommand(basketCmd)
}
