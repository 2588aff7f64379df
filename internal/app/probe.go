package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsticker/internal/discovery"
	"newsticker/internal/news"
)

func newProbeCmd(o *rootOptions) *cobra.Command {
	var (
		limit int
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "probe <company>",
		Short: "Run one search and print what the provider returns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := o.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			text := strings.Join(args, " ")
			if !raw {
				text = discovery.BuildQuery(news.Company{Name: text})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Searcher: %s\nQuery   : %s\n", svc.Searcher.Name(), text)

			results, err := svc.Searcher.Search(cmd.Context(), discovery.Query{Text: text, Limit: limit})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "\nNo results.")
				return nil
			}

			for i, r := range results {
				fmt.Fprintf(out, "\n=== ITEM %d ===\n", i+1)
				fmt.Fprintf(out, "Title    : %s\n", r.Title)
				fmt.Fprintf(out, "Link     : %s\n", r.Link)
				fmt.Fprintf(out, "Source   : %s\n", r.Source)
				if r.PublishedAt.IsZero() {
					fmt.Fprintln(out, "Published: (none)")
				} else {
					fmt.Fprintf(out, "Published: %s\n", r.PublishedAt.Format(time.RFC3339))
				}
				fmt.Fprintf(out, "Snippet  : %s\n", truncate(r.Snippet, 200))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 3, "number of results to print")
	cmd.Flags().BoolVar(&raw, "raw", false, "send the arguments as the query instead of the company query")
	return cmd
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
