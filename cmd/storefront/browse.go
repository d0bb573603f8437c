package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"StoreFront/internal/catalog"
)

var browseOpts struct {
	source   string
	category string
	search   string
	tags     []string
	level    string
	pricing  string
	min, max string
	sort     string
	page     int
	size     int
	facets   bool
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Filter, sort and page through a catalog feed",
	Long: `Loads a catalog feed and prints one page of the derived view.

Examples:
  storefront browse --category electronics --sort price-low
  storefront browse --source https://example.com/courses.json -q react --facets`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		source := browseOpts.source
		if source == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			source = cfg.Catalog.Source
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		return browse(ctx, cmd.OutOrStdout(), catalog.FeedFor(source))
	},
}

func init() {
	f := browseCmd.Flags()
	f.StringVar(&browseOpts.source, "source", "", "feed file or URL (default: catalog.source from config)")
	f.StringVar(&browseOpts.category, "category", "", "category, case-insensitive; \"all\" for any")
	f.StringVarP(&browseOpts.search, "query", "q", "", "search title, category and tags")
	f.StringSliceVar(&browseOpts.tags, "tag", nil, "require any of these tags (repeatable)")
	f.StringVar(&browseOpts.level, "level", "", "course level")
	f.StringVar(&browseOpts.pricing, "pricing", "", "free or paid")
	f.StringVar(&browseOpts.min, "min", "", "minimum price")
	f.StringVar(&browseOpts.max, "max", "", "maximum price")
	f.StringVar(&browseOpts.sort, "sort", string(catalog.SortFeatured), "featured, relevance, price-low, price-high, rating, newest or popularity")
	f.IntVar(&browseOpts.page, "page", 1, "page number")
	f.IntVar(&browseOpts.size, "size", catalog.DefaultPageSize, "page size")
	f.BoolVar(&browseOpts.facets, "facets", false, "also print categories, tags and price bounds")
}

func browse(ctx context.Context, out io.Writer, feed catalog.Feed) error {
	s := catalog.NewStore(feed)
	if _, err := s.Load(ctx); err != nil {
		return err
	}

	p := catalog.FilterPatch{
		Category: &browseOpts.category,
		Search:   &browseOpts.search,
		Level:    &browseOpts.level,
		Pricing:  &browseOpts.pricing,
		Tags:     browseOpts.tags,
	}
	if browseOpts.min != "" || browseOpts.max != "" {
		pr, err := catalog.ParsePriceRange(browseOpts.min, browseOpts.max)
		if err != nil {
			fmt.Fprintln(out, "note:", err)
		}
		p.Price = &pr
	}
	s.SetFilter(p)
	s.SetSort(catalog.ParseSortKey(browseOpts.sort))

	items := s.CurrentPage(browseOpts.page, browseOpts.size)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tRATING\tREVIEWS")
	for _, it := range items {
		price := fmt.Sprintf("%.2f", it.Price)
		if it.Free() {
			price = "free"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%d\n", it.ID, it.Title, it.Category, price, it.Rating, it.ReviewCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	more := ""
	if s.HasMore(browseOpts.page, browseOpts.size) {
		more = fmt.Sprintf(", next: --page %d", browseOpts.page+1)
	}
	fmt.Fprintf(out, "\n%d of %d items (page %d%s)\n", len(items), len(s.View()), browseOpts.page, more)

	if browseOpts.facets {
		b := s.PriceBounds()
		fmt.Fprintf(out, "categories: %s\n", strings.Join(s.Categories(), ", "))
		fmt.Fprintf(out, "tags: %s\n", strings.Join(s.Tags(), ", "))
		fmt.Fprintf(out, "price: %.2f - %.2f\n", b.Min, b.Max)
	}
	return nil
}
