package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/salescope/internal/catalog"
)

// CatalogListing is the JSON view of the dimension and metric catalogs.
type CatalogListing struct {
	Dimensions []DimensionInfo `json:"dimensions"`
	Intervals  []string        `json:"intervals"`
	Metrics    []MetricInfo    `json:"metrics"`
}

// DimensionInfo describes one dimension for catalog output.
type DimensionInfo struct {
	Name         string   `json:"name"`
	GroupFields  []string `json:"group_fields"`
	FilterFields []string `json:"filter_fields"`
}

// MetricInfo describes one metric for catalog output.
type MetricInfo struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Diffable bool   `json:"diffable"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List available dimensions, intervals and metrics",
		Long: `List the dimensions, time intervals and metrics a request may use.

Diffable metrics additionally accept _diff and _diff_percent forms
when the request carries a comparison date range.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd)
		},
	}

	return cmd
}

func runCatalog(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	listing := CatalogListing{Intervals: catalog.Granularities()}
	for _, d := range catalog.Dimensions() {
		fields := make([]string, 0, len(d.FilterFields))
		for f := range d.FilterFields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		listing.Dimensions = append(listing.Dimensions, DimensionInfo{
			Name:         d.Name,
			GroupFields:  d.KeyFields,
			FilterFields: fields,
		})
	}
	for _, m := range catalog.Metrics() {
		listing.Metrics = append(listing.Metrics, MetricInfo{
			Name:     m.Name,
			Domain:   string(m.Domain),
			Diffable: m.Diffable(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(listing)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "Dimensions:")
	for _, d := range listing.Dimensions {
		fmt.Fprintf(w, "  %-12s group by %s; filter on %s\n",
			d.Name, strings.Join(d.GroupFields, ", "), strings.Join(d.FilterFields, ", "))
	}
	fmt.Fprintf(w, "\nIntervals:\n  %s\n", strings.Join(listing.Intervals, ", "))
	fmt.Fprintln(w, "\nMetrics:")
	for _, m := range listing.Metrics {
		suffix := ""
		if m.Diffable {
			suffix = " (diffable)"
		}
		fmt.Fprintf(w, "  %-22s %s%s\n", m.Name, m.Domain, suffix)
	}
	return nil
}
