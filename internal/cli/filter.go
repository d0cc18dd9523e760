package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phonginreallife/leadtriage/db"
	"github.com/phonginreallife/leadtriage/internal/domainfilter"
	"github.com/phonginreallife/leadtriage/services"
)

func newFilterCmd() *cobra.Command {
	var (
		file         string
		filters      []string
		search       string
		groupBy      []string
		undetermined string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter and group leads",
		Long: `Apply search chips to a lead export.

Chips on the same field are ORed, different fields are ANDed.

Examples:
  triagectl filter --file leads.json --filter status=NEW --filter source=Facebook
  triagectl filter --file leads.json --search nguyen --groupby source --groupby status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			leads, err := loadLeads(file)
			if err != nil {
				return err
			}

			chips, err := buildChips(filters, search, groupBy)
			if err != nil {
				return err
			}

			domains := domainfilter.BuildDomainFromFilters(chips)
			filtered := domainfilter.ApplyDomainFilter(leads, domains, services.LeadFields, services.LeadSearchText)
			groups := domainfilter.GroupDataByFieldsWith(filtered, domainfilter.GetGroupByFields(chips),
				services.LeadFields, domainfilter.GroupOptions{Undetermined: undetermined})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"domains":    domains,
					"total":      len(filtered),
					"group_keys": groups.Keys,
					"groups":     groups.Items,
				})
			}
			return printGroups(out, groups, len(filtered))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Lead export (JSON)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter chip as field=value (repeatable)")
	cmd.Flags().StringVar(&search, "search", "", "Free-text search")
	cmd.Flags().StringArrayVar(&groupBy, "groupby", nil, "Group by field (repeatable, nested in order)")
	cmd.Flags().StringVar(&undetermined, "undetermined", domainfilter.UndeterminedLabel, "Group label for empty values")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func buildChips(filters []string, search string, groupBy []string) ([]domainfilter.SearchFilter, error) {
	chips := []domainfilter.SearchFilter{}
	for _, raw := range filters {
		field, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid --filter %q, expected field=value", raw)
		}
		chips = append(chips, domainfilter.SearchFilter{
			Field: strings.TrimSpace(field),
			Value: value,
			Type:  domainfilter.TypeFilter,
		})
	}
	if search != "" {
		chips = append(chips, domainfilter.SearchFilter{
			Field: domainfilter.SearchField,
			Value: search,
			Type:  domainfilter.TypeFilter,
		})
	}
	for _, field := range groupBy {
		chips = append(chips, domainfilter.SearchFilter{Field: field, Type: domainfilter.TypeGroupBy})
	}
	return chips, nil
}

func printGroups(out io.Writer, groups domainfilter.Groups[db.Lead], total int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, key := range groups.Keys {
		items := groups.Items[key]
		fmt.Fprintf(w, "== %s (%d)\n", key, len(items))
		for _, l := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Name, l.Status, l.Source, l.OwnerID)
		}
	}
	fmt.Fprintf(w, "Total: %d\n", total)
	return w.Flush()
}
