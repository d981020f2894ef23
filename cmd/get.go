package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockdesk/internal/cli"
	"stockdesk/internal/resources"
	"stockdesk/pkg/listing"
)

// Get-specific flags
var (
	getPage     int
	getPageSize int
	getSearch   string
	getFilters  map[string]string
	getAll      bool
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <kind> [id]",
	Short: "List a collection or show one record",
	Long: `List a collection of the stock API, or show a single record by id.

Kinds: companies, warehouses, products, users, roles, movements. Singular
names and short aliases (co, wh, prod, mv) work too.

Examples:
  stockdesk get products
  stockdesk get products --search bolt --page 2
  stockdesk get products --all -o json
  stockdesk get wh 3 -o yaml
  stockdesk get movements --filter product=12 -o 'go-template={{.kind}} {{.quantity}}'`,
	Args: cobra.RangeArgs(1, 2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return resources.KindNames(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().IntVar(&getPage, "page", 0, "Page to fetch")
	getCmd.Flags().IntVar(&getPageSize, "page-size", 0, "Records per page")
	getCmd.Flags().StringVarP(&getSearch, "search", "s", "", "Free-text search")
	getCmd.Flags().StringToStringVar(&getFilters, "filter", nil, "Field filters as key=value")
	getCmd.Flags().BoolVar(&getAll, "all", false, "Follow next links and print every page")
}

func runGet(cmd *cobra.Command, args []string) error {
	kind, err := resources.LookupKind(args[0])
	if err != nil {
		return err
	}

	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	printer, err := newPrinter(cmd, application)
	if err != nil {
		return err
	}
	collection := resources.NewCollection[resources.Record](application.Services().Client, kind.Path)

	if len(args) == 2 {
		var record *resources.Record
		err := cli.WithSpinner(rootFlags.Quiet || printer.Structured(), fmt.Sprintf("Fetching %s %s...", kind.Name, args[1]), func() error {
			var getErr error
			record, getErr = collection.Get(cmd.Context(), resources.ID(args[1]))
			return getErr
		})
		if err != nil {
			return commandError(application, err)
		}
		return printer.PrintRecord(*record)
	}

	opts := resources.ListOptions{
		Page:     getPage,
		PageSize: getPageSize,
		Search:   getSearch,
		Filters:  getFilters,
	}
	var page listing.Envelope[resources.Record]
	err = cli.WithSpinner(rootFlags.Quiet || printer.Structured(), fmt.Sprintf("Fetching %s...", kind.Name), func() error {
		var listErr error
		page, listErr = collection.List(cmd.Context(), opts)
		if listErr != nil || !getAll {
			return listErr
		}
		page, listErr = fetchRemaining(cmd, collection, page)
		return listErr
	})
	if err != nil {
		return commandError(application, err)
	}
	return printer.PrintList(kind, page)
}

// fetchRemaining follows next links and merges every page into first.
func fetchRemaining(cmd *cobra.Command, collection *resources.Collection[resources.Record], first listing.Envelope[resources.Record]) (listing.Envelope[resources.Record], error) {
	merged := first
	current := first
	for current.HasMore() {
		next, err := collection.Next(cmd.Context(), current)
		if err != nil {
			return listing.Envelope[resources.Record]{}, err
		}
		merged.Results = append(merged.Results, next.Results...)
		current = next
	}
	merged.Next = nil
	return merged, nil
}
