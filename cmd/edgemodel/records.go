// cmd/edgemodel/records.go
package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chmenegatti/edgemodel/pkg/edgemodel"
	"github.com/chmenegatti/edgemodel/pkg/schema"
)

func newRecordsCmd(a *app) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Read stored records",
	}

	var (
		limit   int
		orderBy string
		desc    bool
	)
	listCmd := &cobra.Command{
		Use:   "list <model>",
		Short: "List the stored records of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.NewRecord(args[0])
			if err != nil {
				return err
			}

			opts := []edgemodel.QueryOption{edgemodel.Limit(limit)}
			if orderBy != "" {
				opts = append(opts, edgemodel.OrderBy(orderBy, desc))
			}
			records, err := rec.GetWithParams(cmd.Context(), opts...)
			if err != nil {
				return fmt.Errorf("listing %s: %w", args[0], err)
			}
			printRecords(cmd.OutOrStdout(), rec.Model(), records)
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", -1, "Maximum number of records (-1 for all)")
	listCmd.Flags().StringVar(&orderBy, "order-by", "", "Field to sort by")
	listCmd.Flags().BoolVar(&desc, "desc", false, "Sort in descending order")

	getCmd := &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Show the record whose first key equals id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.NewRecord(args[0])
			if err != nil {
				return err
			}
			id, err := parseKey(rec.Model().FirstKey(), args[1])
			if err != nil {
				return err
			}

			res := rec.GetByID(cmd.Context(), id)
			if errors.Is(res.Error, edgemodel.ErrNotFound) {
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "no %s with %s = %s\n", args[0], rec.Model().FirstKey().Name, args[1])
				return nil
			}
			if !res.OK() {
				return res.Error
			}
			printRecords(cmd.OutOrStdout(), rec.Model(), []*edgemodel.Record{rec})
			return nil
		},
	}

	recordsCmd.AddCommand(listCmd, getCmd)
	return recordsCmd
}

// parseKey converts a command-line key into the field's kind.
func parseKey(f *schema.Field, s string) (any, error) {
	switch f.Kind {
	case schema.Integer:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer: %w", f.Name, err)
		}
		return n, nil
	case schema.Real:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number: %w", f.Name, err)
		}
		return x, nil
	default:
		return f.Scan(s)
	}
}

func printRecords(w io.Writer, model *schema.Model, records []*edgemodel.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold)

	fields := model.SelectOrder()
	for i, f := range fields {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		bold.Fprint(tw, f.Name)
	}
	fmt.Fprintln(tw)

	for _, rec := range records {
		for i, f := range fields {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, formatValue(rec.Get(f.Name)))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	fmt.Fprintf(w, "(%d %s)\n", len(records), model.Table)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
