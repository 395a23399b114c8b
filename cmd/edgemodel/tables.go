// cmd/edgemodel/tables.go
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newTablesCmd(a *app) *cobra.Command {
	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage the tables of declared models",
	}

	var override bool
	createCmd := &cobra.Command{
		Use:   "create [model...]",
		Short: "Create the tables of the declared models",
		Long:  `Runs CREATE TABLE IF NOT EXISTS for the named models, or for every declared model in file order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := a.selectModels(args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("override") {
				a.cfg.Database.Override = override
			}

			db, err := a.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.CreateTables(cmd.Context(), models...); err != nil {
				return fmt.Errorf("table creation failed: %w", err)
			}

			green := color.New(color.FgGreen, color.Bold)
			out := cmd.OutOrStdout()
			for _, m := range models {
				green.Fprint(out, "✔ ")
				fmt.Fprintf(out, "%s (%s)\n", m.Table, m.Name)
			}
			fmt.Fprintf(out, "%d table(s) ready in %s\n", len(models), db.Path())
			return nil
		},
	}
	createCmd.Flags().BoolVar(&override, "override", false, "Remove the existing database file first")

	sqlCmd := &cobra.Command{
		Use:   "sql [model...]",
		Short: "Print the SQL derived for the declared models",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := a.selectModels(args)
			if err != nil {
				return err
			}
			cyan := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()
			for _, m := range models {
				st := m.Statements()
				cyan.Fprintf(out, "-- %s\n", m.Name)
				for _, stmt := range []string{st.Create, st.Insert, st.Update, st.Delete, st.Exists, st.Select, st.SelectByKey, st.SelectByRowID} {
					if stmt != "" {
						fmt.Fprintf(out, "%s;\n", stmt)
					}
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	tablesCmd.AddCommand(createCmd, sqlCmd)
	return tablesCmd
}
