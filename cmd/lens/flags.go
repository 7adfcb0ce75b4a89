package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/spf13/cobra"
)

func flagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Review and resolve transaction flags",
	}

	cmd.AddCommand(listFlagsCmd())
	cmd.AddCommand(resolveFlagCmd())
	cmd.AddCommand(countFlagsCmd())

	return cmd
}

func listFlagsCmd() *cobra.Command {
	var flagType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unresolved flags",
		Long:  `Display open flags ordered by the flagged transaction's date, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ft := model.FlagType(flagType)
			if flagType != "" && !ft.IsValid() {
				return fmt.Errorf("unknown flag type %q (want duplicate, category_mismatch, or suspicious)", flagType)
			}

			flags, err := store.GetUnresolvedFlags(ctx, ft)
			if err != nil {
				return err
			}
			if len(flags) == 0 {
				fmt.Println(infoStyle.Render("No unresolved flags."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("Flag"),
				headerStyle.Render("Transaction"),
				headerStyle.Render("Type"),
				headerStyle.Render("Details"))
			for _, f := range flags {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.TransactionID, f.Type, f.Details)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagType, "type", "", "filter by flag type")
	return cmd
}

func resolveFlagCmd() *cobra.Command {
	var categoryID int

	cmd := &cobra.Command{
		Use:   "resolve <flag-id> <resolution>",
		Short: "Resolve a flag",
		Long: `Record the outcome of reviewing a flag (e.g. removed, kept, fixed,
dismissed). Resolving a category_mismatch flag with --category-id also
recategorizes the transaction and marks the category as manually set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var category *int
			if cmd.Flags().Changed("category-id") {
				category = &categoryID
			}

			if err := eng.ResolveFlag(ctx, args[0], args[1], category); err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Flag %s resolved as %s", args[0], args[1])))
			return nil
		},
	}

	cmd.Flags().IntVar(&categoryID, "category-id", 0, "category to assign when fixing a mismatch")
	return cmd
}

func countFlagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count unresolved flags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := store.CountUnresolvedFlags(ctx)
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		},
	}
}
