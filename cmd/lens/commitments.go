package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/recurrence"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func commitmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commitments",
		Short: "Analyze recurring financial commitments",
		Long: `Infer recurring commitments (subscriptions, bills) from transaction
history, and manage merchant statuses, overrides, and identities.`,
	}

	cmd.AddCommand(listCommitmentsCmd())
	cmd.AddCommand(statusCommitmentCmd())
	cmd.AddCommand(overrideCommitmentCmd())
	cmd.AddCommand(mergeMerchantsCmd())
	cmd.AddCommand(splitMerchantCmd())
	cmd.AddCommand(excludeTransactionCmd())
	cmd.AddCommand(includeTransactionCmd())

	return cmd
}

func listCommitmentsCmd() *cobra.Command {
	var sortField string
	var ascending bool
	var showEnded bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inferred commitments",
		Long:  `Recompute and display recurring commitment groups from the current transaction set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := eng.CommitmentGroups(ctx, time.Now())
			if err != nil {
				return fmt.Errorf("failed to compute commitments: %w", err)
			}

			if sortField != "" {
				field, ok := recurrence.ParseSortField(sortField)
				if !ok {
					return fmt.Errorf("unknown sort field %q (want merchant, frequency, avg, monthly, occurrences, last, or total)", sortField)
				}
				recurrence.SortGroups(result.Active, field, !ascending)
			}

			if len(result.Active) == 0 && len(result.Ended) == 0 {
				fmt.Println(infoStyle.Render("No recurring commitments found."))
				return nil
			}

			printGroups(result.Active)

			if showEnded && len(result.Ended) > 0 {
				fmt.Println()
				fmt.Println(headerStyle.Render("Ended commitments"))
				printEnded(result.Ended)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortField, "sort", "", "sort field (merchant, frequency, avg, monthly, occurrences, last, total)")
	cmd.Flags().BoolVar(&ascending, "asc", false, "sort ascending instead of descending")
	cmd.Flags().BoolVar(&showEnded, "ended", false, "also show commitments marked ended")

	return cmd
}

func printGroups(groups []model.CommitmentGroup) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Merchant"),
		headerStyle.Render("Frequency"),
		headerStyle.Render("Occurrences"),
		headerStyle.Render("Avg"),
		headerStyle.Render("Monthly"),
		headerStyle.Render("Last seen"))

	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			g.MerchantName,
			g.Frequency,
			g.Occurrences,
			formatMoney(g.AvgAmount),
			formatMoney(g.EstimatedMonthlyAmount),
			g.LastDate.Format("2006-01-02"))
	}
}

func printEnded(groups []model.EndedCommitment) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	for _, g := range groups {
		activity := ""
		if g.UnexpectedActivity {
			activity = warningStyle.Render("charging after end date!")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\tended %s\t%s\n",
			g.MerchantName,
			g.Frequency,
			formatMoney(g.EstimatedMonthlyAmount),
			g.StatusChangedAt.Format("2006-01-02"),
			activity)
	}
}

func statusCommitmentCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "status <merchant> <active|ended|not_recurring>",
		Short: "Set a merchant's commitment status",
		Long: `Mark a merchant as ended or not recurring, or return it to active.
Setting active deletes the stored status.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := eng.SetCommitmentStatus(ctx, args[0], args[1], notes); err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Status of %q set to %s", args[0], args[1])))
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "optional notes recorded with the status")
	return cmd
}

func overrideCommitmentCmd() *cobra.Command {
	var frequency string
	var monthlyAmount string
	var clear bool

	cmd := &cobra.Command{
		Use:   "override <merchant>",
		Short: "Override a merchant's computed frequency or monthly amount",
		Long: `Store advisory replacements for the computed frequency label and monthly
estimate. Overrides affect display only; recurrence acceptance always runs
on computed values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if clear {
				if err := eng.ClearCommitmentOverride(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println(infoStyle.Render(fmt.Sprintf("Override for %q cleared", args[0])))
				return nil
			}

			override := model.CommitmentOverride{MerchantKey: args[0]}
			if frequency != "" {
				f := model.Frequency(strings.ToLower(frequency))
				if !f.IsValid() {
					return fmt.Errorf("unknown frequency %q", frequency)
				}
				override.Frequency = f
			}
			if monthlyAmount != "" {
				amount, err := decimal.NewFromString(monthlyAmount)
				if err != nil {
					return fmt.Errorf("invalid monthly amount %q: %w", monthlyAmount, err)
				}
				override.MonthlyAmountOverride = &amount
			}
			if override.Frequency == "" && override.MonthlyAmountOverride == nil {
				return fmt.Errorf("nothing to override: pass --frequency and/or --monthly-amount")
			}

			if err := eng.SetCommitmentOverride(ctx, override); err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Override for %q saved", args[0])))
			return nil
		},
	}

	cmd.Flags().StringVar(&frequency, "frequency", "", "frequency label override")
	cmd.Flags().StringVar(&monthlyAmount, "monthly-amount", "", "monthly amount override")
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the override instead")
	return cmd
}

func mergeMerchantsCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "merge --into <target> <merchant>...",
		Short: "Merge merchant identities",
		Long: `Rewrite the normalized merchant on every transaction matching any of the
given names to the target name. Status and override rows keyed by a merged
source name are removed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := eng.MergeMerchants(ctx, args, target)
			if err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Merged %d transactions into %q", count, target)))
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "into", "", "target merchant name (required)")
	_ = cmd.MarkFlagRequired("into")
	return cmd
}

func splitMerchantCmd() *cobra.Command {
	var newName string

	cmd := &cobra.Command{
		Use:   "split --name <new-name> <transaction-id>...",
		Short: "Split transactions out to a new merchant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := eng.SplitMerchant(ctx, args, newName)
			if err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Moved %d transactions to %q", count, newName)))
			return nil
		},
	}

	cmd.Flags().StringVar(&newName, "name", "", "new merchant name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func excludeTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <transaction-id>",
		Short: "Pull one transaction out of recurrence grouping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := eng.ExcludeTransaction(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Transaction %s excluded from grouping", args[0])))
			return nil
		},
	}
}

func includeTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "include <transaction-id>",
		Short: "Return a transaction to recurrence grouping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := eng.IncludeTransaction(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Transaction %s included in grouping", args[0])))
			return nil
		},
	}
}
