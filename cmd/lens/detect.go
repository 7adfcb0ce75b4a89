package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run anomaly detection passes",
		Long: `Detect duplicate transactions and category mismatches. Detection is
idempotent: re-running over unchanged data creates no new flags.`,
	}

	cmd.AddCommand(detectDuplicatesCmd())
	cmd.AddCommand(detectMismatchesCmd())

	return cmd
}

func detectDuplicatesCmd() *cobra.Command {
	var documentID string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Flag duplicate transactions",
		Long: `Find transactions that are financially identical across overlapping
statements, or debit/credit reversal pairs within one statement, and flag
the redundant side.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			created, err := eng.DetectDuplicates(ctx, documentID)
			if err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("%d new duplicate flags", created)))
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "document", "", "limit detection to pairs touching this document")
	return cmd
}

func detectMismatchesCmd() *cobra.Command {
	var documentID string

	cmd := &cobra.Command{
		Use:   "mismatches",
		Short: "Flag category mismatches",
		Long: `Apply description-pattern heuristics (ATM withdrawals, paper checks) to
catch transactions whose category contradicts structural cues.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			eng, store, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			created, err := eng.DetectCategoryMismatches(ctx, documentID)
			if err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("%d new mismatch flags", created)))
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "document", "", "limit detection to this document")
	return cmd
}
