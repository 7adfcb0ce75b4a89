package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// importBatchSize bounds how many rows go into one insert transaction.
const importBatchSize = 200

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>...",
		Short: "Import parsed transactions",
		Long: `Load parsed-transaction CSV files (the output of the upstream statement
extractor) into the database. Each file is registered as one document.

Expected columns:
  date, description, amount, direction, merchant, category, class, manual`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for _, path := range args {
				txns, err := readTransactionsCSV(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				if len(txns) == 0 {
					fmt.Println(warningStyle.Render(fmt.Sprintf("%s: no transactions, skipping", path)))
					continue
				}

				doc := &model.Document{
					ID:       uuid.NewString(),
					Filename: filepath.Base(path),
				}
				if err := store.SaveDocument(ctx, doc); err != nil {
					return err
				}

				for i := range txns {
					txns[i].DocumentID = doc.ID
				}

				bar := progressbar.Default(int64(len(txns)), filepath.Base(path))
				for start := 0; start < len(txns); start += importBatchSize {
					end := start + importBatchSize
					if end > len(txns) {
						end = len(txns)
					}
					if err := store.SaveTransactions(ctx, txns[start:end]); err != nil {
						return err
					}
					_ = bar.Add(end - start)
				}
				_ = bar.Finish()

				fmt.Println(infoStyle.Render(fmt.Sprintf("Imported %d transactions from %s (document %s)",
					len(txns), path, doc.ID)))
			}
			return nil
		},
	}
}

// readTransactionsCSV parses one extractor output file. Rows that fail
// validation are reported and skipped; a malformed row never aborts the
// import.
func readTransactionsCSV(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "description", "amount", "direction"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var txns []model.Transaction
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("%s:%d: %v, skipping", path, line, err)))
			continue
		}

		txn, err := parseTransactionRecord(record, cols)
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("%s:%d: %v, skipping", path, line, err)))
			continue
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseTransactionRecord(record []string, cols map[string]int) (model.Transaction, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := time.Parse("2006-01-02", field("date"))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("bad date %q", field("date"))
	}

	amount, err := decimal.NewFromString(field("amount"))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("bad amount %q", field("amount"))
	}

	txn := model.Transaction{
		ID:                 uuid.NewString(),
		Date:               date,
		Description:        field("description"),
		NormalizedMerchant: field("merchant"),
		Amount:             amount,
		Direction:          model.Direction(strings.ToLower(field("direction"))),
		CategoryName:       field("category"),
		Class:              model.TransactionClass(strings.ToLower(field("class"))),
		ManualCategory:     field("manual") == "true" || field("manual") == "1",
	}
	if err := txn.Validate(); err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}
