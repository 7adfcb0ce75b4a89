package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage imported statements",
	}

	cmd.AddCommand(listDocumentsCmd())
	cmd.AddCommand(deleteDocumentCmd())

	return cmd
}

func listDocumentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported documents in upload order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			docs, err := store.GetDocuments(ctx)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println(infoStyle.Render("No documents imported. Use 'lens import' to add one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				headerStyle.Render("Seq"),
				headerStyle.Render("ID"),
				headerStyle.Render("Filename"),
				headerStyle.Render("Uploaded"))
			for _, doc := range docs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					doc.Seq, doc.ID, doc.Filename, doc.UploadedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func deleteDocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and everything derived from it",
		Long:  `Remove a document, its transactions, and all flags on those transactions.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cleared, err := store.ClearFlagsForDocument(ctx, args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteDocument(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf("Deleted document %s (%d flags cleared)", args[0], cleared)))
			return nil
		},
	}
}
