package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// session is an open store plus the settings commands read from config.
type session struct {
	store          storage.Store
	close          func() error
	enforceBalance bool
}

type opener func(ctx context.Context) (*session, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Inspect and modify the ledger from the command line",
		SilenceUsage: true,
	}

	root.AddCommand(
		newBalanceCmd(open),
		newListCmd(open),
		newCategoriesCmd(open),
		newAddCmd(open),
		newImportCmd(open),
		newDeleteCmd(open),
	)
	return root
}

// withService opens the store for the duration of fn.
func withService(cmd *cobra.Command, open opener, fn func(*session, *services.TransactionService) error) error {
	s, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s, services.NewTransactionService(s.store))
}

func newBalanceCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print income, outcome and total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(_ *session, txs *services.TransactionService) error {
				b, err := txs.Balance(cmd.Context())
				if err != nil {
					return err
				}
				printBalance(cmd.OutOrStdout(), b)
				return nil
			})
		},
	}
}

func newListCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List transactions oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(_ *session, txs *services.TransactionService) error {
				listing, err := txs.List(cmd.Context())
				if err != nil {
					return err
				}
				printTransactions(cmd.OutOrStdout(), listing.Transactions)
				printBalance(cmd.OutOrStdout(), listing.Balance)
				return nil
			})
		},
	}
}

func newCategoriesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(_ *session, txs *services.TransactionService) error {
				cats, err := txs.ListCategories(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range cats {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Title)
				}
				return nil
			})
		},
	}
}

func newAddCmd(open opener) *cobra.Command {
	var title, typ, value, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a single transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := core.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			v, err := decimal.NewFromString(value)
			if err != nil {
				return core.ErrInvalidValue
			}
			return withService(cmd, open, func(_ *session, txs *services.TransactionService) error {
				created, err := txs.Create(cmd.Context(), core.NewTransaction{Title: title, Type: t, Value: v, Category: category})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", created.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Transaction title")
	cmd.Flags().StringVar(&typ, "type", "", "income or outcome")
	cmd.Flags().StringVarP(&value, "value", "v", "", "Amount, non-negative")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category title, created when missing")
	for _, name := range []string{"title", "type", "value", "category"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newImportCmd(open opener) *cobra.Command {
	var enforce bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import reads rows of title,type,value,category. The first row is a header
and is always ignored. Rows missing a field are skipped; rows with an unknown
type or an unparseable value are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(s *session, txs *services.TransactionService) error {
				opts := services.ImportOptions{EnforceBalance: s.enforceBalance}
				if cmd.Flags().Changed("enforce-balance") {
					opts.EnforceBalance = enforce
				}
				report, err := services.NewImportService(txs).ImportFile(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&enforce, "enforce-balance", false, "Reject outcomes the running total cannot cover")
	return cmd
}

func newDeleteCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(_ *session, txs *services.TransactionService) error {
				if err := txs.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printBalance(w io.Writer, b core.Balance) {
	fmt.Fprintf(w, "income: %s\noutcome: %s\ntotal: %s\n", b.Income.StringFixed(2), b.Outcome.StringFixed(2), b.Total.StringFixed(2))
}

func printTransactions(w io.Writer, ts []core.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tVALUE\tCATEGORY\tTITLE")
	for _, t := range ts {
		category := t.CategoryID
		if t.Category != nil {
			category = t.Category.Title
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.CreatedAt.Format(time.DateOnly), t.Type, t.Value.StringFixed(2), category, t.Title)
	}
	tw.Flush()
}

func printReport(w io.Writer, r services.ImportReport) {
	fmt.Fprintf(w, "imported %d, skipped %d, rejected %d\n", len(r.Transactions), len(r.Skipped), len(r.Rejected))
	for _, e := range r.Skipped {
		fmt.Fprintf(w, "  skipped line %d: %s\n", e.Line, e.Reason)
	}
	for _, e := range r.Rejected {
		fmt.Fprintf(w, "  rejected line %d: %s\n", e.Line, e.Reason)
	}
}
