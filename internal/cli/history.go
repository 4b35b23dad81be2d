package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fudaworks/fuda/audit"
	"github.com/fudaworks/fuda/ledger"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit [prefix]",
	Short: "Show the audit trail, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		var entries []*audit.Entry
		if len(args) == 1 {
			id, err := eng.Resolve(args[0])
			if err != nil {
				return err
			}
			entries, err = eng.Audit.Query(id, auditLimit)
			if err != nil {
				return err
			}
		} else {
			entries, err = eng.Audit.QueryAll(auditLimit)
			if err != nil {
				return err
			}
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  %-8s %-6s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.TaskID[:min(8, len(e.TaskID))], e.Operation)
			if e.Field != "" {
				line += fmt.Sprintf(" %s: %q -> %q", e.Field, e.OldValue, e.NewValue)
			} else if e.NewValue != "" {
				line += " " + e.NewValue
			}
			fmt.Printf("%s  (%s)\n", line, e.Actor)
		}
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Read and write handoff and learning notes",
}

var ledgerLimit int

var ledgerListCmd = &cobra.Command{
	Use:   "list <prefix>",
	Short: "List a task's ledger entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		id, err := eng.Resolve(args[0])
		if err != nil {
			return err
		}
		entries, err := eng.Ledger.List(id, ledgerLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  [%s] %s  (%s)\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Body, e.Author)
		}
		return nil
	},
}

var ledgerKind string

var ledgerAddCmd = &cobra.Command{
	Use:   "add <prefix> <body>",
	Short: "Append a note to a task's ledger",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		id, err := eng.Resolve(args[0])
		if err != nil {
			return err
		}
		_, err = eng.Ledger.Append(id, ledger.Kind(ledgerKind), args[1], cfg.Actor)
		return err
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "cap the number of entries")
	ledgerListCmd.Flags().IntVar(&ledgerLimit, "limit", 0, "cap the number of entries")
	ledgerAddCmd.Flags().StringVar(&ledgerKind, "kind", string(ledger.KindLearning), "entry kind: handoff or learning")
	ledgerCmd.AddCommand(ledgerListCmd, ledgerAddCmd)
	rootCmd.AddCommand(auditCmd, ledgerCmd)
}
