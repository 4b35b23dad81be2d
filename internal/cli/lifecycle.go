package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fudaworks/fuda/task"
)

var claimCmd = &cobra.Command{
	Use:   "claim <prefix> <spirit>",
	Short: "Atomically take a ready (or blocked) task in progress",
	Args:  cobra.ExactArgs(2),
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
		t, err := eng.Claim(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s claimed by %s\n", t.ID[:8], t.AssignedSpiritID)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <prefix> <status>",
	Short: "Move a task through the state machine",
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
		st, err := task.ParseStatus(args[1])
		if err != nil {
			return err
		}
		t, err := eng.SetStatus(cmd.Context(), id, st, cfg.Actor)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", t.ID[:8], t.Status)
		return nil
	},
}

var (
	doneOutput string
	doneNote   string
)

var doneCmd = &cobra.Command{
	Use:   "done <prefix>",
	Short: "Complete a task and unblock its dependents",
	Args:  cobra.ExactArgs(1),
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
		t, err := eng.Complete(cmd.Context(), id, doneOutput, doneNote, cfg.Actor)
		if err != nil {
			return err
		}
		fmt.Printf("%s done\n", t.ID[:8])
		return nil
	},
}

var (
	failContext string
	failNote    string
)

var failCmd = &cobra.Command{
	Use:   "fail <prefix>",
	Short: "Mark a task failed and record the failure context",
	Args:  cobra.ExactArgs(1),
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
		t, err := eng.Fail(cmd.Context(), id, failContext, failNote, cfg.Actor)
		if err != nil {
			return err
		}
		fmt.Printf("%s failed (retry %d)\n", t.ID[:8], t.RetryCount)
		return nil
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <prefix> <spirit>",
	Short: "Assign a task to a spirit without touching its status ('-' clears)",
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
		spirit := args[1]
		if spirit == "-" {
			spirit = ""
		}
		if _, err := eng.Tasks.SetAssignment(id, spirit, cfg.Actor); err != nil {
			return err
		}
		return nil
	},
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Run one readiness propagation pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		promoted, err := eng.Ready.Promote(cfg.Actor)
		if err != nil {
			return err
		}
		for _, id := range promoted {
			fmt.Printf("%s -> ready\n", id[:8])
		}
		fmt.Printf("%d task(s) promoted\n", len(promoted))
		return nil
	},
}

func init() {
	doneCmd.Flags().StringVar(&doneOutput, "output", "", "completion artifact reference")
	doneCmd.Flags().StringVar(&doneNote, "note", "", "handoff note appended to the ledger")
	failCmd.Flags().StringVar(&failContext, "context", "", "failure context")
	failCmd.Flags().StringVar(&failNote, "note", "", "learning note appended to the ledger")
	rootCmd.AddCommand(claimCmd, statusCmd, doneCmd, failCmd, assignCmd, readyCmd)
}
