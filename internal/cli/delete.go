package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmReason string

var rmCmd = &cobra.Command{
	Use:   "rm <prefix>",
	Short: "Soft-delete a task, keeping its row and history",
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
		return eng.SoftDelete(cmd.Context(), id, cfg.Actor, rmReason)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Bring a soft-deleted task back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		// Soft-deleted tasks are invisible to prefix resolution, so restore
		// takes the full ID.
		t, err := eng.Restore(cmd.Context(), args[0], cfg.Actor)
		if err != nil {
			return err
		}
		fmt.Printf("%s restored [%s]\n", t.ID[:8], t.Status)
		return nil
	},
}

var purgeAudit bool

var purgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Physically remove a task row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		return eng.HardDelete(cmd.Context(), args[0], purgeAudit, cfg.Actor)
	},
}

func init() {
	rmCmd.Flags().StringVar(&rmReason, "reason", "", "why the task is being removed")
	purgeCmd.Flags().BoolVar(&purgeAudit, "purge-audit", false, "also cascade-remove the task's audit entries")
	rootCmd.AddCommand(rmCmd, restoreCmd, purgeCmd)
}
