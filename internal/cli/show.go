package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <prefix>",
	Short: "Show one task with its outgoing dependency edges",
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
		t, err := eng.Tasks.Get(id)
		if err != nil {
			return err
		}
		edges, err := eng.Deps.ListAll(id)
		if err != nil {
			return err
		}

		out := struct {
			Task  any `json:"task"`
			Edges any `json:"edges,omitempty"`
		}{Task: t, Edges: edges}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <prefix>",
	Short: "Resolve an ID prefix to exactly one task ID",
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
		fmt.Println(id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(resolveCmd)
}
