package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fudaworks/fuda/dep"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges between tasks",
}

var depType string

var depAddCmd = &cobra.Command{
	Use:   "add <prefix> <depends-on-prefix>",
	Short: "Add or replace a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		from, err := eng.Resolve(args[0])
		if err != nil {
			return err
		}
		to, err := eng.Resolve(args[1])
		if err != nil {
			return err
		}
		typ, err := dep.ParseType(depType)
		if err != nil {
			return err
		}
		return eng.AddDependency(cmd.Context(), from, to, typ, cfg.Actor)
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <prefix> <depends-on-prefix>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		from, err := eng.Resolve(args[0])
		if err != nil {
			return err
		}
		to, err := eng.Resolve(args[1])
		if err != nil {
			return err
		}
		return eng.RemoveDependency(cmd.Context(), from, to, cfg.Actor)
	},
}

var treeDepth int

var depTreeCmd = &cobra.Command{
	Use:   "tree <prefix>",
	Short: "Print the dependency subgraph under a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		root, err := eng.Resolve(args[0])
		if err != nil {
			return err
		}
		tree, err := eng.Deps.Expand(root, treeDepth)
		if err != nil {
			return err
		}
		printTree(tree.Root, 0)
		return nil
	},
}

func printTree(n *dep.TreeNode, indent int) {
	label := n.ID[:min(8, len(n.ID))]
	if n.EdgeType != "" {
		label += " (" + string(n.EdgeType) + ")"
	}
	if n.Circular {
		label += " [circular]"
	}
	fmt.Printf("%s%s\n", strings.Repeat("  ", indent), label)
	for _, c := range n.Children {
		printTree(c, indent+1)
	}
}

func init() {
	depAddCmd.Flags().StringVar(&depType, "type", string(dep.TypeBlocks),
		"edge type: blocks, parent-child, related, discovered-from")
	depTreeCmd.Flags().IntVar(&treeDepth, "depth", 5, "maximum expansion depth")
	depCmd.AddCommand(depAddCmd, depRmCmd, depTreeCmd)
	rootCmd.AddCommand(depCmd)
}
