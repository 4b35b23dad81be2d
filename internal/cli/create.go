package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fudaworks/fuda/dep"
	"github.com/fudaworks/fuda/engine"
	"github.com/fudaworks/fuda/task"
)

var (
	createDesc     string
	createWorker   string
	createParent   string
	createGroup    string
	createPriority int
	createDeps     []string
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task (starts blocked; readiness is computed after edges attach)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		wt, err := task.ParseWorkerType(createWorker)
		if err != nil {
			return err
		}

		var edges []engine.EdgeSpec
		for _, spec := range createDeps {
			prefix, typ := spec, dep.TypeBlocks
			if i := strings.IndexByte(spec, ':'); i >= 0 {
				prefix = spec[:i]
				if typ, err = dep.ParseType(spec[i+1:]); err != nil {
					return err
				}
			}
			target, err := eng.Resolve(prefix)
			if err != nil {
				return err
			}
			edges = append(edges, engine.EdgeSpec{DependsOnID: target, Type: typ})
		}

		var parentID string
		if createParent != "" {
			if parentID, err = eng.Resolve(createParent); err != nil {
				return err
			}
		}

		t, err := eng.CreateTask(cmd.Context(), task.CreateInput{
			Title:        args[0],
			Description:  createDesc,
			WorkerType:   wt,
			ParentTaskID: parentID,
			GroupID:      createGroup,
			Priority:     createPriority,
			Actor:        cfg.Actor,
		}, edges)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  [%s]\n", t.ID, t.Title, t.Status)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createDesc, "desc", "d", "", "task description (required)")
	createCmd.Flags().StringVar(&createWorker, "worker", "", "worker type: any, human, agent")
	createCmd.Flags().StringVar(&createParent, "parent", "", "parent task ID prefix")
	createCmd.Flags().StringVar(&createGroup, "group", "", "planning group ID")
	createCmd.Flags().IntVar(&createPriority, "priority", 0, "priority, higher is more urgent")
	createCmd.Flags().StringArrayVar(&createDeps, "dep", nil, "dependency as <prefix>[:<type>], repeatable")
	rootCmd.AddCommand(createCmd)
}
