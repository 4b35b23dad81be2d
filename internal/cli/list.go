package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fudaworks/fuda/task"
)

var (
	listStatus   string
	listAssignee string
	listGroup    string
	listDeleted  bool
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, highest priority first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		filter := task.Filter{
			AssignedTo:     listAssignee,
			GroupID:        listGroup,
			IncludeDeleted: listDeleted,
			Limit:          listLimit,
		}
		if listStatus != "" {
			st, err := task.ParseStatus(listStatus)
			if err != nil {
				return err
			}
			filter.Status = &st
		}

		tasks, err := eng.Tasks.List(filter)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			marker := " "
			if t.Deleted() {
				marker = "D"
			}
			assignee := t.AssignedSpiritID
			if assignee == "" {
				assignee = "-"
			}
			fmt.Printf("%s %-8s  p%-3d %-12s %-12s %s\n",
				marker, t.ID[:8], t.Priority, t.Status, assignee, t.Title)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listAssignee, "assignee", "", "filter by assigned spirit")
	listCmd.Flags().StringVar(&listGroup, "group", "", "filter by planning group")
	listCmd.Flags().BoolVar(&listDeleted, "deleted", false, "include soft-deleted tasks")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "cap the number of rows")
	rootCmd.AddCommand(listCmd)
}
