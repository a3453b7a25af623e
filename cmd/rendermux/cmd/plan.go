package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rendermux/rendermux/internal/export"
	"github.com/spf13/cobra"
)

// planCmd represents the plan command.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the frame shard assignment for a distributed render",
	Long: `Show how a render's frames would be partitioned across workers.

Each worker receives a contiguous half-open frame range; when the frame
count does not divide evenly, earlier workers absorb one extra frame each.

Examples:
  rendermux plan --total-frames 1200 --workers 4
  rendermux plan --total-frames 101 --workers 2 --json`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Int("total-frames", 0, "total frames in the render (required)")
	planCmd.Flags().Int("workers", 1, "number of workers")
	planCmd.Flags().Bool("json", false, "output the plan as JSON")

	_ = planCmd.MarkFlagRequired("total-frames")
}

// shardAssignment is one worker's share of the render.
type shardAssignment struct {
	Worker int `json:"worker"`
	export.Shard
	Frames int `json:"frames"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	totalFrames, _ := cmd.Flags().GetInt("total-frames")
	workers, _ := cmd.Flags().GetInt("workers")
	asJSON, _ := cmd.Flags().GetBool("json")

	assignments := make([]shardAssignment, 0, workers)
	for w := 0; w < workers; w++ {
		shard, err := export.PlanShard(totalFrames, w, workers)
		if err != nil {
			return err
		}
		assignments = append(assignments, shardAssignment{
			Worker: w,
			Shard:  shard,
			Frames: shard.Frames(),
		})
	}

	if asJSON {
		out, err := json.MarshalIndent(assignments, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling plan: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tRANGE\tFRAMES")
	for _, a := range assignments {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", a.Worker, a.Shard, a.Frames)
	}
	return tw.Flush()
}
