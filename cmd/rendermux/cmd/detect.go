package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rendermux/rendermux/internal/ffmpeg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect FFmpeg and FFprobe binaries",
	Long: `Detect the FFmpeg and FFprobe installation and output the result as JSON.

Use this to verify which binaries rendermux would use and whether the
encoders an export needs are available.

Examples:
  rendermux detect
  rendermux detect --pretty`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().Bool("pretty", false, "pretty-print JSON output")
	detectCmd.Flags().Duration("timeout", 30*time.Second, "detection timeout")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	pretty, _ := cmd.Flags().GetBool("pretty")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	detector := ffmpeg.NewBinaryDetector(
		viper.GetString("ffmpeg.binary_path"),
		viper.GetString("ffmpeg.probe_path"))

	info, err := detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	var output []byte
	if pretty {
		output, err = json.MarshalIndent(info, "", "  ")
	} else {
		output, err = json.Marshal(info)
	}
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	fmt.Println(string(output))
	return nil
}
