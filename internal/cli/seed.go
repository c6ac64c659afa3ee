package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/todd-reagan/nile-collector/internal/seeder"
)

var (
	seedCount     int
	seedType      string
	seedURL       string
	seedToken     string
	seedRandomize int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Post sample events to a running collector",
	Long: `Generates schema-valid sample events (audit trail, alerts, device
events) and posts them to a collector over the HEC endpoint. Useful for
local development and demos.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 25, "number of events to post")
	seedCmd.Flags().StringVar(&seedType, "type", "", "event type to generate (audit_trail, nile_alerts, end_user_device_events); random when empty")
	seedCmd.Flags().StringVar(&seedURL, "url", "http://localhost:8088", "collector base URL")
	seedCmd.Flags().StringVar(&seedToken, "token", "", "HEC token to authenticate with (required)")
	seedCmd.Flags().Int64Var(&seedRandomize, "seed", 0, "random seed (0 uses the current time)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedToken == "" {
		return fmt.Errorf("--token is required")
	}

	randSeed := seedRandomize
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}

	gen := seeder.NewGenerator(randSeed)
	runner := seeder.NewRunner(gen, seedURL, seedToken)

	if err := runner.Run(seedCount, seedType); err != nil {
		return err
	}

	fmt.Printf("Posted %d events to %s\n", seedCount, seedURL)
	return nil
}
