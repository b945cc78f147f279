package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch and print the current alarm state",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, _, err := setup()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		alarmState, err := svc.Refresh(ctx)
		if err != nil {
			return err
		}
		health, attr := svc.Health()

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"state":      alarmState,
				"target":     svc.Target(),
				"health":     health,
				"attributes": attr,
			})
		}

		fmt.Printf("Alarm state:  %s\n", alarmState)
		fmt.Printf("Target state: %s\n", svc.Target())
		fmt.Printf("Health:       %s\n", health)
		for k, v := range attr {
			fmt.Printf("  %s: %v\n", k, v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
