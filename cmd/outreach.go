package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var outreachName string

var outreachCmd = &cobra.Command{
	Use:   "outreach <phone>",
	Short: "Start a qualification conversation with a new lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Processor.StartOutreach(ctx, args[0], outreachName, time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Printf("Outreach started: %s", lead.Phone)
		if lead.NextFollowUpTime != nil {
			fmt.Printf(" (next follow-up %s)", lead.NextFollowUpTime.Format("2006-01-02 15:04"))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	outreachCmd.Flags().StringVar(&outreachName, "name", "", "lead's name for the opening message")
	rootCmd.AddCommand(outreachCmd)
}
