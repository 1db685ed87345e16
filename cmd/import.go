package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-sms/internal/leadfile"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk-start outreach from a CSV or XLSX lead list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		parsed, err := leadfile.Read(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Parsed %d contacts (%d bad phones, %d duplicates)\n",
			len(parsed.Contacts), parsed.BadPhones, parsed.Duplicates)

		if importDryRun {
			for _, c := range parsed.Contacts {
				fmt.Printf("  %s  %s\n", c.Phone, c.Name)
			}
			return nil
		}

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		started, skipped := 0, 0
		for _, c := range parsed.Contacts {
			if _, err := env.Processor.StartOutreach(ctx, c.Phone, c.Name, time.Now().UTC()); err != nil {
				zap.L().Warn("outreach skipped", zap.String("phone", c.Phone), zap.Error(err))
				skipped++
				continue
			}
			started++
		}

		fmt.Printf("Outreach started for %d leads, %d skipped\n", started, skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and list contacts without sending anything")
	rootCmd.AddCommand(importCmd)
}
