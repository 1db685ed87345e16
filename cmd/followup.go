package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-sms/internal/qualify"
)

var followupInterval time.Duration

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Send due follow-up messages",
	Long:  "Runs one batch of due follow-ups and exits. With --interval it keeps running batches on a timer, for use as a lightweight worker.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runBatch := func() error {
			res, err := env.Scheduler.ProcessDue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			printRunResult(res)
			return nil
		}

		if followupInterval <= 0 {
			return runBatch()
		}

		ticker := time.NewTicker(followupInterval)
		defer ticker.Stop()

		if err := runBatch(); err != nil {
			zap.L().Error("follow-up batch failed", zap.Error(err))
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := runBatch(); err != nil {
					zap.L().Error("follow-up batch failed", zap.Error(err))
				}
			}
		}
	},
}

func printRunResult(res qualify.RunResult) {
	zap.L().Info("follow-up run finished",
		zap.Int("due", res.Due),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("exhausted", res.Exhausted))
}

func init() {
	followupCmd.Flags().DurationVar(&followupInterval, "interval", 0, "repeat batches at this interval (e.g. 15m); 0 runs once")
	rootCmd.AddCommand(followupCmd)
}
