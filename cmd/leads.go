package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/qualify"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect tracked leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads with qualification status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		leads, err := st.ListAll(ctx)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		registry := model.RegistryFromKeys(cfg.Qualify.RequiredFields, cfg.Qualify.OptionalFields)
		formatLeadsList(os.Stdout, leads, registry, cfg.Qualify.OptionalAttempts)
		return nil
	},
}

var leadsShowCmd = &cobra.Command{
	Use:   "show <phone>",
	Short: "Show one lead's fields and transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		phone, err := model.NormalizePhone(args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		lead, err := st.GetByPhone(ctx, phone)
		if err != nil {
			return err
		}
		if lead == nil {
			return eris.Errorf("no lead for %s", phone)
		}

		registry := model.RegistryFromKeys(cfg.Qualify.RequiredFields, cfg.Qualify.OptionalFields)
		formatLead(os.Stdout, lead, registry, cfg.Qualify.OptionalAttempts)
		return nil
	},
}

func formatLeadsList(w io.Writer, leads []model.Lead, registry *model.FieldRegistry, optionalAttempts int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHONE\tNAME\tPHASE\tSTAGE\tFOLLOW-UPS\tNEXT FOLLOW-UP\tCONNECTED")
	for i := range leads {
		lead := &leads[i]
		phase, _ := qualify.ResolvePhase(lead, registry, optionalAttempts)

		next := "-"
		if lead.NextFollowUpTime != nil {
			next = lead.NextFollowUpTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			lead.Phone,
			orDash(lead.Name),
			phase,
			lead.FollowUpStage,
			lead.FollowUpCount,
			next,
			lead.DateConnected.Format("2006-01-02"),
		)
	}
	tw.Flush()
}

func formatLead(w io.Writer, lead *model.Lead, registry *model.FieldRegistry, optionalAttempts int) {
	phase, _ := qualify.ResolvePhase(lead, registry, optionalAttempts)

	fmt.Fprintf(w, "Phone:        %s\n", lead.Phone)
	fmt.Fprintf(w, "Name:         %s\n", orDash(lead.Name))
	fmt.Fprintf(w, "Phase:        %s\n", phase)
	fmt.Fprintf(w, "Tour ready:   %v\n", lead.TourReady)
	fmt.Fprintln(w)
	for _, f := range registry.Fields {
		fmt.Fprintf(w, "%-26s %s\n", f.Key+":", orDash(lead.Field(f.Key)))
	}
	fmt.Fprintf(w, "%-26s %s\n", "tour_availability:", orDash(lead.TourAvailability))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Follow-ups:   %d (stage %s)\n", lead.FollowUpCount, lead.FollowUpStage)
	if lead.NextFollowUpTime != nil {
		fmt.Fprintf(w, "Next nudge:   %s\n", lead.NextFollowUpTime.Format(time.RFC3339))
	}
	if lead.FollowUpPausedUntil != nil {
		fmt.Fprintf(w, "Paused until: %s\n", lead.FollowUpPausedUntil.Format(time.RFC3339))
	}
	if transcript := lead.Transcript(); transcript != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Transcript:")
		fmt.Fprint(w, transcript)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsShowCmd)
	rootCmd.AddCommand(leadsCmd)
}
