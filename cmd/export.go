package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/qualify"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all leads to an xlsx workbook",
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
			return eris.Wrap(err, "export")
		}

		registry := model.RegistryFromKeys(cfg.Qualify.RequiredFields, cfg.Qualify.OptionalFields)
		if err := writeLeadsWorkbook(exportOut, leads, registry, cfg.Qualify.OptionalAttempts); err != nil {
			return err
		}

		fmt.Printf("Exported %d leads to %s\n", len(leads), exportOut)
		return nil
	},
}

func writeLeadsWorkbook(path string, leads []model.Lead, registry *model.FieldRegistry, optionalAttempts int) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Phone", "Name", "Email", "Phase", "Tour Ready"} {
		header.AddCell().Value = h
	}
	for _, spec := range registry.Fields {
		header.AddCell().Value = spec.Key
	}
	for _, h := range []string{"Tour Availability", "Follow-Up Stage", "Follow-Ups Sent", "Connected", "Last Contacted"} {
		header.AddCell().Value = h
	}

	for i := range leads {
		lead := &leads[i]
		phase, _ := qualify.ResolvePhase(lead, registry, optionalAttempts)

		row := sheet.AddRow()
		row.AddCell().Value = lead.Phone
		row.AddCell().Value = lead.Name
		row.AddCell().Value = lead.Email
		row.AddCell().Value = string(phase)
		row.AddCell().SetBool(lead.TourReady)
		for _, spec := range registry.Fields {
			row.AddCell().Value = lead.Field(spec.Key)
		}
		row.AddCell().Value = lead.TourAvailability
		row.AddCell().Value = string(lead.FollowUpStage)
		row.AddCell().SetInt(lead.FollowUpCount)
		row.AddCell().Value = lead.DateConnected.Format("2006-01-02")
		if !lead.LastContacted.IsZero() {
			row.AddCell().Value = lead.LastContacted.Format("2006-01-02 15:04")
		} else {
			row.AddCell().Value = ""
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "leads.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
