package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-sms/internal/model"
)

func sampleLeads() []model.Lead {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	qualified := model.NewLead("+16175551234", now)
	qualified.Name = "Jordan"
	qualified.MoveInDate = "2026-09-01"
	qualified.Price = "2800"
	qualified.Beds = "2"
	qualified.Baths = "1"
	qualified.Location = "Allston"
	qualified.Amenities = "laundry"
	qualified.TourAvailability = "Saturday"
	qualified.TourReady = true

	fresh := model.NewLead("+16175555678", now)

	return []model.Lead{*qualified, *fresh}
}

func TestWriteLeadsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	registry := model.DefaultFieldRegistry()

	require.NoError(t, writeLeadsWorkbook(path, sampleLeads(), registry, 2))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Leads", sheet.Name)
	require.Len(t, sheet.Rows, 3) // header + two leads

	header := sheet.Rows[0]
	assert.Equal(t, "Phone", header.Cells[0].String())

	first := sheet.Rows[1]
	assert.Equal(t, "+16175551234", first.Cells[0].String())
	assert.Equal(t, "Jordan", first.Cells[1].String())
	assert.Equal(t, string(model.PhaseComplete), first.Cells[3].String())

	second := sheet.Rows[2]
	assert.Equal(t, "+16175555678", second.Cells[0].String())
	assert.Equal(t, string(model.PhaseQualification), second.Cells[3].String())
}

func TestFormatLeadsList(t *testing.T) {
	var buf bytes.Buffer
	formatLeadsList(&buf, sampleLeads(), model.DefaultFieldRegistry(), 2)

	out := buf.String()
	assert.Contains(t, out, "PHONE")
	assert.Contains(t, out, "+16175551234")
	assert.Contains(t, out, string(model.PhaseComplete))
	assert.Contains(t, out, string(model.PhaseQualification))
}

func TestFormatLead(t *testing.T) {
	leads := sampleLeads()
	lead := &leads[0]
	lead.AppendMessage("lead", "hi there", time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	formatLead(&buf, lead, model.DefaultFieldRegistry(), 2)

	out := buf.String()
	assert.Contains(t, out, "+16175551234")
	assert.Contains(t, out, "move_in_date:")
	assert.Contains(t, out, "2026-09-01")
	assert.Contains(t, out, "hi there")
}
