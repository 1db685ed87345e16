// Package leadfile parses lead contact lists from CSV and XLSX files for
// bulk outreach.
package leadfile

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-sms/internal/model"
)

// Contact is one row of an imported lead list, phone already normalized.
type Contact struct {
	Phone string
	Name  string
	Email string
}

// Result carries the parsed contacts plus counts of what was dropped.
type Result struct {
	Contacts   []Contact
	BadPhones  int
	Duplicates int
}

// Read parses a lead list. The format is picked by file extension; .xlsx
// goes through the spreadsheet reader, everything else is treated as CSV.
func Read(path string) (*Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := readXLSXRows(path)
		if err != nil {
			return nil, err
		}
		return fromRows(rows), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "leadfile: open")
	}
	defer f.Close()

	rows, err := readCSVRows(f)
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "leadfile: read csv row")
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "leadfile: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("leadfile: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// columnMap locates the phone/name/email columns. Without a recognizable
// header the first column is the phone and the second, if present, the name.
type columnMap struct {
	phone, name, email int
	hasHeader          bool
}

func detectColumns(first []string) columnMap {
	m := columnMap{phone: 0, name: 1, email: -1}
	for i, h := range first {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "phone", "phone_number", "number", "mobile", "cell":
			m.phone = i
			m.hasHeader = true
		case "name", "first_name", "full_name", "lead":
			m.name = i
			m.hasHeader = true
		case "email", "email_address":
			m.email = i
			m.hasHeader = true
		}
	}
	return m
}

func fromRows(rows [][]string) *Result {
	res := &Result{}
	if len(rows) == 0 {
		return res
	}

	cols := detectColumns(rows[0])
	if cols.hasHeader {
		rows = rows[1:]
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		if len(row) == 0 || cols.phone >= len(row) || row[cols.phone] == "" {
			continue
		}

		phone, err := model.NormalizePhone(row[cols.phone])
		if err != nil {
			res.BadPhones++
			continue
		}
		if seen[phone] {
			res.Duplicates++
			continue
		}
		seen[phone] = true

		c := Contact{Phone: phone}
		if cols.name >= 0 && cols.name < len(row) {
			c.Name = row[cols.name]
		}
		if cols.email >= 0 && cols.email < len(row) {
			c.Email = row[cols.email]
		}
		res.Contacts = append(res.Contacts, c)
	}
	return res
}
