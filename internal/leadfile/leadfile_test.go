package leadfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSVWithHeader(t *testing.T) {
	path := writeCSV(t, "name,phone,email\nJordan,617-555-1234,jordan@example.com\nSam,(617) 555-5678,\n")

	res, err := Read(path)
	require.NoError(t, err)
	require.Len(t, res.Contacts, 2)

	assert.Equal(t, Contact{Phone: "+16175551234", Name: "Jordan", Email: "jordan@example.com"}, res.Contacts[0])
	assert.Equal(t, Contact{Phone: "+16175555678", Name: "Sam"}, res.Contacts[1])
}

func TestReadCSVHeaderless(t *testing.T) {
	path := writeCSV(t, "6175551234,Jordan\n6175555678,Sam\n")

	res, err := Read(path)
	require.NoError(t, err)
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "+16175551234", res.Contacts[0].Phone)
	assert.Equal(t, "Jordan", res.Contacts[0].Name)
}

func TestReadSkipsBadPhonesAndDuplicates(t *testing.T) {
	path := writeCSV(t, "phone,name\n6175551234,Jordan\nnot-a-number,Sam\n+1 617 555 1234,Jordan Again\n")

	res, err := Read(path)
	require.NoError(t, err)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, 1, res.BadPhones)
	assert.Equal(t, 1, res.Duplicates)
}

func TestReadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contacts")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range []string{"Phone", "Name"} {
		header.AddCell().SetString(h)
	}
	row := sheet.AddRow()
	row.AddCell().SetString("617-555-1234")
	row.AddCell().SetString("Jordan")

	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.Save(path))

	res, err := Read(path)
	require.NoError(t, err)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, Contact{Phone: "+16175551234", Name: "Jordan"}, res.Contacts[0])
}

func TestReadEmptyFile(t *testing.T) {
	path := writeCSV(t, "")

	res, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, res.Contacts)
}
