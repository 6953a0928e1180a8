package export

import (
	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName = "Sheet1"
	// pinned so identical tables serialize to identical bytes
	pinnedTimestamp = "2000-01-01T00:00:00Z"
)

// Spreadsheet writes t to a single-sheet XLSX workbook: a header row then
// one row per table row. Numeric cells are stored as numbers, other cells
// as strings and nulls are left empty.
func Spreadsheet(t *table.Table) (*Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, t.Width())
	for j, c := range t.Columns {
		header[j] = c.Name
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, &table.ExportError{Msg: "write header", Err: err}
	}
	row := make([]interface{}, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, c := range t.Columns {
			v := c.Values[i]
			switch {
			case v.Null:
				row[j] = nil
			case c.Kind == table.Numeric:
				row[j] = v.Num
			default:
				row[j] = v.Raw
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, &table.ExportError{Msg: "write row", Err: err}
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, &table.ExportError{Msg: "write row", Err: err}
		}
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Created:  pinnedTimestamp,
		Modified: pinnedTimestamp,
		Creator:  "tabloom",
	}); err != nil {
		return nil, &table.ExportError{Msg: "set document properties", Err: err}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &table.ExportError{Msg: "serialize workbook", Err: err}
	}
	return &Artifact{Data: buf.Bytes(), MIMEType: MIMESpreadsheet, Filename: SpreadsheetFilename}, nil
}
