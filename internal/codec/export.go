package codec

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"scale_tracker/internal/sales"
)

// Export file names and the XLSX sheet name.
const (
	ExportSheet  = "Scale Records"
	ExportXLSX   = "scale_records.xlsx"
	ExportCSV    = "scale_records.csv"
	EventSale    = "Sale"
	EventRepair  = "Repair"
	fieldEvent   = "eventType"
	defaultSheet = "Sheet1"
)

// ExportColumns is the column order of both export formats.
var ExportColumns = []string{
	sales.FieldSerialNumber, sales.FieldCompanyName, sales.FieldAgentName,
	sales.FieldCustomerName, sales.FieldTelephone, fieldEvent,
	sales.FieldIssueDescription, sales.FieldSendDescription,
	sales.FieldStatus, sales.FieldDate,
}

// ExportRows flattens sales and repairs into one table, sales first.
// Fields that do not apply to a row's event type are blank.
func ExportRows(snap sales.Snapshot) [][]string {
	rows := make([][]string, 0, len(snap.Sales)+len(snap.Repairs))
	for _, s := range snap.Sales {
		rows = append(rows, []string{
			s.SerialNumber, s.CompanyName, s.AgentName, s.CustomerName, s.Telephone,
			EventSale, "", "", s.Status, s.Date,
		})
	}
	for _, r := range snap.Repairs {
		rows = append(rows, []string{
			r.SerialNumber, r.CompanyName, "", "", "",
			EventRepair, r.IssueDescription, r.SendDescription, r.Status, r.Date,
		})
	}
	return rows
}

// WriteCSV writes the flattened export as CSV with a header row.
func WriteCSV(w io.Writer, snap sales.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(ExportRows(snap)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the flattened export as a workbook with a single
// "Scale Records" sheet.
func WriteXLSX(w io.Writer, snap sales.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, ExportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, ExportColumns); err != nil {
		return err
	}
	for i, row := range ExportRows(snap) {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("row %d: %w", n, err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
		return fmt.Errorf("row %d: %w", n, err)
	}
	return nil
}
