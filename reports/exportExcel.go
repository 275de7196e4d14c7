package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Report"

// IsSpreadsheet reports whether path should be written with ExportXLSX.
func IsSpreadsheet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// DetailsPath is the text file that carries detail rows next to a spreadsheet.
func DetailsPath(xlsxPath string) string {
	return strings.TrimSuffix(xlsxPath, filepath.Ext(xlsxPath)) + ".txt"
}

// ExportXLSX writes the report table to filename and the detail rows to
// DetailsPath(filename).
func ExportXLSX(results []Result, filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue(reportSheet, "A1", "Query")
	f.SetCellValue(reportSheet, "B1", "Time (s)")
	f.SetCellValue(reportSheet, "C1", "Status")
	f.SetCellValue(reportSheet, "D1", "Rows")

	// Add data
	for i, r := range results {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(reportSheet, "A"+row, r.Name)
		f.SetCellValue(reportSheet, "B"+row, r.Duration.Seconds())
		f.SetCellValue(reportSheet, "C"+row, r.Status)
		f.SetCellValue(reportSheet, "D"+row, len(r.Output.Rows))
	}
	verdict := fmt.Sprint(len(results) + 3)
	if AllPassed(results) {
		f.SetCellValue(reportSheet, "A"+verdict, "all queries passed the performance limit")
	} else {
		f.SetCellValue(reportSheet, "A"+verdict, "some queries failed performance or execution checks")
	}
	if err := f.SetColWidth(reportSheet, "A", "A", 40); err != nil {
		return err
	}

	if err := f.SaveAs(filename); err != nil {
		return err
	}

	details, err := os.Create(DetailsPath(filename))
	if err != nil {
		return err
	}
	defer details.Close()
	return WriteDetails(details, results)
}
