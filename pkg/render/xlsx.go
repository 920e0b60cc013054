package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yumyai/goenrich/pkg/goterms"
)

// CombinedRow is one line of the aggregated spreadsheet: a filtered term
// tagged with the cluster (or lineage) that found it.
type CombinedRow struct {
	Cluster string
	Term    goterms.Term
}

var xlsxHeader = []string{"lineage/cluster", "source", "native", "name", "p_value", "significant"}

// WriteCombinedXLSX writes the aggregated term table to a workbook with a
// single "GO" sheet.
func WriteCombinedXLSX(path string, rows []CombinedRow) error {

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "GO"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name GO sheet: %w", err)
	}

	for c, name := range xlsxHeader {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for r, row := range rows {
		values := []interface{}{
			row.Cluster,
			row.Term.Source,
			row.Term.Native,
			row.Term.Name,
			row.Term.PValue,
			row.Term.Significant,
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
