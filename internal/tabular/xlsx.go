package tabular

import (
	"github.com/xuri/excelize/v2"

	"eventpulse/internal/services"
)

// ReadXLSX parses the first sheet of an Excel workbook.
func ReadXLSX(path string) (*Table, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tabular", "read xlsx", "open workbook", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, services.Wrap(services.ErrValidation, "tabular", "read xlsx", "workbook has no sheets", nil)
	}

	records, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tabular", "read xlsx", "read rows", err)
	}
	return fromRecords(records, path)
}
