package tabular

import (
	"encoding/csv"
	"os"

	"eventpulse/internal/services"
)

// ReadCSV parses a comma-separated file. Rows may have varying field counts;
// short rows are padded with nulls during conversion.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "tabular", "read csv", "open file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tabular", "read csv", "malformed csv", err)
	}
	return fromRecords(records, path)
}
