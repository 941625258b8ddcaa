package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes the scan rows as CSV, one line per scan point.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "toys", "cls", "clsb", "clb", "expected_cls"}); err != nil {
		return err
	}
	for _, row := range rep.Rows {
		record := []string{
			strconv.FormatFloat(row.X, 'g', -1, 64),
			strconv.Itoa(row.Toys),
			strconv.FormatFloat(row.CLs, 'g', -1, 64),
			strconv.FormatFloat(row.CLsb, 'g', -1, 64),
			strconv.FormatFloat(row.CLb, 'g', -1, 64),
			strconv.FormatFloat(row.ExpectedCLs, 'g', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
