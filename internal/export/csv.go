package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes Header and rows to w.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("writing csv row %q: %w", r.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
