package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/pkg/types"
)

// writeDelimited writes one table as a delimited text file with a header row.
func writeDelimited(t *types.Table, path string, sep rune) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
			fmt.Sprintf("create %s", path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = sep
	if err := w.Write(t.ColumnNames()); err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
			fmt.Sprintf("write header of %s", path), err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
				fmt.Sprintf("write row of %s", path), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(errors.CategoryExport, errors.CodeWriteFailed,
			fmt.Sprintf("flush %s", path), err)
	}
	return f.Close()
}

// formatCell renders one flattened cell as text. Nulls become empty cells.
func formatCell(v types.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case types.Date:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
