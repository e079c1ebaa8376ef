package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/wesm/mailaddrs/internal/fileutil"
	"github.com/wesm/mailaddrs/internal/rank"
)

var tsvHeader = []string{"address", "display_name", "total"}

// writeTSV writes a header row and one tab-separated row per record.
// Fields containing tabs, quotes or newlines are quoted.
func writeTSV(path string, records []rank.Ranked) error {
	f, err := fileutil.SecureOpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(tsvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write([]string{r.Address, r.Name, strconv.FormatUint(r.Total, 10)}); err != nil {
			f.Close()
			return fmt.Errorf("write row %s: %w", r.Address, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush: %w", err)
	}
	return f.Close()
}
