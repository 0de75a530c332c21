package codec

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"scale_tracker/internal/sales"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM drops a leading UTF-8 byte order mark, as written by Excel.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// ReadSalesCSV reads a sale upload. The first non-blank line is the
// header; columns named like a sale field are read, others are ignored.
// Blank lines are skipped.
func ReadSalesCSV(r io.Reader) ([]sales.Row, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		columns map[int]string
		rows    []sales.Row
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", sales.ErrCodec, err)
		}
		if isBlank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)

		if columns == nil {
			columns = headerColumns(rec)
			if len(columns) == 0 {
				return nil, fmt.Errorf("%w: line %d: header has no sale columns", sales.ErrCodec, line)
			}
			continue
		}

		fields := make(map[string]string, len(columns))
		for i, name := range columns {
			if i < len(rec) {
				fields[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, sales.Row{Line: line, Fields: fields})
	}

	if columns == nil {
		return nil, fmt.Errorf("%w: missing header row", sales.ErrCodec)
	}
	return rows, nil
}

func headerColumns(rec []string) map[int]string {
	cols := map[int]string{}
	seen := map[string]bool{}
	for i, h := range rec {
		h = strings.TrimSpace(h)
		if slices.Contains(sales.SaleFields, h) && !seen[h] {
			cols[i] = h
			seen[h] = true
		}
	}
	return cols
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
