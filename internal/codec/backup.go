package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"scale_tracker/internal/sales"
)

const (
	keySalesData   = "salesData"
	keyRepairsData = "repairsData"
)

type backupFile struct {
	SalesData   []sales.Sale   `json:"salesData"`
	RepairsData []sales.Repair `json:"repairsData"`
}

// BackupFileName names a backup taken at t.
func BackupFileName(t time.Time) string {
	return "scale_tracker_backup_" + t.Format(sales.DateLayout) + ".json"
}

// EncodeBackup writes snap as an indented {salesData, repairsData} document.
func EncodeBackup(w io.Writer, snap sales.Snapshot) error {
	b := backupFile{SalesData: snap.Sales, RepairsData: snap.Repairs}
	if b.SalesData == nil {
		b.SalesData = []sales.Sale{}
	}
	if b.RepairsData == nil {
		b.RepairsData = []sales.Repair{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// DecodeBackup reads a backup document. The top-level object must have
// exactly the salesData and repairsData keys, each holding an array of
// objects. Field presence is kept as-is for sales.Service.Restore to
// validate.
func DecodeBackup(r io.Reader) (sales.RestoreInput, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return sales.RestoreInput{}, fmt.Errorf("%w: invalid JSON: %v", sales.ErrCodec, err)
	}
	if top == nil {
		return sales.RestoreInput{}, fmt.Errorf("%w: backup must be a JSON object", sales.ErrCodec)
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return sales.RestoreInput{}, fmt.Errorf("%w: unexpected data after the backup object", sales.ErrCodec)
	}
	for k := range top {
		if k != keySalesData && k != keyRepairsData {
			return sales.RestoreInput{}, fmt.Errorf("%w: unexpected key %q", sales.ErrCodec, k)
		}
	}

	salesRows, err := decodeRows(top, keySalesData)
	if err != nil {
		return sales.RestoreInput{}, err
	}
	repairRows, err := decodeRows(top, keyRepairsData)
	if err != nil {
		return sales.RestoreInput{}, err
	}
	return sales.RestoreInput{Sales: salesRows, Repairs: repairRows}, nil
}

func decodeRows(top map[string]json.RawMessage, key string) ([]sales.Row, error) {
	raw, ok := top[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", sales.ErrCodec, key)
	}

	var items []map[string]any
	if err := unmarshalNumbers(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q must be an array of objects: %v", sales.ErrCodec, key, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: %q must be an array", sales.ErrCodec, key)
	}

	rows := make([]sales.Row, 0, len(items))
	for i, item := range items {
		fields := make(map[string]string, len(item))
		for name, v := range item {
			s, present, err := scalarString(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d].%s: %v", sales.ErrCodec, key, i, name, err)
			}
			if present {
				fields[name] = s
			}
		}
		rows = append(rows, sales.Row{Line: i + 1, Fields: fields})
	}
	return rows, nil
}

func unmarshalNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// scalarString renders a JSON scalar as text. null counts as absent.
func scalarString(v any) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, true, nil
	case json.Number:
		return x.String(), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	default:
		return "", false, fmt.Errorf("expected a scalar, got %T", v)
	}
}
