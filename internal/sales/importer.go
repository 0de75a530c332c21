package sales

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Row is one raw record from an import source. Line is the 1-based
// position in the source, used in error reports.
type Row struct {
	Line   int
	Fields map[string]string
}

func (r Row) get(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

func (r Row) has(name string) bool {
	_, ok := r.Fields[name]
	return ok
}

func (r Row) sale() Sale {
	return Sale{
		SerialNumber: r.get(FieldSerialNumber),
		CompanyName:  r.get(FieldCompanyName),
		AgentName:    r.get(FieldAgentName),
		CustomerName: r.get(FieldCustomerName),
		Telephone:    r.get(FieldTelephone),
		Status:       r.get(FieldStatus),
		Date:         r.get(FieldDate),
	}
}

func (r Row) repair() Repair {
	return Repair{
		SerialNumber:     r.get(FieldSerialNumber),
		CompanyName:      r.get(FieldCompanyName),
		IssueDescription: r.get(FieldIssueDescription),
		SendDescription:  r.get(FieldSendDescription),
		Status:           r.get(FieldStatus),
		Date:             r.get(FieldDate),
	}
}

// uploadRequired are the sale fields a bulk upload row must fill in.
var uploadRequired = []string{
	FieldSerialNumber, FieldCompanyName, FieldAgentName, FieldCustomerName, FieldTelephone,
}

// ImportSales adds a bulk upload of sales. Every row is checked for
// required fields and for serials already in the store or earlier in the
// batch. If any row fails nothing is added, and the returned *ImportError
// lists the failures of all rows.
func (s *Service) ImportSales(rows []Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.sales))
	for _, r := range s.sales {
		existing[r.SerialNumber] = true
	}

	var failures []RowError
	firstLine := map[string]int{}
	batch := make([]Sale, 0, len(rows))

	for _, row := range rows {
		var missing []string
		for _, f := range uploadRequired {
			if row.get(f) == "" {
				missing = append(missing, f)
			}
		}
		sn := row.get(FieldSerialNumber)
		if len(missing) > 0 {
			failures = append(failures, RowError{
				Line:   row.Line,
				Serial: sn,
				Err:    fmt.Errorf("%w: %s", ErrMissingRequiredField, strings.Join(missing, ", ")),
			})
		}
		if sn != "" {
			line, dup := firstLine[sn]
			switch {
			case existing[sn]:
				failures = append(failures, RowError{Line: row.Line, Serial: sn, Err: ErrDuplicateSerial})
			case dup:
				failures = append(failures, RowError{
					Line:   row.Line,
					Serial: sn,
					Err:    fmt.Errorf("%w: first seen on line %d", ErrDuplicateInImport, line),
				})
			default:
				firstLine[sn] = row.Line
			}
		}
		batch = append(batch, row.sale())
	}

	if len(failures) > 0 {
		s.logger.Warn("sale import rejected", zap.Int("rows", len(rows)), zap.Int("errors", len(failures)))
		return 0, &ImportError{Rows: failures}
	}

	s.appendSales(batch)
	s.persist("import sales")

	s.logger.Info("sales imported", zap.Int("count", len(batch)))
	return len(batch), nil
}

// RestoreInput is a decoded backup. A nil slice means the collection was
// absent from the source.
type RestoreInput struct {
	Sales   []Row
	Repairs []Row
}

// RestoreResult summarizes an applied restore.
type RestoreResult struct {
	Added    int `json:"added"`
	Replaced int `json:"replaced"`
	Repairs  int `json:"repairs"`
}

// ConfirmFunc is asked whether the listed existing sales may be
// overwritten by a restore. It runs with the store locked and must not
// call back into the Service.
type ConfirmFunc func(conflicts []string) bool

// Restore merges a backup into the store. Imported sales replace existing
// sales with the same serial, once confirm allows it, and are otherwise
// appended. Repairs are replaced wholesale. Any validation failure, a
// duplicate serial inside the backup, or a declined confirmation leaves the
// store unchanged.
func (s *Service) Restore(in RestoreInput, confirm ConfirmFunc) (RestoreResult, error) {
	if in.Sales == nil || in.Repairs == nil {
		return RestoreResult{}, fmt.Errorf("%w: backup must contain both sales and repairs", ErrMissingRequiredField)
	}
	if err := validateBackupRows(in); err != nil {
		return RestoreResult{}, err
	}

	var dups []string
	seen := map[string]bool{}
	for _, row := range in.Sales {
		sn := row.get(FieldSerialNumber)
		if seen[sn] {
			dups = append(dups, sn)
			continue
		}
		seen[sn] = true
	}
	if len(dups) > 0 {
		s.logger.Warn("restore rejected, duplicate serials in backup", zap.Strings("serials", dups))
		return RestoreResult{}, &ConflictError{Serials: dups, Err: ErrDuplicateInImport}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var collisions []string
	for _, row := range in.Sales {
		if sn := row.get(FieldSerialNumber); s.saleIndexBySerial(sn) >= 0 {
			collisions = append(collisions, sn)
		}
	}
	if len(collisions) > 0 && (confirm == nil || !confirm(collisions)) {
		s.logger.Info("restore declined", zap.Strings("conflicts", collisions))
		return RestoreResult{}, &ConflictError{Serials: collisions, Err: ErrRestoreDeclined}
	}

	var res RestoreResult
	for _, row := range in.Sales {
		sale := row.sale()
		if i := s.saleIndexBySerial(sale.SerialNumber); i >= 0 {
			sale.ID = s.sales[i].ID
			s.sales[i] = sale
			res.Replaced++
			continue
		}
		sale.ID = s.newID()
		s.sales = append(s.sales, sale)
		res.Added++
	}

	repairs := make([]Repair, 0, len(in.Repairs))
	for _, row := range in.Repairs {
		r := row.repair()
		r.ID = s.newID()
		repairs = append(repairs, r)
	}
	s.repairs = repairs
	res.Repairs = len(repairs)

	s.persist("restore")

	s.logger.Info("backup restored",
		zap.Int("added", res.Added), zap.Int("replaced", res.Replaced), zap.Int("repairs", res.Repairs))
	return res, nil
}

func validateBackupRows(in RestoreInput) error {
	var failures []RowError
	check := func(row Row, fields []string, kind string) {
		var missing []string
		for _, f := range fields {
			if !row.has(f) || (f == FieldSerialNumber && row.get(f) == "") {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			failures = append(failures, RowError{
				Line:   row.Line,
				Serial: row.get(FieldSerialNumber),
				Err:    fmt.Errorf("%w: %s %s", ErrMissingRequiredField, kind, strings.Join(missing, ", ")),
			})
		}
	}
	for _, row := range in.Sales {
		check(row, SaleFields, "sale")
	}
	for _, row := range in.Repairs {
		check(row, RepairFields, "repair")
	}
	if len(failures) > 0 {
		return &ImportError{Rows: failures}
	}
	return nil
}
