package sales

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRow(line int, sn string) Row {
	return Row{Line: line, Fields: map[string]string{
		FieldSerialNumber: sn,
		FieldCompanyName:  "TeaCo",
		FieldAgentName:    "Agent",
		FieldCustomerName: "Customer",
		FieldTelephone:    "555",
	}}
}

func fullSaleRow(line int, sn, company string) Row {
	return Row{Line: line, Fields: map[string]string{
		FieldSerialNumber: sn,
		FieldCompanyName:  company,
		FieldAgentName:    "Imported Agent",
		FieldCustomerName: "Imported Customer",
		FieldTelephone:    "777",
		FieldStatus:       StatusRetired,
		FieldDate:         "2024-12-31",
	}}
}

func fullRepairRow(line int, sn string) Row {
	return Row{Line: line, Fields: map[string]string{
		FieldSerialNumber:     sn,
		FieldCompanyName:      "TeaCo",
		FieldIssueDescription: "Imported issue",
		FieldSendDescription:  "",
		FieldStatus:           StatusUnderRepair,
		FieldDate:             "2025-01-02",
	}}
}

func TestImportSales(t *testing.T) {
	svc, _ := newTestService(t)
	r := uploadRow(3, " SN500 ")
	r.Fields[FieldStatus] = StatusRetired

	n, err := svc.ImportSales([]Row{uploadRow(2, "SN400"), r})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := mustSerial(t, svc, "SN400")
	assert.Equal(t, StatusDeployed, got.Status)
	assert.Equal(t, "2026-10-16", got.Date)
	assert.Equal(t, StatusRetired, mustSerial(t, svc, "SN500").Status)
}

func TestImportSales_AtomicOnAnyBadRow(t *testing.T) {
	svc, _ := newTestService(t)
	before := len(svc.Snapshot().Sales)

	rows := make([]Row, 10)
	for i := range rows {
		rows[i] = uploadRow(i+2, fmt.Sprintf("B%03d", i))
	}
	delete(rows[7].Fields, FieldTelephone)

	_, err := svc.ImportSales(rows)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	assert.Len(t, svc.Snapshot().Sales, before)
}

func TestImportSales_ReportsEveryRow(t *testing.T) {
	svc, _ := newTestService(t)

	blank := uploadRow(4, "SN601")
	blank.Fields[FieldAgentName] = "   "
	rows := []Row{
		uploadRow(2, "SN600"),
		uploadRow(3, "SN001"),
		blank,
		uploadRow(5, "SN600"),
	}

	_, err := svc.ImportSales(rows)

	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	require.Len(t, ie.Rows, 3)
	assert.Equal(t, 3, ie.Rows[0].Line)
	assert.ErrorIs(t, ie.Rows[0], ErrDuplicateSerial)
	assert.Equal(t, 4, ie.Rows[1].Line)
	assert.ErrorIs(t, ie.Rows[1], ErrMissingRequiredField)
	assert.Contains(t, ie.Rows[1].Error(), FieldAgentName)
	assert.Equal(t, 5, ie.Rows[2].Line)
	assert.ErrorIs(t, ie.Rows[2], ErrDuplicateInImport)

	assert.ErrorIs(t, err, ErrDuplicateSerial)
	assert.ErrorIs(t, err, ErrDuplicateInImport)
	assert.Len(t, svc.Snapshot().Sales, 2)
}

func TestRestore_NoConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	confirmCalled := false

	res, err := svc.Restore(RestoreInput{
		Sales:   []Row{fullSaleRow(1, "SN900", "NewCo")},
		Repairs: []Row{fullRepairRow(1, "SN900"), fullRepairRow(2, "SN001")},
	}, func([]string) bool { confirmCalled = true; return false })
	require.NoError(t, err)

	assert.False(t, confirmCalled)
	assert.Equal(t, RestoreResult{Added: 1, Replaced: 0, Repairs: 2}, res)
	assert.Equal(t, []string{"SN001", "SN002", "SN900"}, serials(svc.Snapshot().Sales))

	repairs := svc.Snapshot().Repairs
	require.Len(t, repairs, 2)
	assert.Equal(t, "Imported issue", repairs[0].IssueDescription)
}

func TestRestore_OverwriteAccepted(t *testing.T) {
	svc, _ := newTestService(t)
	original := mustSerial(t, svc, "SN001")

	var asked []string
	res, err := svc.Restore(RestoreInput{
		Sales:   []Row{fullSaleRow(1, "SN001", "ImportedCo")},
		Repairs: []Row{},
	}, func(c []string) bool { asked = c; return true })
	require.NoError(t, err)

	assert.Equal(t, []string{"SN001"}, asked)
	assert.Equal(t, 1, res.Replaced)

	var matches []Sale
	for r := range svc.Query(Filter{Serial: "SN001"}).Sales() {
		matches = append(matches, r)
	}
	require.Len(t, matches, 1)
	assert.Equal(t, original.ID, matches[0].ID)
	assert.Equal(t, "ImportedCo", matches[0].CompanyName)
	assert.Equal(t, "Imported Agent", matches[0].AgentName)
	assert.Equal(t, StatusRetired, matches[0].Status)
	assert.Empty(t, svc.Snapshot().Repairs)
}

func TestRestore_OverwriteDeclined(t *testing.T) {
	svc, _ := newTestService(t)
	before := svc.Snapshot()

	_, err := svc.Restore(RestoreInput{
		Sales:   []Row{fullSaleRow(1, "SN002", "ImportedCo"), fullSaleRow(2, "SN901", "X")},
		Repairs: []Row{},
	}, func([]string) bool { return false })

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrRestoreDeclined)
	assert.Equal(t, []string{"SN002"}, ce.Serials)
	assert.Equal(t, before, svc.Snapshot())
}

func TestRestore_NilConfirmDeclines(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Restore(RestoreInput{Sales: []Row{fullSaleRow(1, "SN001", "X")}, Repairs: []Row{}}, nil)
	assert.ErrorIs(t, err, ErrRestoreDeclined)
}

func TestRestore_DuplicateInImport(t *testing.T) {
	svc, _ := newTestService(t)
	before := svc.Snapshot()

	_, err := svc.Restore(RestoreInput{
		Sales:   []Row{fullSaleRow(1, "SN950", "A"), fullSaleRow(2, "SN950", "B")},
		Repairs: []Row{},
	}, func([]string) bool { return true })

	assert.ErrorIs(t, err, ErrDuplicateInImport)
	assert.Equal(t, before, svc.Snapshot())
}

func TestRestore_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	before := svc.Snapshot()
	accept := func([]string) bool { return true }

	_, err := svc.Restore(RestoreInput{Sales: []Row{}}, accept)
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	_, err = svc.Restore(RestoreInput{Repairs: []Row{}}, accept)
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	partial := fullSaleRow(1, "SN960", "A")
	delete(partial.Fields, FieldDate)
	badRepair := fullRepairRow(1, "SN960")
	delete(badRepair.Fields, FieldSendDescription)

	_, err = svc.Restore(RestoreInput{Sales: []Row{partial}, Repairs: []Row{badRepair}}, accept)
	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Len(t, ie.Rows, 2)
	assert.Contains(t, ie.Rows[0].Error(), FieldDate)
	assert.Contains(t, ie.Rows[1].Error(), FieldSendDescription)

	assert.Equal(t, before, svc.Snapshot())
}

func TestRestore_BlankSerialRejected(t *testing.T) {
	svc, _ := newTestService(t)
	before := svc.Snapshot()

	_, err := svc.Restore(RestoreInput{
		Sales:   []Row{fullSaleRow(1, "SN970", "A"), fullSaleRow(2, "  ", "B")},
		Repairs: []Row{fullRepairRow(1, "")},
	}, func([]string) bool { return true })

	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	require.Len(t, ie.Rows, 2)
	assert.Equal(t, 2, ie.Rows[0].Line)
	assert.Contains(t, ie.Rows[0].Error(), FieldSerialNumber)
	assert.Contains(t, ie.Rows[1].Error(), "repair")
	assert.Equal(t, before, svc.Snapshot())
}
