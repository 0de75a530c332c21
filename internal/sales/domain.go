package sales

import "strings"

// Known sale and repair statuses. The set is open: any other string is
// stored as given.
const (
	StatusDeployed    = "Deployed"
	StatusUnderRepair = "Under Repair"
	StatusRetired     = "Retired"
)

// DateLayout is the calendar date format used for record dates.
const DateLayout = "2006-01-02"

// Sale is one sold unit, keyed by its serial number.
type Sale struct {
	ID           string `json:"id,omitempty"`
	SerialNumber string `json:"serialNumber"`
	CompanyName  string `json:"companyName"`
	AgentName    string `json:"agentName"`
	CustomerName string `json:"customerName"`
	Telephone    string `json:"telephone"`
	Status       string `json:"status"`
	Date         string `json:"date"`
}

// Repair is a repair ticket opened against a sold unit. CompanyName is
// copied from the sale when the ticket is created and is not kept in sync.
type Repair struct {
	ID               string `json:"id,omitempty"`
	SerialNumber     string `json:"serialNumber"`
	CompanyName      string `json:"companyName"`
	IssueDescription string `json:"issueDescription"`
	SendDescription  string `json:"sendDescription"`
	Status           string `json:"status"`
	Date             string `json:"date"`
}

// Snapshot is the full contents of the store, in insertion order.
type Snapshot struct {
	Sales   []Sale   `json:"sales"`
	Repairs []Repair `json:"repairs"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Sales:   make([]Sale, len(s.Sales)),
		Repairs: make([]Repair, len(s.Repairs)),
	}
	copy(out.Sales, s.Sales)
	copy(out.Repairs, s.Repairs)
	return out
}

// Filter narrows a query. Empty fields do not filter.
type Filter struct {
	// Serial matches as a case-insensitive substring.
	Serial  string `form:"serial"`
	Company string `form:"company"`
	Status  string `form:"status"`
}

func (f Filter) match(serial, company, status string) bool {
	if f.Serial != "" && !strings.Contains(strings.ToLower(serial), strings.ToLower(f.Serial)) {
		return false
	}
	if f.Company != "" && company != f.Company {
		return false
	}
	if f.Status != "" && status != f.Status {
		return false
	}
	return true
}

// Sale field names, as used by import rows and CSV headers.
const (
	FieldSerialNumber     = "serialNumber"
	FieldCompanyName      = "companyName"
	FieldAgentName        = "agentName"
	FieldCustomerName     = "customerName"
	FieldTelephone        = "telephone"
	FieldStatus           = "status"
	FieldDate             = "date"
	FieldIssueDescription = "issueDescription"
	FieldSendDescription  = "sendDescription"
)

// SaleFields lists every Sale field in column order.
var SaleFields = []string{
	FieldSerialNumber, FieldCompanyName, FieldAgentName, FieldCustomerName,
	FieldTelephone, FieldStatus, FieldDate,
}

// RepairFields lists every Repair field in column order.
var RepairFields = []string{
	FieldSerialNumber, FieldCompanyName, FieldIssueDescription,
	FieldSendDescription, FieldStatus, FieldDate,
}

// defaultSnapshot is the dataset a fresh store starts with.
func defaultSnapshot() Snapshot {
	return Snapshot{
		Sales: []Sale{
			{SerialNumber: "SN001", CompanyName: "TeaCo", AgentName: "John Doe", CustomerName: "Jane Smith", Telephone: "1234567890", Status: StatusDeployed, Date: "2025-01-15"},
			{SerialNumber: "SN002", CompanyName: "GreenLeaf", AgentName: "Alice Brown", CustomerName: "Bob Wilson", Telephone: "0987654321", Status: StatusDeployed, Date: "2025-02-20"},
		},
		Repairs: []Repair{
			{SerialNumber: "SN001", CompanyName: "TeaCo", IssueDescription: "Calibration issue", SendDescription: "", Status: StatusUnderRepair, Date: "2025-03-10"},
		},
	}
}
