package sales

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scale_tracker/internal/serial"
)

// Service owns the sales and repairs collections. Every operation runs
// under one mutex, and every successful mutation is saved to Storage
// before the call returns.
type Service struct {
	mu      sync.Mutex
	storage Storage
	logger  *zap.Logger

	sales   []Sale
	repairs []Repair

	persistErr error

	now      func() time.Time
	newID    func() string
	rangeMax int
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for default record dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRangeLimit caps how many serials one range entry may create.
func WithRangeLimit(max int) Option {
	return func(s *Service) { s.rangeMax = max }
}

// NewService creates a new Service. Call Load before use.
func NewService(storage Storage, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with what Storage holds. When Storage
// is empty the built-in default dataset is loaded and saved.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.storage.Load()
	if err != nil {
		s.logger.Error("failed to load records", zap.Error(err))
		return fmt.Errorf("failed to load records: %w", err)
	}

	if snap == nil {
		def := defaultSnapshot()
		s.sales, s.repairs = def.Sales, def.Repairs
		s.assignMissingIDs()
		s.logger.Info("no saved records, seeded default dataset",
			zap.Int("sales", len(s.sales)), zap.Int("repairs", len(s.repairs)))
		s.persist("seed")
		return nil
	}

	c := snap.Clone()
	s.sales, s.repairs = c.Sales, c.Repairs
	if s.assignMissingIDs() {
		s.persist("assign ids")
	}
	s.logger.Info("records loaded", zap.Int("sales", len(s.sales)), zap.Int("repairs", len(s.repairs)))
	return nil
}

func (s *Service) assignMissingIDs() bool {
	changed := false
	for i := range s.sales {
		if s.sales[i].ID == "" {
			s.sales[i].ID = s.newID()
			changed = true
		}
	}
	for i := range s.repairs {
		if s.repairs[i].ID == "" {
			s.repairs[i].ID = s.newID()
			changed = true
		}
	}
	return changed
}

// persist saves the current state. A failure is logged and remembered but
// the in-memory change stands.
func (s *Service) persist(op string) {
	if err := s.storage.Save(s.snapshotLocked()); err != nil {
		s.persistErr = err
		s.logger.Warn("persistence degraded", zap.String("op", op), zap.Error(err))
		return
	}
	if s.persistErr != nil {
		s.logger.Info("persistence recovered", zap.String("op", op))
	}
	s.persistErr = nil
}

// PersistenceErr returns the error of the most recent failed save, or nil
// if the last save succeeded.
func (s *Service) PersistenceErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

func (s *Service) today() string {
	return s.now().Format(DateLayout)
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{Sales: s.sales, Repairs: s.repairs}.Clone()
}

// Snapshot returns a copy of all records.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) saleIndex(id string) int {
	return slices.IndexFunc(s.sales, func(r Sale) bool { return r.ID == id })
}

func (s *Service) saleIndexBySerial(serialNumber string) int {
	return slices.IndexFunc(s.sales, func(r Sale) bool { return r.SerialNumber == serialNumber })
}

func (s *Service) repairIndex(id string) int {
	return slices.IndexFunc(s.repairs, func(r Repair) bool { return r.ID == id })
}

// Sale returns the sale with the given ID.
func (s *Service) Sale(id string) (Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.saleIndex(id)
	if i < 0 {
		return Sale{}, ErrNotFound
	}
	return s.sales[i], nil
}

// SaleBySerial returns the sale with the given serial number.
func (s *Service) SaleBySerial(serialNumber string) (Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.saleIndexBySerial(serialNumber)
	if i < 0 {
		return Sale{}, ErrNotFound
	}
	return s.sales[i], nil
}

// Repair returns the repair with the given ID.
func (s *Service) Repair(id string) (Repair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.repairIndex(id)
	if i < 0 {
		return Repair{}, ErrNotFound
	}
	return s.repairs[i], nil
}

// RepairsFor returns every repair referencing serialNumber, whether or not
// the sale still exists.
func (s *Service) RepairsFor(serialNumber string) []Repair {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Repair
	for _, r := range s.repairs {
		if r.SerialNumber == serialNumber {
			out = append(out, r)
		}
	}
	return out
}

// AddSale appends a sale. Blank status and date default to Deployed and
// today.
func (s *Service) AddSale(sale Sale) (Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saleIndexBySerial(sale.SerialNumber) >= 0 {
		return Sale{}, fmt.Errorf("%w: %s", ErrDuplicateSerial, sale.SerialNumber)
	}

	sale = s.prepareSale(sale)
	s.sales = append(s.sales, sale)
	s.persist("add sale")

	s.logger.Info("sale created", zap.String("sale_id", sale.ID), zap.String("serial", sale.SerialNumber))
	return sale, nil
}

func (s *Service) prepareSale(sale Sale) Sale {
	sale.ID = s.newID()
	if sale.Status == "" {
		sale.Status = StatusDeployed
	}
	if sale.Date == "" {
		sale.Date = s.today()
	}
	return sale
}

// AddSaleBatch appends all sales or none. Serials already in the store or
// repeated within the batch are reported in a *ConflictError.
func (s *Service) AddSaleBatch(batch []Sale) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conflicts := s.batchConflicts(batch); len(conflicts) > 0 {
		s.logger.Warn("sale batch rejected", zap.Int("size", len(batch)), zap.Strings("conflicts", conflicts))
		return 0, &ConflictError{Serials: conflicts, Err: ErrDuplicateSerial}
	}

	s.appendSales(batch)
	s.persist("add sale batch")

	s.logger.Info("sale batch created", zap.Int("count", len(batch)))
	return len(batch), nil
}

func (s *Service) batchConflicts(batch []Sale) []string {
	seen := make(map[string]bool, len(s.sales)+len(batch))
	for _, r := range s.sales {
		seen[r.SerialNumber] = true
	}

	var conflicts []string
	reported := map[string]bool{}
	for _, r := range batch {
		if seen[r.SerialNumber] {
			if !reported[r.SerialNumber] {
				conflicts = append(conflicts, r.SerialNumber)
				reported[r.SerialNumber] = true
			}
			continue
		}
		seen[r.SerialNumber] = true
	}
	return conflicts
}

func (s *Service) appendSales(batch []Sale) {
	for _, r := range batch {
		s.sales = append(s.sales, s.prepareSale(r))
	}
}

// AddSaleRange creates one sale per serial from start to end inclusive,
// copying every other field from template.
func (s *Service) AddSaleRange(start, end string, template Sale) (int, error) {
	serials, err := serial.ExpandRangeMax(start, end, s.rangeMax)
	if err != nil {
		return 0, err
	}

	batch := make([]Sale, len(serials))
	for i, sn := range serials {
		r := template
		r.SerialNumber = sn
		batch[i] = r
	}
	return s.AddSaleBatch(batch)
}

// AddRepair appends a repair ticket for an existing sale, copying the
// sale's company name onto the ticket.
func (s *Service) AddRepair(repair Repair) (Repair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.saleIndexBySerial(repair.SerialNumber)
	if i < 0 {
		return Repair{}, fmt.Errorf("%w: %s", ErrUnknownSerial, repair.SerialNumber)
	}

	repair.ID = s.newID()
	repair.CompanyName = s.sales[i].CompanyName
	if repair.Date == "" {
		repair.Date = s.today()
	}
	s.repairs = append(s.repairs, repair)
	s.persist("add repair")

	s.logger.Info("repair created", zap.String("repair_id", repair.ID), zap.String("serial", repair.SerialNumber))
	return repair, nil
}

// UpdateSale replaces the fields of a sale. A blank status or date keeps
// the stored value. A serial change must stay unique and is carried over
// to every repair of the old serial.
func (s *Service) UpdateSale(id string, upd Sale) (Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.saleIndex(id)
	if i < 0 {
		return Sale{}, ErrNotFound
	}

	old := s.sales[i].SerialNumber
	renamed := upd.SerialNumber != old
	if renamed {
		if j := s.saleIndexBySerial(upd.SerialNumber); j >= 0 && j != i {
			return Sale{}, fmt.Errorf("%w: %s", ErrDuplicateSerial, upd.SerialNumber)
		}
	}

	upd.ID = id
	upd.Status = keepIfBlank(upd.Status, s.sales[i].Status)
	upd.Date = keepIfBlank(upd.Date, s.sales[i].Date)
	s.sales[i] = upd

	cascaded := 0
	if renamed {
		for k := range s.repairs {
			if s.repairs[k].SerialNumber == old {
				s.repairs[k].SerialNumber = upd.SerialNumber
				cascaded++
			}
		}
	}
	s.persist("update sale")

	s.logger.Info("sale updated", zap.String("sale_id", id), zap.Bool("renamed", renamed), zap.Int("repairs_renamed", cascaded))
	return upd, nil
}

// UpdateRepair replaces the fields of a repair. A blank company, status or
// date keeps the stored value. The serial is not checked against sales.
func (s *Service) UpdateRepair(id string, upd Repair) (Repair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.repairIndex(id)
	if i < 0 {
		return Repair{}, ErrNotFound
	}

	upd.ID = id
	upd.CompanyName = keepIfBlank(upd.CompanyName, s.repairs[i].CompanyName)
	upd.Status = keepIfBlank(upd.Status, s.repairs[i].Status)
	upd.Date = keepIfBlank(upd.Date, s.repairs[i].Date)
	s.repairs[i] = upd
	s.persist("update repair")

	s.logger.Info("repair updated", zap.String("repair_id", id))
	return upd, nil
}

func keepIfBlank(v, stored string) string {
	if strings.TrimSpace(v) == "" {
		return stored
	}
	return v
}

// DeleteSale removes a sale. Its repairs are kept.
func (s *Service) DeleteSale(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.saleIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.sales = slices.Delete(s.sales, i, i+1)
	s.persist("delete sale")

	s.logger.Info("sale deleted", zap.String("sale_id", id))
	return nil
}

// DeleteRepair removes a repair.
func (s *Service) DeleteRepair(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.repairIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	s.repairs = slices.Delete(s.repairs, i, i+1)
	s.persist("delete repair")

	s.logger.Info("repair deleted", zap.String("repair_id", id))
	return nil
}

// DeleteSalesBatch removes every sale in ids. If any ID is unknown nothing
// is removed.
func (s *Service) DeleteSalesBatch(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if s.saleIndex(id) < 0 {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		drop[id] = true
	}
	return s.deleteSalesLocked(drop), nil
}

// DeleteSalesAt removes the sales at the given positions of the current
// insertion order. Positions are resolved before anything is removed.
func (s *Service) DeleteSalesAt(indices []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.sales) {
			return 0, fmt.Errorf("%w: index %d", ErrNotFound, i)
		}
		drop[s.sales[i].ID] = true
	}
	return s.deleteSalesLocked(drop), nil
}

func (s *Service) deleteSalesLocked(drop map[string]bool) int {
	if len(drop) == 0 {
		return 0
	}
	before := len(s.sales)
	s.sales = slices.DeleteFunc(s.sales, func(r Sale) bool { return drop[r.ID] })
	n := before - len(s.sales)
	s.persist("delete sales batch")

	s.logger.Info("sales deleted", zap.Int("count", n))
	return n
}

// DistinctCompanies returns each company name found on sales or repairs
// once, in first-seen order.
func (s *Service) DistinctCompanies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, r := range s.sales {
		add(r.CompanyName)
	}
	for _, r := range s.repairs {
		add(r.CompanyName)
	}
	return out
}
