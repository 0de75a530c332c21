package sales

import "iter"

// View is the result of a query. Its sequences read the store each time
// they are iterated, so a View can be ranged over repeatedly and always
// reflects the current records.
type View struct {
	svc    *Service
	filter Filter
}

// Query returns a view of the records matching f.
func (s *Service) Query(f Filter) View {
	return View{svc: s, filter: f}
}

// Sales yields matching sales in insertion order.
func (v View) Sales() iter.Seq[Sale] {
	return func(yield func(Sale) bool) {
		v.svc.mu.Lock()
		rows := make([]Sale, len(v.svc.sales))
		copy(rows, v.svc.sales)
		v.svc.mu.Unlock()

		for _, r := range rows {
			if !v.filter.match(r.SerialNumber, r.CompanyName, r.Status) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Repairs yields matching repairs in insertion order.
func (v View) Repairs() iter.Seq[Repair] {
	return func(yield func(Repair) bool) {
		v.svc.mu.Lock()
		rows := make([]Repair, len(v.svc.repairs))
		copy(rows, v.svc.repairs)
		v.svc.mu.Unlock()

		for _, r := range rows {
			if !v.filter.match(r.SerialNumber, r.CompanyName, r.Status) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}
