package domain

// TableStatus is one of the two states a Table may hold (spec.md §3).
type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
)

// Table is spec.md §3's Table entity. Invariant T1 (identifier uniqueness)
// and T2 (OCCUPIED implies exactly one holding order) are enforced by the
// repository and the seating controller, not by this type itself.
type Table struct {
	ID       int64       `json:"id"`
	Capacity int         `json:"capacity"`
	Status   TableStatus `json:"status"`
}

// Fits reports whether the table's capacity can seat the given party size.
func (t Table) Fits(guests int) bool {
	return t.Capacity >= guests
}
