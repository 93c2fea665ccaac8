package order

import "sort"

// SortForListing orders in place: pending first, then completed, then
// canceled; newest first within a group. Ties fall back to id descending.
func SortForListing(xs []Order) {
	sort.SliceStable(xs, func(i, j int) bool { return ListsBefore(xs[i], xs[j]) })
}

// ListsBefore reports whether a precedes b in the listing order used by
// SortForListing.
func ListsBefore(a, b Order) bool {
	ra, rb := a.Status.rank(), b.Status.rank()
	if ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst orders in place by creation time descending.
func SortNewestFirst(xs []Order) {
	sort.SliceStable(xs, func(i, j int) bool {
		if !xs[i].CreatedAt.Equal(xs[j].CreatedAt) {
			return xs[i].CreatedAt.After(xs[j].CreatedAt)
		}
		return xs[i].ID > xs[j].ID
	})
}

// Groups is the admin board split by status.
type Groups struct {
	Pending   []Order `json:"pending"`
	Completed []Order `json:"completed"`
	Canceled  []Order `json:"canceled"`
}

// GroupByStatus splits xs; each group is newest first.
// Orders with an unrecognised status are left out.
func GroupByStatus(xs []Order) Groups {
	cp := make([]Order, len(xs))
	copy(cp, xs)
	SortForListing(cp)

	g := Groups{Pending: []Order{}, Completed: []Order{}, Canceled: []Order{}}
	for _, o := range cp {
		switch o.Status {
		case StatusPending:
			g.Pending = append(g.Pending, o)
		case StatusCompleted:
			g.Completed = append(g.Completed, o)
		case StatusCanceled:
			g.Canceled = append(g.Canceled, o)
		}
	}
	return g
}

// TrackedIDs returns ids of the orders carrying a tracking number.
func TrackedIDs(xs []Order) []string {
	out := make([]string, 0, len(xs))
	for _, o := range xs {
		if o.HasTracking() {
			out = append(out, o.ID)
		}
	}
	return out
}
