package view

// Apply filters rs with filter and orders the survivors with sort. Filtering
// always runs first.
func Apply[R Record](sort SortCriteria, filter FilterCriteria, rs []R) []R {
	return Order(sort, FilterSequence(filter, rs))
}

// Pipeline curries Apply over a criteria pair.
func Pipeline[R Record](sort SortCriteria, filter FilterCriteria) func([]R) []R {
	return func(rs []R) []R {
		return Apply(sort, filter, rs)
	}
}
