package facade

import (
	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/shopspring/decimal"
)

// Dataset is the immutable view over a loaded product table and
// round-constraint table. Built once per upload via NewDataset or
// Load; never mutated afterward.
type Dataset struct {
	products    []*Product
	byCode      map[string]*Product
	rounds      []string // canonical order
	constraints map[string]RoundConstraint
}

// NewDataset validates and assembles a Dataset from already-parsed rows.
// sticksColumnPresent records whether the source table carried a 条支比
// column at all (see unitBoxPrice); callers constructing products
// programmatically (e.g. tests) should pass true unless deliberately
// exercising the no-column fallback.
func NewDataset(products []*Product, constraints map[string]RoundConstraint, sticksColumnPresent bool) (*Dataset, error) {
	if len(products) == 0 {
		return nil, allocerr.NewConfigError("NewDataset", "product table has no rows")
	}
	if len(constraints) == 0 {
		return nil, allocerr.NewConfigError("NewDataset", "round-constraint table has no rows")
	}

	labels := make([]string, 0, len(constraints))
	for r := range constraints {
		labels = append(labels, r)
	}
	rounds, err := SortRounds(labels)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]*Product, len(products))
	for _, p := range products {
		deriveFlags(p, sticksColumnPresent)
		byCode[p.Code] = p
	}

	return &Dataset{
		products:    products,
		byCode:      byCode,
		rounds:      rounds,
		constraints: constraints,
	}, nil
}

// ProductTable returns every product row, in load order.
func (d *Dataset) ProductTable() []*Product {
	return d.products
}

// Product looks up a single product by code.
func (d *Dataset) Product(code string) (*Product, bool) {
	p, ok := d.byCode[code]
	return p, ok
}

// Rounds returns the round labels in canonical order.
func (d *Dataset) Rounds() []string {
	return d.rounds
}

// FirstRound is a convenience accessor for Rounds()[0], the round that
// carries the supply cap. Downstream code compares against this value,
// never against a hardcoded label string.
func (d *Dataset) FirstRound() string {
	return d.rounds[0]
}

// RoundConstraint returns the table-sourced constraint record for a
// round. Configuration overrides are composed on top of this by the
// Constraint Manager, not here.
func (d *Dataset) RoundConstraint(round string) (RoundConstraint, bool) {
	rc, ok := d.constraints[round]
	return rc, ok
}

// ExistingAllocations returns, for every round, the map of product code
// to fixed allocation value (only entries with a positive value).
func (d *Dataset) ExistingAllocations() map[string]map[string]decimal.Decimal {
	out := make(map[string]map[string]decimal.Decimal, len(d.rounds))
	for _, r := range d.rounds {
		out[r] = make(map[string]decimal.Decimal)
	}
	for _, p := range d.products {
		for r, v := range p.Fixed {
			if v.IsPositive() {
				out[r][p.Code] = v
			}
		}
	}
	return out
}
