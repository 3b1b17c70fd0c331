// Package facade owns the product table and round-constraint table: it
// loads them, derives the per-SKU auxiliary flags, and exposes
// immutable read views to the constraint manager and MILP allocator.
package facade

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CSubtype identifies which C-type subtype (if any) a product belongs
// to, derived from a substring match against its raw tag text.
type CSubtype int

const (
	CSubtypeNone CSubtype = iota
	CSubtypeFang          // 方
	CSubtypeChang         // 长
	CSubtypeXi            // 细
)

func (s CSubtype) String() string {
	switch s {
	case CSubtypeFang:
		return "方"
	case CSubtypeChang:
		return "长"
	case CSubtypeXi:
		return "细"
	default:
		return "none"
	}
}

// Product is one row of the product table. Numeric fields use
// decimal.Decimal so money-like quantities stay exact through loading
// and derivation; the allocator package converts to float64 at the
// MILP boundary, where the solver library operates.
type Product struct {
	Code            string
	Name            string
	Category        string
	Brand           string
	WholesalePrice  decimal.Decimal
	SticksPerBundle decimal.Decimal
	Demand          decimal.Decimal
	AvailableSupply decimal.Decimal

	// Raw tag text from the source table, kept for audit/debugging even
	// though only the derived flags below are consumed downstream.
	CFlag       string
	RawSubtype  string
	DemandTag   string
	PriceTag    string

	// Fixed holds pre-existing allocations by round label; only entries
	// with a positive value are present, a zero cell means "not fixed".
	Fixed map[string]decimal.Decimal

	// Derived flags, computed once at load time by deriveFlags.
	IsCType       bool
	Subtype       CSubtype
	IsDemandTag   bool // 按需: demand-priority
	IsPriceTag    bool // 按价: price-priority
	UnitBoxPrice  decimal.Decimal
}

// deriveFlags populates the Product's derived fields from its raw
// fields. sticksColumnPresent distinguishes "the source table has no
// 条支比 column at all" from "the column exists but this row is blank" —
// the two cases use different unit-box-price formulas (see unitBoxPrice).
func deriveFlags(p *Product, sticksColumnPresent bool) {
	p.IsCType = strings.TrimSpace(p.CFlag) != ""
	p.Subtype = classifySubtype(p.RawSubtype)
	p.IsDemandTag = strings.Contains(p.DemandTag, "需")
	p.IsPriceTag = strings.Contains(p.PriceTag, "价")
	p.UnitBoxPrice = unitBoxPrice(p.WholesalePrice, p.SticksPerBundle, sticksColumnPresent)
}

func classifySubtype(raw string) CSubtype {
	switch {
	case strings.Contains(raw, "方"):
		return CSubtypeFang
	case strings.Contains(raw, "长"):
		return CSubtypeChang
	case strings.Contains(raw, "细"):
		return CSubtypeXi
	default:
		return CSubtypeNone
	}
}

// defaultSticksPerBundle is substituted when the 条支比 column is
// present but a particular row's value is blank or non-numeric.
const defaultSticksPerBundle = 200

// noSticksColumnMultiplier is the fallback when the 条支比 column is
// absent entirely: 50 条 per box at 50 元/条 = 2500.
const noSticksColumnMultiplier = 2500

func unitBoxPrice(wholesalePrice, sticksPerBundle decimal.Decimal, sticksColumnPresent bool) decimal.Decimal {
	if !sticksColumnPresent {
		return wholesalePrice.Mul(decimal.NewFromInt(noSticksColumnMultiplier))
	}
	sticks := sticksPerBundle
	if sticks.IsZero() {
		sticks = decimal.NewFromInt(defaultSticksPerBundle)
	}
	return wholesalePrice.Mul(decimal.NewFromInt(50000)).Div(sticks)
}
