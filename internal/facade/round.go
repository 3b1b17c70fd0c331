package facade

import (
	"sort"
	"strings"

	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/shopspring/decimal"
)

// roundNumerals gives the canonical rank of each recognized Chinese
// numeral in a "第" + numeral + "轮" round label.
var roundNumerals = []string{"一", "二", "三", "四", "五", "六"}

// RoundRank returns the canonical ordering position of a round label,
// or a ConfigError if the label doesn't match the recognized form.
func RoundRank(label string) (int, error) {
	const prefix, suffix = "第", "轮"
	if !strings.HasPrefix(label, prefix) || !strings.HasSuffix(label, suffix) {
		return 0, allocerr.NewConfigError("RoundRank", "malformed round label: "+label)
	}
	numeral := strings.TrimSuffix(strings.TrimPrefix(label, prefix), suffix)
	for i, n := range roundNumerals {
		if n == numeral {
			return i, nil
		}
	}
	return 0, allocerr.NewConfigError("RoundRank", "unrecognized round numeral in label: "+label)
}

// SortRounds returns the given round labels in canonical order.
func SortRounds(labels []string) ([]string, error) {
	ranked := make([]string, len(labels))
	copy(ranked, labels)
	var rankErr error
	ranks := make(map[string]int, len(labels))
	for _, l := range labels {
		r, err := RoundRank(l)
		if err != nil {
			rankErr = err
			continue
		}
		ranks[l] = r
	}
	if rankErr != nil {
		return nil, rankErr
	}
	sort.Slice(ranked, func(i, j int) bool { return ranks[ranked[i]] < ranks[ranked[j]] })
	return ranked, nil
}

// RoundConstraint holds the per-round price and volume parameters
// sourced from the round-constraint table, before any configuration
// overrides are composed in by the Constraint Manager.
type RoundConstraint struct {
	Round        string
	PriceUpper   decimal.Decimal
	PriceLower   decimal.Decimal
	VolumeTarget decimal.Decimal
}
