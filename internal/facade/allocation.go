package facade

// Allocation is the system's primary output artifact: a sparse view of
// A[p,r], keyed by product code then round label.
// float64 here, not decimal.Decimal — this is the MILP's solved output,
// already rounded to three decimals by the allocator's post-processing,
// and every constraint/validator computation downstream is numeric
// tolerance comparison rather than exact money arithmetic.
type Allocation map[string]map[string]float64

// Get returns A[code,round], defaulting to zero for absent entries.
func (a Allocation) Get(code, round string) float64 {
	row, ok := a[code]
	if !ok {
		return 0
	}
	return row[round]
}

// Set assigns A[code,round] = v, creating the row if needed.
func (a Allocation) Set(code, round string, v float64) {
	row, ok := a[code]
	if !ok {
		row = make(map[string]float64)
		a[code] = row
	}
	row[round] = v
}

// RoundTotal sums A[:,round] over every product code present.
func (a Allocation) RoundTotal(round string) float64 {
	total := 0.0
	for _, row := range a {
		total += row[round]
	}
	return total
}

// ProductTotal sums A[code,:] over every round present for that product.
func (a Allocation) ProductTotal(code string) float64 {
	total := 0.0
	for _, v := range a[code] {
		total += v
	}
	return total
}

// RoundsUsed counts the rounds in which A[code,r] is strictly positive.
func (a Allocation) RoundsUsed(code string) int {
	n := 0
	for _, v := range a[code] {
		if v > 0 {
			n++
		}
	}
	return n
}
