package resource

import (
	"fmt"
)

// Options alters how a payment is checked.
type Options struct {
	// AnyType lets any element pay any part of the cost; only totals matter.
	AnyType bool
	// Override, when set, replaces the card's cost entirely.
	Override *Cost
}

// PaymentResult explains the outcome of Validate.
type PaymentResult struct {
	Valid    bool
	Required int
	Paid     int
	Reason   string
}

// Validate checks a proposed payment. spend comes from the pool and hoard from
// card hoards; both count equally. Payment must match the requirement exactly.
func Validate(required Cost, spend, hoard Amounts, opts Options) PaymentResult {
	if opts.Override != nil {
		required = *opts.Override
	}

	result := PaymentResult{Required: required.Total()}

	combined := make(Amounts)
	for _, src := range []Amounts{spend, hoard} {
		for el, n := range src {
			if n < 0 {
				result.Reason = fmt.Sprintf("negative amount for %s", el)
				return result
			}
			combined[el] += n
		}
	}
	result.Paid = combined.Total()

	if result.Paid != result.Required {
		if result.Paid < result.Required {
			result.Reason = fmt.Sprintf("underpaid (need %d, paid %d)", result.Required, result.Paid)
		} else {
			result.Reason = fmt.Sprintf("overpaid (need %d, paid %d)", result.Required, result.Paid)
		}
		return result
	}

	if opts.AnyType {
		result.Valid = true
		return result
	}

	excess := 0
	for el, n := range combined {
		need := required.Fixed[el]
		if n < need {
			result.Reason = fmt.Sprintf("insufficient %s (need %d, paid %d)", el, need, n)
			return result
		}
		excess += n - need
	}
	for el, need := range required.Fixed {
		if need > 0 && combined[el] == 0 {
			result.Reason = fmt.Sprintf("insufficient %s (need %d, paid 0)", el, need)
			return result
		}
	}
	if excess != required.Wildcard {
		result.Reason = fmt.Sprintf("wildcard mismatch (need %d, paid %d)", required.Wildcard, excess)
		return result
	}

	result.Valid = true
	return result
}

// ValidatePayment reports whether the payment is confirmable.
func ValidatePayment(required Cost, spend, hoard Amounts, opts Options) bool {
	return Validate(required, spend, hoard, opts).Valid
}

// SuggestSpend builds a pool-only spend that pays required exactly, covering
// fixed elements first and the wildcard from whatever is most plentiful.
// It returns false when the pool cannot cover the cost.
func SuggestSpend(required Cost, pool *Pool) (Amounts, bool) {
	available := pool.Values()
	plan := make(Amounts)

	for el, need := range required.Fixed {
		if available[el] < need {
			return nil, false
		}
		plan[el] = need
		available[el] -= need
	}

	remaining := required.Wildcard
	for remaining > 0 {
		var best Element
		bestN := 0
		for _, el := range available.Elements() {
			if available[el] > bestN {
				best, bestN = el, available[el]
			}
		}
		if bestN == 0 {
			return nil, false
		}
		take := bestN
		if take > remaining {
			take = remaining
		}
		plan[best] += take
		available[best] -= take
		remaining -= take
	}

	return plan.Copy(), true
}
