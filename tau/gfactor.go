package tau

// gFactor returns the Cao g_i value for a species whose highest-order
// reactant role is (order, coeff), at population x. Degenerate
// populations fall back to the plain order value.
func gFactor(order, coeff int, x float64) float64 {
	switch {
	case order == 1:
		return 1
	case order == 2 && coeff == 1:
		return 2
	case order == 2:
		if x <= 1 {
			return 2
		}
		return 2 + 1/(x-1)
	case order == 3 && coeff == 1:
		return 3
	case order == 3 && coeff == 2:
		if x <= 1 {
			return 3
		}
		return 1.5 * (2 + 1/(x-1))
	case order == 3:
		if x <= 2 {
			return 3
		}
		return 3 + 1/(x-1) + 2/(x-2)
	default:
		return float64(order)
	}
}
