package account

import "strings"

// DetectLimits derives (dailyLossLimit, maximumLossLimit) from account
// naming conventions, falling back to starting-balance tiers. Rules are
// ordered; the first match wins.
//
//	$50K accounts:  DLL $1,000 / MLL $2,000
//	$100K accounts: DLL $2,000 / MLL $3,000
//	$150K accounts: DLL $3,000 / MLL $4,500
//	Practice:       DLL $1,000 / MLL $2,500
//	Express:        DLL $250   / MLL $500
func DetectLimits(name, accountType string, startingBalance float64) (dll, mll float64) {
	upper := strings.ToUpper(name)

	switch {
	case strings.Contains(upper, "PRAC") || accountType == TypePractice:
		return 1000, 2500
	case strings.Contains(upper, "EXPRESS") || accountType == TypeExpressFunded:
		return 250, 500
	case strings.Contains(upper, "150K"):
		return 3000, 4500
	case strings.Contains(upper, "100K"):
		return 2000, 3000
	case strings.Contains(upper, "50K"):
		return 1000, 2000
	}

	switch {
	case startingBalance >= 145000:
		return 3000, 4500
	case startingBalance >= 95000:
		return 2000, 3000
	case startingBalance >= 45000:
		return 1000, 2000
	default:
		// Conservative defaults for unrecognized accounts.
		return 250, 500
	}
}
