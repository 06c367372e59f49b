package models

// Strategy records which resolution tier produced a member's wards.
type Strategy int

const (
	// StrategyNone means no tier produced a ward.
	StrategyNone Strategy = iota
	// StrategyField means the self-reported ward field was used.
	StrategyField
	// StrategyAddress means the geocoded street address fell inside a ward.
	StrategyAddress
	// StrategyZipcode means the postal code overlaps one or more wards significantly.
	StrategyZipcode
)

func (s Strategy) String() string {
	switch s {
	case StrategyField:
		return "field"
	case StrategyAddress:
		return "address"
	case StrategyZipcode:
		return "zipcode"
	case StrategyNone:
		return "none"
	default:
		return "unknown"
	}
}

// Resolution pairs the resolved wards with the strategy that produced them.
type Resolution struct {
	Wards    []WardNum
	Strategy Strategy
}

// NoResolution is the result for a member that could not be placed in any ward.
var NoResolution = Resolution{Strategy: StrategyNone}

// Tagged reports whether a tier produced a result.
// A zip code tier result may still carry an empty ward list.
func (r Resolution) Tagged() bool {
	return r.Strategy != StrategyNone
}
