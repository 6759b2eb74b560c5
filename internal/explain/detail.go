package explain

// DetailLevel is one of the four fixed verbosity tiers for explanations,
// ordered from shallowest to deepest.
type DetailLevel string

const (
	LevelTLDR     DetailLevel = "tldr"
	LevelGeneral  DetailLevel = "general"
	LevelDetailed DetailLevel = "detailed"
	LevelExtreme  DetailLevel = "extreme_detail"
)

// Levels lists all detail levels in order.
var Levels = []DetailLevel{LevelTLDR, LevelGeneral, LevelDetailed, LevelExtreme}

// Valid reports whether l is one of the four known levels.
func (l DetailLevel) Valid() bool {
	for _, v := range Levels {
		if l == v {
			return true
		}
	}
	return false
}

// Deeper returns the next deeper level. Past the deepest level it returns
// the receiver unchanged, so callers can treat it as a no-op.
func (l DetailLevel) Deeper() DetailLevel {
	for i, v := range Levels {
		if l == v && i < len(Levels)-1 {
			return Levels[i+1]
		}
	}
	return l
}
