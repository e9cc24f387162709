package forecast

import "fmt"

// comparisonDeadband is how many degrees two temperatures may differ and
// still read as "about the same".
const comparisonDeadband = 2.0

// NarrativeInput carries everything Compose needs.
type NarrativeInput struct {
	Condition Condition
	IsDay     bool

	// Day branch.
	TodayMax     float64
	YesterdayMax float64
	HaveDaily    bool

	// Night branch: current temperature minus the temperature 24 hours earlier.
	NightTempDelta *float64

	// Precipitation is the sentence from AnalyzePrecipitation, if any.
	Precipitation string
}

var dayClauses = map[Condition]string{
	ConditionSunny:  "and sunny",
	ConditionCloudy: "but cloudier",
	ConditionRainy:  "with rain expected",
	ConditionSnowy:  "with snow expected",
	ConditionStormy: "with storms likely",
}

var nightClauses = map[Condition]string{
	ConditionCloudy: "but cloudier",
	ConditionRainy:  "with rain expected",
	ConditionSnowy:  "with snow expected",
	ConditionStormy: "with storms likely",
}

// Compose builds the one-line description: a comparison against yesterday
// (day) or last night (night), a condition clause, and the precipitation
// sentence when present.
func Compose(in NarrativeInput) string {
	var desc string
	if in.IsDay {
		tempDesc := "about the same temperature as"
		if in.HaveDaily {
			tempDesc = compare(in.TodayMax-in.YesterdayMax, tempDesc)
		}
		clause, ok := dayClauses[in.Condition]
		if !ok {
			clause = "and clear skies"
		}
		desc = fmt.Sprintf("Today will be %s yesterday, %s.", tempDesc, clause)
	} else {
		tempDesc := "about the same as"
		if in.NightTempDelta != nil {
			tempDesc = compare(*in.NightTempDelta, tempDesc)
		}
		clause, ok := nightClauses[in.Condition]
		if !ok {
			clause = "and clear"
		}
		desc = fmt.Sprintf("Tonight is %s last night, %s.", tempDesc, clause)
	}

	if in.Precipitation != "" {
		desc += " " + in.Precipitation
	}
	return desc
}

func compare(diff float64, same string) string {
	switch {
	case diff > comparisonDeadband:
		return "warmer than"
	case diff < -comparisonDeadband:
		return "cooler than"
	default:
		return same
	}
}
