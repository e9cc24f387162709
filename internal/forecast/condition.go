package forecast

// Condition is the simplified weather state derived from a WMO weather code.
type Condition string

const (
	ConditionSunny  Condition = "sunny"
	ConditionCloudy Condition = "cloudy"
	ConditionRainy  Condition = "rainy"
	ConditionSnowy  Condition = "snowy"
	ConditionWindy  Condition = "windy"
	ConditionStormy Condition = "stormy"
)

type codeRange struct {
	lo, hi    int
	condition Condition
}

// wmoRanges is checked in order; the first matching range wins.
var wmoRanges = []codeRange{
	{0, 0, ConditionSunny},
	{1, 3, ConditionCloudy},
	{45, 48, ConditionCloudy}, // fog
	{51, 67, ConditionRainy},
	{71, 77, ConditionSnowy},
	{80, 82, ConditionRainy},
	{85, 86, ConditionSnowy},
	{95, 99, ConditionStormy},
}

// Classify maps a WMO weather code to a Condition. Codes outside the table,
// including negative ones, are sunny.
func Classify(code int) Condition {
	for _, r := range wmoRanges {
		if code >= r.lo && code <= r.hi {
			return r.condition
		}
	}
	return ConditionSunny
}

var conditionLabels = map[Condition]string{
	ConditionSunny:  "Sunny",
	ConditionCloudy: "Cloudy",
	ConditionRainy:  "Rain",
	ConditionSnowy:  "Snow",
	ConditionWindy:  "Windy",
	ConditionStormy: "Thunderstorms",
}

var conditionIcons = map[Condition]string{
	ConditionSunny:  "sun",
	ConditionCloudy: "cloud",
	ConditionRainy:  "cloud-rain",
	ConditionSnowy:  "cloud-snow",
	ConditionWindy:  "wind",
	ConditionStormy: "cloud-lightning",
}

// Label returns the human-readable name of the condition.
func (c Condition) Label() string {
	if l, ok := conditionLabels[c]; ok {
		return l
	}
	return conditionLabels[ConditionSunny]
}

// Icon returns the icon identifier the presentation layer renders.
func (c Condition) Icon() string {
	if i, ok := conditionIcons[c]; ok {
		return i
	}
	return conditionIcons[ConditionSunny]
}

// Precipitating reports whether the condition implies falling precipitation.
func (c Condition) Precipitating() bool {
	return c == ConditionRainy || c == ConditionSnowy || c == ConditionStormy
}
