package forecast

// Palette is the three-stop background gradient behind the current conditions.
type Palette struct {
	From string `json:"from"`
	Via  string `json:"via"`
	To   string `json:"to"`
}

// Palettes pairs the light and dark theme gradients for one condition.
type Palettes struct {
	Light Palette `json:"light"`
	Dark  Palette `json:"dark"`
}

// DefaultPalettes are used for clear skies and any condition without its own entry.
var DefaultPalettes = Palettes{
	Light: Palette{From: "#fffbeb", Via: "#fff7ed", To: "#fefce8"}, // warm amber
	Dark:  Palette{From: "#0f172a", Via: "#1e1b4b", To: "#0f172a"}, // indigo night
}

// NeutralPalettes are shown before the weather at a location is known.
var NeutralPalettes = Palettes{
	Light: Palette{From: "#f3f4f6", Via: "#ffffff", To: "#f3f4f6"},
	Dark:  Palette{From: "#0f172a", Via: "#111827", To: "#0f172a"},
}

var palettes = map[Condition]Palettes{
	ConditionRainy: {
		Light: Palette{From: "#e2e8f0", Via: "#dbeafe", To: "#e2e8f0"},
		Dark:  Palette{From: "#0f172a", Via: "#1e293b", To: "#0f172a"},
	},
	ConditionStormy: {
		Light: Palette{From: "#cbd5e1", Via: "#f3e8ff", To: "#e2e8f0"},
		Dark:  Palette{From: "#111827", Via: "#3b0764", To: "#111827"}, // purple storm
	},
	ConditionSnowy: {
		Light: Palette{From: "#f1f5f9", Via: "#eff6ff", To: "#ffffff"},
		Dark:  Palette{From: "#1e293b", Via: "#172554", To: "#0f172a"},
	},
	ConditionCloudy: {
		Light: Palette{From: "#e5e7eb", Via: "#f1f5f9", To: "#e5e7eb"},
		Dark:  Palette{From: "#111827", Via: "#1e293b", To: "#111827"},
	},
}

// PalettesFor returns the light and dark gradients for a condition.
func PalettesFor(c Condition) Palettes {
	if p, ok := palettes[c]; ok {
		return p
	}
	return DefaultPalettes
}
