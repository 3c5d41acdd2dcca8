package risk

// Color codes, lowest to highest severity.
const (
	ColorGreen   = "#13C184"
	ColorYellow  = "#FACB3F"
	ColorRed     = "#F05044"
	ColorDarkRed = "#A92725"
)

// quantize maps a risk value to its color band. Upper bounds are inclusive.
func quantize(risk float64) string {
	switch {
	case risk <= 0.2:
		return ColorGreen
	case risk <= 0.5:
		return ColorYellow
	case risk <= 0.9:
		return ColorRed
	}
	return ColorDarkRed
}

// Severity orders colors for comparisons; higher means more dangerous.
func Severity(color string) int {
	switch color {
	case ColorGreen:
		return 0
	case ColorYellow:
		return 1
	case ColorRed:
		return 2
	case ColorDarkRed:
		return 3
	}
	return -1
}
