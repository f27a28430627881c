package score

import "media-harvester/pkg/models"

// Viewport bonus multipliers by visibility class. Off-screen candidates take
// no penalty, they just earn no bonus
const (
	bonusFull    = 1.5
	bonusPartial = 1.2
	bonusNone    = 1.0
)

// Quality bonus bands keyed to intrinsic width
const (
	widthUltra = 3840.0
	widthLarge = 1920.0

	bonusUltra   = 1.5
	bonusLarge   = 1.3
	bonusDefault = 1.0
)

// Score ranks a candidate as area × viewportBonus × qualityBonus. The formula
// rewards both prominence (size, visibility) and fidelity (resolution), so a
// fully visible high-resolution element outranks a merely larger off-screen
// or low-resolution one
func Score(size models.Size, visibility models.Visibility) float64 {
	return size.Area * viewportBonus(visibility) * qualityBonus(size.Width)
}

func viewportBonus(v models.Visibility) float64 {
	switch v {
	case models.VisibilityFull:
		return bonusFull
	case models.VisibilityPartial:
		return bonusPartial
	default:
		return bonusNone
	}
}

func qualityBonus(width float64) float64 {
	switch {
	case width >= widthUltra:
		return bonusUltra
	case width > widthLarge:
		return bonusLarge
	default:
		return bonusDefault
	}
}
