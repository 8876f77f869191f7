package weather

// Outfit is a clothing recommendation bucket derived from the weather.
type Outfit string

const (
	OutfitRain     Outfit = "rain"
	OutfitVeryCold Outfit = "very_cold"
	OutfitCold     Outfit = "cold"
	OutfitMild     Outfit = "mild"
	OutfitWarm     Outfit = "warm"
	OutfitHot      Outfit = "hot"
)

// RainThreshold is the daily precipitation (mm) above which rain gear wins.
const RainThreshold = 2.0

// Advise maps a mean temperature (°C) and precipitation (mm) to an outfit.
// Rules are evaluated top to bottom; the last one catches everything else.
func Advise(temp, precipitation float64) Outfit {
	switch {
	case precipitation > RainThreshold:
		return OutfitRain
	case temp < 10:
		return OutfitVeryCold
	case temp < 18:
		return OutfitCold
	case temp < 26:
		return OutfitMild
	case temp < 32:
		return OutfitWarm
	default:
		return OutfitHot
	}
}

var outfitLabels = map[Outfit]string{
	OutfitRain:     "فيه مطر: جاكيت ضد المية أو حاجة بكابيشون",
	OutfitVeryCold: "برد جامد: لبس شتوي تقيل وجاكيت مبطن",
	OutfitCold:     "برد: جاكيت خفيف أو سويت شيرت",
	OutfitMild:     "جو معتدل: لبس خريفي خفيف",
	OutfitWarm:     "دافي: لبس صيفي خفيف",
	OutfitHot:      "حر: قطن خفيف وألوان فاتحة",
}

// Label returns the localized hint used inside prompts.
func (o Outfit) Label() string {
	if l, ok := outfitLabels[o]; ok {
		return l
	}
	return string(o)
}
