package timeline

import (
	"strings"

	"tridash/gateway/internal/domain"
)

// sportAliases maps the raw labels seen across the session API, the tracker
// feed and legacy plan templates onto normalized sport keys.
var sportAliases = map[string]domain.Sport{
	"run":        domain.SportRun,
	"running":    domain.SportRun,
	"jog":        domain.SportRun,
	"jogging":    domain.SportRun,
	"trail":      domain.SportRun,
	"ride":       domain.SportRide,
	"riding":     domain.SportRide,
	"bike":       domain.SportRide,
	"biking":     domain.SportRide,
	"cycle":      domain.SportRide,
	"cycling":    domain.SportRide,
	"spin":       domain.SportRide,
	"swim":       domain.SportSwim,
	"swimming":   domain.SportSwim,
	"strength":   domain.SportStrength,
	"gym":        domain.SportStrength,
	"weights":    domain.SportStrength,
	"lifting":    domain.SportStrength,
	"core":       domain.SportStrength,
	"race":       domain.SportRace,
	"triathlon":  domain.SportRace,
	"brick":      domain.SportRide, // bike+run brick sessions live on the bike calendar
	"other":      domain.SportOther,
}

// SportKey derives the normalized sport for a record from its type label,
// falling back to scanning the title when the type is missing or unknown.
// Same-discipline records must land on one key regardless of which synonym
// the source used, so "run" and "Running" group together.
func SportKey(typ, title string) domain.Sport {
	if s, ok := lookupSport(typ); ok {
		return s
	}
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		tok = strings.Trim(tok, ".,:;!?()[]")
		if s, ok := sportAliases[tok]; ok {
			return s
		}
	}
	return domain.SportOther
}

func lookupSport(raw string) (domain.Sport, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return domain.SportOther, false
	}
	s, ok := sportAliases[key]
	return s, ok
}
