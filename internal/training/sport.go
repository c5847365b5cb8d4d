package training

import (
	"strings"
)

// Sport can be one of:
//   - Swim
//   - Bike
//   - Run
//   - Strength
//   - Mobility (yoga and mobility work)
type Sport string

const (
	SportSwim     Sport = "Swim"
	SportBike     Sport = "Bike"
	SportRun      Sport = "Run"
	SportStrength Sport = "Strength"
	SportMobility Sport = "Mobility"
)

// Sports lists all supported disciplines in display order.
var Sports = []Sport{SportSwim, SportBike, SportRun, SportStrength, SportMobility}

var sportAliases = map[string]Sport{
	"swim":          SportSwim,
	"bike":          SportBike,
	"cycling":       SportBike,
	"run":           SportRun,
	"strength":      SportStrength,
	"mobility":      SportMobility,
	"yoga":          SportMobility,
	"yoga/mobility": SportMobility,
}

func ParseSport(raw string) (Sport, error) {
	s, ok := sportAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrUnknownSport
	}
	return s, nil
}

func (s Sport) String() string {
	return string(s)
}

func (s Sport) IsValid() bool {
	switch s {
	case SportSwim, SportBike, SportRun, SportStrength, SportMobility:
		return true
	default:
		return false
	}
}

func (s Sport) rank() int {
	for i, sport := range Sports {
		if sport == s {
			return i
		}
	}
	return len(Sports)
}

// DistanceUnit is fixed per discipline and never stored with the record.
type DistanceUnit string

const (
	UnitMeters     DistanceUnit = "m"
	UnitKilometers DistanceUnit = "km"
	UnitNone       DistanceUnit = ""
)

func (s Sport) DistanceUnit() DistanceUnit {
	switch s {
	case SportSwim:
		return UnitMeters
	case SportBike, SportRun:
		return UnitKilometers
	default:
		return UnitNone
	}
}

// HasWorkOutput reports whether an efficiency factor can be derived for the discipline.
func (s Sport) HasWorkOutput() bool {
	return s == SportSwim || s == SportBike || s == SportRun
}
