package commission

import "strings"

// All is the wildcard sentinel every attribute can carry.
const All = "ALL"

// Canonical flight types. FlightFromCountry is the sole canonical value
// for flights departing the home country; the historical "international"
// tag survives only as a read-time alias.
const (
	FlightDomestic    = "domestic"
	FlightToCountry   = "toCountry"
	FlightFromCountry = "fromCountry"
	FlightForeign     = "foreign"
)

// Canonical passenger types.
const (
	PassengerAdult  = "ADT"
	PassengerChild  = "CHD"
	PassengerInfant = "INF"
)

// Canonical cabin classes.
const (
	CabinEconomy  = "economy"
	CabinBusiness = "business"
	CabinFirst    = "first"
)

var wildcardSynonyms = map[string]bool{
	"":       true,
	"all":    true,
	"tous":   true,
	"toutes": true,
}

var cabinAliases = map[string]string{
	"s":        CabinEconomy,
	"y":        CabinEconomy,
	"eco":      CabinEconomy,
	"economy":  CabinEconomy,
	"standard": CabinEconomy,
	"c":        CabinBusiness,
	"j":        CabinBusiness,
	"biz":      CabinBusiness,
	"business": CabinBusiness,
	"affaires": CabinBusiness,
	"f":        CabinFirst,
	"first":    CabinFirst,
	"premiere": CabinFirst,
	"première": CabinFirst,
}

var passengerAliases = map[string]string{
	"adt":    PassengerAdult,
	"adult":  PassengerAdult,
	"adulte": PassengerAdult,
	"chd":    PassengerChild,
	"child":  PassengerChild,
	"enfant": PassengerChild,
	"inf":    PassengerInfant,
	"infant": PassengerInfant,
	"bebe":   PassengerInfant,
	"bébé":   PassengerInfant,
}

var flightAliases = map[string]string{
	"domestic":      FlightDomestic,
	"domestique":    FlightDomestic,
	"national":      FlightDomestic,
	"tocountry":     FlightToCountry,
	"to_country":    FlightToCountry,
	"vers":          FlightToCountry,
	"fromcountry":   FlightFromCountry,
	"from_country":  FlightFromCountry,
	"depuis":        FlightFromCountry,
	"foreign":       FlightForeign,
	"etranger":      FlightForeign,
	"étranger":      FlightForeign,
	// Legacy compatibility shim: pre-existing data tagged a departing
	// flight as "international". One-directional; new records never
	// carry it.
	"international": FlightFromCountry,
}

// Normalize canonicalizes a free-text attribute: trimmed, lowercased,
// with wildcard synonyms collapsed to the All sentinel.
func Normalize(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if wildcardSynonyms[v] {
		return All
	}
	return v
}

// NormalizeCarrier canonicalizes a carrier code.
func NormalizeCarrier(value string) string {
	return Normalize(value)
}

// NormalizePassengerType maps a passenger type or its synonyms to the
// canonical ADT/CHD/INF code, lowercased for matching.
func NormalizePassengerType(value string) string {
	v := Normalize(value)
	if v == All {
		return All
	}
	if canonical, ok := passengerAliases[v]; ok {
		return strings.ToLower(canonical)
	}
	return v
}

// NormalizeFlightType maps a flight type or its legacy aliases to the
// canonical vocabulary, lowercased for matching.
func NormalizeFlightType(value string) string {
	v := Normalize(value)
	if v == All {
		return All
	}
	if canonical, ok := flightAliases[v]; ok {
		return strings.ToLower(canonical)
	}
	return v
}

// NormalizeCabinClass maps a cabin class code to economy/business/first.
func NormalizeCabinClass(value string) string {
	v := Normalize(value)
	if v == All {
		return All
	}
	if canonical, ok := cabinAliases[v]; ok {
		return canonical
	}
	return v
}
