package commission

import "testing"

func TestNormalizeWildcardSynonyms(t *testing.T) {
	for _, value := range []string{"", "ALL", "all", "Tous", "toutes", "  all  "} {
		if got := Normalize(value); got != All {
			t.Fatalf("expected %q to normalize to wildcard, got %q", value, got)
		}
	}
}

func TestNormalizeCabinClass(t *testing.T) {
	cases := map[string]string{
		"S":        CabinEconomy,
		"y":        CabinEconomy,
		"Economy":  CabinEconomy,
		"standard": CabinEconomy,
		"C":        CabinBusiness,
		"affaires": CabinBusiness,
		"F":        CabinFirst,
		"Première": CabinFirst,
	}
	for input, want := range cases {
		if got := NormalizeCabinClass(input); got != want {
			t.Fatalf("cabin %q: expected %q, got %q", input, want, got)
		}
	}
}

func TestNormalizePassengerType(t *testing.T) {
	cases := map[string]string{
		"ADT":    "adt",
		"Adulte": "adt",
		"child":  "chd",
		"enfant": "chd",
		"Bébé":   "inf",
		"INF":    "inf",
	}
	for input, want := range cases {
		if got := NormalizePassengerType(input); got != want {
			t.Fatalf("passenger %q: expected %q, got %q", input, want, got)
		}
	}
}

func TestNormalizeFlightTypeLegacyInternational(t *testing.T) {
	if got := NormalizeFlightType("international"); got != NormalizeFlightType(FlightFromCountry) {
		t.Fatalf("expected international to alias fromCountry, got %q", got)
	}
	if got := NormalizeFlightType("Domestique"); got != NormalizeFlightType(FlightDomestic) {
		t.Fatalf("expected domestique to alias domestic, got %q", got)
	}
}

func TestNormalizeUnknownValuePassesThrough(t *testing.T) {
	if got := NormalizeCabinClass("Zz"); got != "zz" {
		t.Fatalf("expected unknown value lowered, got %q", got)
	}
}
