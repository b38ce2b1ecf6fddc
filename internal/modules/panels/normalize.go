package panels

import "strings"

// Normalizer canonicalizes asset and factor identifiers across panels.
// It is a pure value: alias tables are supplied explicitly by the caller so
// reconciliation stays a function of its arguments, with no ambient global
// identifier catalogs.
type Normalizer struct {
	assetAliases  map[string]string
	factorAliases map[string]string
}

// NewNormalizer creates a normalizer with optional alias tables. Alias keys
// are matched after canonicalization, so "usa06z1 " and "USA06Z1" hit the
// same entry.
func NewNormalizer(assetAliases, factorAliases map[string]string) Normalizer {
	n := Normalizer{
		assetAliases:  make(map[string]string, len(assetAliases)),
		factorAliases: make(map[string]string, len(factorAliases)),
	}
	for from, to := range assetAliases {
		n.assetAliases[canonicalize(from)] = canonicalize(to)
	}
	for from, to := range factorAliases {
		n.factorAliases[canonicalize(from)] = canonicalize(to)
	}
	return n
}

// Asset returns the canonical form of an asset identifier.
func (n Normalizer) Asset(id string) string {
	c := canonicalize(id)
	if mapped, ok := n.assetAliases[c]; ok {
		return mapped
	}
	return c
}

// Factor returns the canonical form of a factor identifier.
func (n Normalizer) Factor(id string) string {
	c := canonicalize(id)
	if mapped, ok := n.factorAliases[c]; ok {
		return mapped
	}
	return c
}

// canonicalize trims surrounding whitespace and upper-cases the identifier.
// Deterministic by construction: the same input always yields the same output.
func canonicalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
