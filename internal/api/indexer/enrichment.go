package indexer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

// Neighborhood markers commonly found in Mexican addresses, checked in
// priority order.
var neighborhoodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Colonia|Col\.?)\s+([^,\n]+)`),
	regexp.MustCompile(`(?i)(?:Zona|Z\.?)\s+([^,\n]+)`),
	regexp.MustCompile(`(?i)(?:Fraccionamiento|Fracc\.?)\s+([^,\n]+)`),
	regexp.MustCompile(`(?i)(?:Barrio|B\.?)\s+([^,\n]+)`),
	regexp.MustCompile(`(?i)(?:Delegación|Del\.?)\s+([^,\n]+)`),
}

var (
	trailingPunct = regexp.MustCompile(`[.,;]$`)
	extraSpaces   = regexp.MustCompile(`\s+`)
)

// EnrichText builds the natural-language description used as embedding
// input for a place. Pure and deterministic: the same place always
// yields byte-identical text.
func EnrichText(place *types.Place) string {
	if place == nil {
		return ""
	}

	name := strings.TrimSpace(place.Name)
	if name == "" {
		return ""
	}
	category := strings.TrimSpace(place.Category)
	description := ""
	if place.Description != nil {
		description = strings.TrimSpace(*place.Description)
	}
	address := ""
	if place.Address != nil {
		address = *place.Address
	}

	ratingText := formatRating(place.Rating)
	priceText := formatPriceLevel(place.PriceLevel)
	neighborhood := ExtractNeighborhood(address)

	var b strings.Builder
	if category != "" {
		fmt.Fprintf(&b, "%s es un %s", name, category)
	} else {
		b.WriteString(name)
	}
	if neighborhood != "" {
		fmt.Fprintf(&b, " ubicado en %s", neighborhood)
	}
	if description != "" {
		fmt.Fprintf(&b, ". %s", description)
	} else {
		b.WriteString(".")
	}
	if ratingText != "" {
		fmt.Fprintf(&b, " Este lugar tiene una %s", ratingText)
	}
	if priceText != "" {
		fmt.Fprintf(&b, " y maneja precios de rango %s", priceText)
	}

	return strings.TrimSpace(extraSpaces.ReplaceAllString(b.String(), " "))
}

// ExtractNeighborhood pulls a neighborhood token out of a free-text
// address. When no marker pattern matches it falls back to the segment
// after the first comma; an empty address yields an empty string.
func ExtractNeighborhood(address string) string {
	if address == "" {
		return ""
	}

	for _, pattern := range neighborhoodPatterns {
		if match := pattern.FindStringSubmatch(address); match != nil {
			neighborhood := strings.TrimSpace(match[1])
			return trailingPunct.ReplaceAllString(neighborhood, "")
		}
	}

	if idx := strings.Index(address, ","); idx >= 0 {
		rest := address[idx+1:]
		if next := strings.Index(rest, ","); next >= 0 {
			rest = rest[:next]
		}
		return trailingPunct.ReplaceAllString(strings.TrimSpace(rest), "")
	}

	return ""
}

// formatRating discretizes a numeric rating into a qualitative phrase.
func formatRating(rating *float64) string {
	if rating == nil {
		return ""
	}
	switch r := *rating; {
	case r >= 4.5:
		return "excelente calificación"
	case r >= 4.0:
		return "muy buena calificación"
	case r >= 3.5:
		return "buena calificación"
	case r >= 3.0:
		return "calificación promedio"
	default:
		return "calificación regular"
	}
}

// formatPriceLevel maps the price tier tag to a qualitative phrase.
func formatPriceLevel(priceLevel *string) string {
	if priceLevel == nil || *priceLevel == "" {
		return ""
	}
	switch strings.ToUpper(*priceLevel) {
	case types.PriceLevelLow:
		return "económico"
	case types.PriceLevelMedium:
		return "moderado"
	case types.PriceLevelHigh:
		return "alto"
	case types.PriceLevelPremium:
		return "premium"
	default:
		return strings.ToLower(*priceLevel)
	}
}
