package indexer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestEnrichText_FullPlace(t *testing.T) {
	place := &types.Place{
		ID:          uuid.New(),
		Name:        "Café Central",
		Category:    "cafeteria",
		Description: strPtr("Un lugar tranquilo con buen wifi"),
		Rating:      floatPtr(4.6),
		PriceLevel:  strPtr("MEDIUM"),
		Address:     strPtr("Av. Juárez 123, Colonia Centro, Guadalajara"),
	}

	text := EnrichText(place)

	assert.Equal(t,
		"Café Central es un cafeteria ubicado en Centro. Un lugar tranquilo con buen wifi Este lugar tiene una excelente calificación y maneja precios de rango moderado",
		text)
}

func TestEnrichText_MinimalPlace(t *testing.T) {
	place := &types.Place{
		ID:       uuid.New(),
		Name:     "El Rincón",
		Category: "bar",
	}

	assert.Equal(t, "El Rincón es un bar.", EnrichText(place))
}

func TestEnrichText_EmptyName(t *testing.T) {
	place := &types.Place{
		ID:       uuid.New(),
		Category: "bar",
	}

	assert.Equal(t, "", EnrichText(place))
	assert.Equal(t, "", EnrichText(nil))
}

func TestEnrichText_Deterministic(t *testing.T) {
	place := &types.Place{
		ID:          uuid.New(),
		Name:        "Biblioteca Sur",
		Category:    "biblioteca",
		Description: strPtr("Salas de estudio silenciosas"),
		Rating:      floatPtr(4.2),
		PriceLevel:  strPtr("LOW"),
		Address:     strPtr("Calle 5, Zona Industrial"),
	}

	first := EnrichText(place)
	second := EnrichText(place)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestExtractNeighborhood(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{"colonia marker", "Av. Juárez 123, Colonia Americana, GDL", "Americana"},
		{"abbreviated col", "Calle 8 #45, Col. Del Valle, CDMX", "Del Valle"},
		{"zona marker", "Blvd. Norte 10, Zona Centro", "Centro"},
		{"fraccionamiento marker", "Fraccionamiento Las Lomas, Calle 2", "Las Lomas"},
		{"barrio marker", "Barrio Antiguo, Monterrey", "Antiguo"},
		{"delegacion marker", "Insurgentes Sur 100, Delegación Benito Juárez", "Benito Juárez"},
		{"fallback after first comma", "Av. Reforma 500, Cuauhtémoc, CDMX", "Cuauhtémoc"},
		{"no comma no marker", "Av. Reforma 500", ""},
		{"empty address", "", ""},
		{"trailing punctuation stripped", "Calle 1, Colonia Roma.", "Roma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractNeighborhood(tt.address))
		})
	}
}

func TestFormatRating_Bands(t *testing.T) {
	tests := []struct {
		rating   float64
		expected string
	}{
		{4.9, "excelente calificación"},
		{4.5, "excelente calificación"},
		{4.2, "muy buena calificación"},
		{3.7, "buena calificación"},
		{3.0, "calificación promedio"},
		{2.1, "calificación regular"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatRating(&tt.rating))
	}
	assert.Equal(t, "", formatRating(nil))
}

func TestFormatPriceLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{"LOW", "económico"},
		{"MEDIUM", "moderado"},
		{"HIGH", "alto"},
		{"PREMIUM", "premium"},
		{"low", "económico"},
		{"OTHER", "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatPriceLevel(&tt.level))
	}
	assert.Equal(t, "", formatPriceLevel(nil))
	empty := ""
	assert.Equal(t, "", formatPriceLevel(&empty))
}
