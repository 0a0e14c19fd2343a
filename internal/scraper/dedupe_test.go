package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	listings := []Listing{
		{ID: "mercadolibre-1", Title: "Casa en venta Coyoacán", Price: 2500000, Source: "mercadolibre"},
		{ID: "vivanuncios-9", Title: "casa en  venta   coyoacán", Price: 2500000, Source: "vivanuncios"},
		{ID: "mercadolibre-2", Title: "Casa en venta Coyoacán", Price: 2600000, Source: "mercadolibre"},
		{ID: "pulppo-3", Title: "Departamento Roma Norte", Price: 1800000, Source: "pulppo"},
	}

	out := Dedupe(listings)

	// Same normalized title and price collapse; the first source wins.
	assert.Len(t, out, 3)
	assert.Equal(t, "mercadolibre-1", out[0].ID)
	assert.Equal(t, "mercadolibre-2", out[1].ID)
	assert.Equal(t, "pulppo-3", out[2].ID)
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
	assert.Empty(t, Dedupe([]Listing{}))
}
