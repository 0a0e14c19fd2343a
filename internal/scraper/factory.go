package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"casahunt/propertyworker/config"
)

// Source identifiers.
const (
	SourceMercadoLibre = "mercadolibre"
	SourceVivanuncios  = "vivanuncios"
	SourcePulppo       = "pulppo"
	SourceInmuebles24  = "inmuebles24"
)

// BuildAdapters creates all source adapters from the configuration.
func BuildAdapters(cfg config.Config) []*Adapter {
	return []*Adapter{
		NewAdapter(mercadoLibreConfig(cfg)),
		NewAdapter(vivanunciosConfig(cfg)),
		NewAdapter(pulppoConfig(cfg)),
		NewAdapter(inmuebles24Config(cfg)),
	}
}

var mercadoLibreTypePaths = map[PropertyType]string{
	House:      "casas",
	Apartment:  "departamentos",
	Land:       "terrenos",
	Office:     "oficinas",
	Commercial: "locales",
}

func mercadoLibreConfig(cfg config.Config) AdapterConfig {
	c := AdapterConfig{
		Source:  SourceMercadoLibre,
		BaseURL: cfg.MercadoLibreURL,
		CitySlugs: map[string]string{
			"mexico":           "distrito-federal",
			"cdmx":             "distrito-federal",
			"mexico city":      "distrito-federal",
			"ciudad de mexico": "distrito-federal",
			"guadalajara":      "jalisco/guadalajara",
			"monterrey":        "nuevo-leon/monterrey",
			"puebla":           "puebla/puebla",
			"cancun":           "quintana-roo/benito-juarez",
			"playa del carmen": "quintana-roo/solidaridad",
			"queretaro":        "queretaro/queretaro",
			"tijuana":          "baja-california/tijuana",
		},
		DefaultSlug: "distrito-federal",
		Selectors: FieldSelectors{
			Card:     Chain{"li.ui-search-layout__item"},
			Title:    Chain{".poly-component__title"},
			Link:     Chain{".poly-component__title", `a[href*="MLM-"]`, "a"},
			Price:    Chain{".andes-money-amount__fraction", `[class*="price"]`, ".price-tag-text-sr-only", ".price-tag-amount"},
			Location: Chain{".poly-component__location", `[class*="location"]`},
			Attrs:    Chain{".poly-attributes_list__item", ".ui-search-card-attributes__attribute"},
			Images:   Chain{"img"},
			Headline: Chain{".poly-component__headline"},
		},
		ExternalID: regexp.MustCompile(`MLM-?(\d+)`),
		MaxCards:   cfg.MaxListingsPerSource,
	}
	c.BuildURL = func(q SearchQuery) string {
		url := c.BaseURL
		if segment := mercadoLibreTypePaths[q.PropertyType]; segment != "" {
			url += "/" + segment
		}
		url += "/venta/" + c.CitySlug(q.City) + "/"

		var filters []string
		if q.PriceMin > 0 {
			filters = append(filters, fmt.Sprintf("precio-desde-%d", q.PriceMin))
		}
		if q.PriceMax > 0 {
			filters = append(filters, fmt.Sprintf("precio-hasta-%d", q.PriceMax))
		}
		if q.Bedrooms > 0 {
			filters = append(filters, fmt.Sprintf("%d-recamaras", q.Bedrooms))
		}
		if len(filters) > 0 {
			url += "_PriceRange_" + strings.Join(filters, "-")
		}
		return url
	}
	return c
}

func vivanunciosConfig(cfg config.Config) AdapterConfig {
	c := AdapterConfig{
		Source:  SourceVivanuncios,
		BaseURL: cfg.VivanunciosURL,
		// Vivanuncios pages are client-rendered; ask the collaborator for
		// JS-executed HTML.
		Render: true,
		CitySlugs: map[string]string{
			"mexico":           "ciudad-de-mexico/v1c1097l11518p1",
			"mexico city":      "ciudad-de-mexico/v1c1097l11518p1",
			"ciudad de mexico": "ciudad-de-mexico/v1c1097l11518p1",
			"guadalajara":      "guadalajara/v1c1097l11308p1",
			"monterrey":        "monterrey/v1c1097l11314p1",
			"cancun":           "cancun/v1c1097l11302p1",
		},
		DefaultSlug: "v1c1097l1p1",
		Selectors: FieldSelectors{
			Card:     Chain{`[data-qa="posting PROPERTY"], [data-qa="posting DEVELOPMENT"]`, ".tileV2"},
			Title:    Chain{`[data-qa="POSTING_CARD_DESCRIPTION"] a`, ".postingCard-module__posting-description a", `h3[data-qa="POSTING_CARD_DESCRIPTION"]`, ".ad-tile-title", ".tile-title"},
			Link:     Chain{`[data-qa="POSTING_CARD_DESCRIPTION"] a`, "a.tile-title-text", "a"},
			Price:    Chain{`[data-qa="POSTING_CARD_PRICE"]`, ".postingPrices-module__price", ".ad-tile-price", ".tile-price"},
			Location: Chain{`[data-qa="POSTING_CARD_LOCATION"]`, ".postingLocations-module__location-text", ".tile-location", ".ad-tile-location"},
			Attrs:    Chain{`[data-qa="POSTING_CARD_FEATURES"] span`, ".postingMainFeatures-module__posting-main-features-span"},
			Images:   Chain{`[data-qa="POSTING_CARD_GALLERY"] img`, ".postingGallery-module__gallery-container img", "img"},
		},
		LinkCardAttr: "data-to-posting",
		IDAttr:       "data-id",
		MaxCards:     cfg.MaxListingsPerSource,
	}
	c.BuildURL = func(q SearchQuery) string {
		url := c.BaseURL + "/s-venta-inmuebles/" + c.CitySlug(q.City)

		var params []string
		if q.PriceMin > 0 {
			params = append(params, fmt.Sprintf("pr=%d,", q.PriceMin))
		}
		if q.PriceMax > 0 {
			params = append(params, fmt.Sprintf("pr=,%d", q.PriceMax))
		}
		if q.Bedrooms > 0 {
			params = append(params, fmt.Sprintf("be=%d,", q.Bedrooms))
		}
		if len(params) > 0 {
			url += "?" + strings.Join(params, "&")
		}
		return url
	}
	return c
}

func pulppoConfig(cfg config.Config) AdapterConfig {
	c := AdapterConfig{
		Source:  SourcePulppo,
		BaseURL: cfg.PulppoURL,
		// Pulppo renders everything client-side; the collaborator has to wait
		// for property links to appear before capturing.
		Render:  true,
		WaitFor: `a[href*="/propiedad/"]`,
		CitySlugs: map[string]string{
			"mexico":           "propiedades-venta-ciudad-de-mexico",
			"cdmx":             "propiedades-venta-ciudad-de-mexico",
			"mexico city":      "propiedades-venta-ciudad-de-mexico",
			"ciudad de mexico": "propiedades-venta-ciudad-de-mexico",
			"guadalajara":      "propiedades-venta-guadalajara",
			"monterrey":        "propiedades-venta-monterrey",
			"puebla":           "propiedades-venta-puebla",
			"cancun":           "propiedades-venta-cancun",
			"playa del carmen": "propiedades-venta-playa-del-carmen",
		},
		DefaultSlug: "propiedades-venta-mexico",
		Selectors: FieldSelectors{
			Card:  Chain{`a[href*="/propiedad/"]`, `[class*="PropertyCard"]`, `[class*="property-card"]`, `[data-testid*="property"]`, `article[class*="property"]`, `[class*="listing-card"]`},
			Title: Chain{"h2", "h3", `[class*="title"]`},
			Link:  Chain{"a"},
			// Prices and counts live in unstructured card text; the parser
			// falls back to full-text heuristics for the empty chains.
			Images: Chain{"img"},
		},
		LinkCardAttr: "href",
		ExternalID:   regexp.MustCompile(`/propiedad/([^/?#]+)`),
		MaxCards:     cfg.MaxListingsPerSource,
	}
	c.BuildURL = func(q SearchQuery) string {
		return c.BaseURL + "/" + c.CitySlug(q.City)
	}
	return c
}

func inmuebles24Config(cfg config.Config) AdapterConfig {
	c := AdapterConfig{
		Source:  SourceInmuebles24,
		BaseURL: cfg.Inmuebles24URL,
		Render:  true,
		CitySlugs: map[string]string{
			"mexico":           "distrito-federal",
			"cdmx":             "distrito-federal",
			"mexico city":      "distrito-federal",
			"ciudad de mexico": "distrito-federal",
			"guadalajara":      "jalisco/guadalajara",
			"monterrey":        "nuevo-leon/monterrey",
			"cancun":           "quintana-roo/benito-juarez",
		},
		DefaultSlug: "mexico",
		Selectors: FieldSelectors{
			Card:     Chain{".posting-card", `[data-qa="posting PROPERTY"]`},
			Title:    Chain{".posting-title", `[data-qa="POSTING_CARD_DESCRIPTION"] a`},
			Link:     Chain{"a"},
			Price:    Chain{".price", `[data-qa="POSTING_CARD_PRICE"]`},
			Location: Chain{".posting-location", `[data-qa="POSTING_CARD_LOCATION"]`},
			Attrs:    Chain{".posting-features", `[data-qa="POSTING_CARD_FEATURES"] span`},
			Images:   Chain{"img"},
		},
		ExternalID: regexp.MustCompile(`-(\d+)\.html`),
		MaxCards:   cfg.MaxListingsPerSource,
	}
	c.BuildURL = func(q SearchQuery) string {
		return c.BaseURL + "/inmuebles-en-venta-en-" + c.CitySlug(q.City) + ".html"
	}
	return c
}
