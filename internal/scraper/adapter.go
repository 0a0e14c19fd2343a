package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"casahunt/propertyworker/helpers"
	"casahunt/propertyworker/logger"
)

// Adapter owns URL construction and HTML-to-Listing parsing for one site.
// All adapters run the same algorithm; only their AdapterConfig differs.
type Adapter struct {
	Config AdapterConfig
	log    *logger.Logger
}

// NewAdapter creates an adapter from its static configuration.
func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.MaxCards <= 0 {
		cfg.MaxCards = 20
	}
	return &Adapter{
		Config: cfg,
		log:    logger.ForSource(cfg.Source),
	}
}

// Source returns the adapter identifier.
func (a *Adapter) Source() string {
	return a.Config.Source
}

// BuildSearchURL maps a query onto the site's URL scheme.
func (a *Adapter) BuildSearchURL(q SearchQuery) string {
	return a.Config.BuildURL(q)
}

// CitySlug resolves a city name against the adapter's slug table,
// case-insensitively, falling back to the default slug.
func (c AdapterConfig) CitySlug(city string) string {
	if slug, ok := c.CitySlugs[strings.ToLower(strings.TrimSpace(city))]; ok {
		return slug
	}
	return c.DefaultSlug
}

// Parse extracts listings from one fetched document. A failure on one card
// never aborts the remaining cards; cards missing a title or a positive
// price are dropped.
func (a *Adapter) Parse(doc *goquery.Document, ids *IDCounter) []Listing {
	cards := a.Config.Selectors.Card.First(doc.Selection)
	if cards == nil {
		a.log.Debug().Msg("no listing cards matched")
		return nil
	}

	now := time.Now()
	var listings []Listing
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if len(listings) >= a.Config.MaxCards {
			return false
		}
		listing, ok := a.safeParseCard(card, ids, now)
		if ok {
			listings = append(listings, listing)
		}
		return true
	})

	a.log.Debug().Int("listings", len(listings)).Msg("parsed document")
	return listings
}

// safeParseCard isolates one card: a panic there is logged and the card
// skipped, keeping the rest of the page intact.
func (a *Adapter) safeParseCard(card *goquery.Selection, ids *IDCounter, now time.Time) (listing Listing, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Warn().Interface("panic", r).Msg("card parse failure, skipping card")
			ok = false
		}
	}()
	return a.parseCard(card, ids, now)
}

func (a *Adapter) parseCard(card *goquery.Selection, ids *IDCounter, now time.Time) (Listing, bool) {
	sel := a.Config.Selectors

	title := helpers.CollapseWhitespace(sel.Title.Text(card))
	if title == "" {
		return Listing{}, false
	}

	link := ""
	if a.Config.LinkCardAttr != "" {
		if v, exists := card.Attr(a.Config.LinkCardAttr); exists {
			link = strings.TrimSpace(v)
		}
	}
	if link == "" {
		link = sel.Link.Attr(card, "href")
	}
	link = a.resolveURL(link)

	fullText := card.Text()

	priceText := sel.Price.Text(card)
	if priceText == "" {
		priceText = FindMoney(fullText)
	}
	price := ExtractPrice(priceText)
	if price <= 0 {
		a.log.Debug().Str("title", title).Msg("dropping card without usable price")
		return Listing{}, false
	}

	location := helpers.CollapseWhitespace(sel.Location.Text(card))
	if location == "" {
		location = "México"
	}
	city, state := SplitLocation(location)

	features := sel.Attrs.Texts(card)
	headline := sel.Headline.Text(card)

	var bedrooms, bathrooms int
	var size float64
	for _, attr := range features {
		if v, found := ExtractSize(attr); found && size == 0 {
			size = v
		}
		if v, found := ExtractCount(attr, BedroomPatterns); found && bedrooms == 0 {
			bedrooms = v
		}
		if v, found := ExtractCount(attr, BathroomPatterns); found && bathrooms == 0 {
			bathrooms = v
		}
	}
	// Sources without attribute nodes still mention counts somewhere in the card.
	if bedrooms == 0 {
		bedrooms, _ = ExtractCount(fullText, BedroomPatterns)
	}
	if bathrooms == 0 {
		bathrooms, _ = ExtractCount(fullText, BathroomPatterns)
	}
	if size == 0 {
		size, _ = ExtractSize(fullText)
	}

	description := strings.Join(features, " • ")
	if description == "" {
		description = helpers.TruncateRunes(helpers.CollapseWhitespace(fullText), 200)
	}

	externalID := a.externalID(card, link)
	if externalID == "" {
		externalID = fmt.Sprintf("gen-%d", ids.Next())
	}

	return Listing{
		ID:           a.Config.Source + "-" + externalID,
		ExternalID:   externalID,
		Title:        title,
		Price:        price,
		Currency:     ExtractCurrency(priceText),
		Location:     location,
		City:         city,
		State:        state,
		Bedrooms:     bedrooms,
		Bathrooms:    bathrooms,
		SizeSqm:      size,
		PropertyType: ClassifyPropertyType(title + " " + headline + " " + description),
		Link:         link,
		Images:       a.extractImages(card),
		Features:     features,
		Description:  description,
		Source:       a.Config.Source,
		FetchedAt:    now,
	}, true
}

func (a *Adapter) extractImages(card *goquery.Selection) []string {
	found := a.Config.Selectors.Images.First(card)
	var images []string
	if found != nil {
		found.Each(func(_ int, img *goquery.Selection) {
			var src string
			for _, name := range []string{"data-src", "src"} {
				if v, exists := img.Attr(name); exists && strings.TrimSpace(v) != "" {
					src = strings.TrimSpace(v)
					break
				}
			}
			if src == "" || strings.Contains(src, "placeholder") || strings.Contains(src, "logo") {
				return
			}
			images = append(images, a.resolveURL(src))
		})
	}
	if len(images) == 0 {
		return []string{PlaceholderImage}
	}
	return images
}

func (a *Adapter) externalID(card *goquery.Selection, link string) string {
	if a.Config.IDAttr != "" {
		if v, exists := card.Attr(a.Config.IDAttr); exists && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if a.Config.ExternalID != nil && link != "" {
		if m := a.Config.ExternalID.FindStringSubmatch(link); m != nil {
			return m[1]
		}
	}
	return ""
}

// resolveURL makes a card link absolute against the adapter's base URL.
func (a *Adapter) resolveURL(link string) string {
	link = strings.TrimSpace(link)
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		return link
	case strings.HasPrefix(link, "//"):
		return "https:" + link
	case strings.HasPrefix(link, "/"):
		return a.Config.BaseURL + link
	default:
		return a.Config.BaseURL + "/" + link
	}
}
