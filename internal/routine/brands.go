package routine

import "strings"

// PlaceholderImage is shown for products of unknown brands.
const PlaceholderImage = "/static/products/placeholder.svg"

type brandImage struct {
	pattern string
	image   string
}

// brandImages is consulted in order and the first case-insensitive substring match wins.
//
//nolint:gochecknoglobals // static lookup table.
var brandImages = []brandImage{
	{pattern: "la roche-posay", image: "/static/products/la-roche-posay.svg"},
	{pattern: "la roche posay", image: "/static/products/la-roche-posay.svg"},
	{pattern: "cerave", image: "/static/products/cerave.svg"},
	{pattern: "the ordinary", image: "/static/products/the-ordinary.svg"},
	{pattern: "paula's choice", image: "/static/products/paulas-choice.svg"},
	{pattern: "neutrogena", image: "/static/products/neutrogena.svg"},
	{pattern: "cetaphil", image: "/static/products/cetaphil.svg"},
	{pattern: "bioderma", image: "/static/products/bioderma.svg"},
	{pattern: "eucerin", image: "/static/products/eucerin.svg"},
	{pattern: "avène", image: "/static/products/avene.svg"},
	{pattern: "avene", image: "/static/products/avene.svg"},
	{pattern: "cosrx", image: "/static/products/cosrx.svg"},
}

// ImageFor resolves the local image of a product name.
func ImageFor(name string) string {
	lower := strings.ToLower(name)
	for _, b := range brandImages {
		if strings.Contains(lower, b.pattern) {
			return b.image
		}
	}
	return PlaceholderImage
}
