// Package ssr post-processes server rendered HTML before it is written to the client.
package ssr

import (
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/skinwise/internal/errors"
)

// Decorate rewrites the document read from reader and writes it to writer.
//
// Links leaving the site open in a new tab without an opener or referrer, and images below the first screen are
// loaded lazily.
func Decorate(writer io.Writer, reader io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return errors.Wrap(err, "parse document")
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !isExternal(href) {
			return
		}
		s.SetAttr("target", "_blank")
		s.SetAttr("rel", "noopener noreferrer")
	})
	doc.Find("main img").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("loading"); !ok {
			s.SetAttr("loading", "lazy")
		}
	})

	// The parsed document keeps its own doctype node, so only the root element is rendered after ours.
	html, err := goquery.OuterHtml(doc.Find("html"))
	if err != nil {
		return errors.Wrap(err, "render document")
	}
	if _, err = io.WriteString(writer, "<!doctype html>\n"+html); err != nil {
		return errors.Wrap(err, "write document")
	}
	return nil
}

func isExternal(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}
