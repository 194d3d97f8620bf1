package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/myrjola/skinwise/internal/contexthelpers"
	"github.com/myrjola/skinwise/internal/errors"
	"github.com/myrjola/skinwise/internal/routine"
	"github.com/myrjola/skinwise/internal/ssr"
	"github.com/myrjola/skinwise/ui"
)

type baseTemplateData struct {
	Authenticated bool
}

func newBaseTemplateData(r *http.Request) baseTemplateData {
	return baseTemplateData{
		Authenticated: contexthelpers.IsAuthenticated(r.Context()),
	}
}

type reportSummary struct {
	ID        string
	CreatedAt time.Time
	Summary   string
}

type homeTemplateData struct {
	baseTemplateData
	Reports []reportSummary
}

type reportTemplateData struct {
	baseTemplateData
	ID        string
	CreatedAt time.Time
	Report    routine.Report
}

type errorTemplateData struct {
	baseTemplateData
	Title   string
	Message string
}

// placeholderFuncs are replaced per request with functions bound to the request context.
var placeholderFuncs = template.FuncMap{ //nolint:gochecknoglobals // parse-time stubs.
	"nonce": func() template.HTMLAttr { return "" },
	"csrf":  func() template.HTML { return "" },
}

// parsePages parses every page under templates/pages together with the base layout.
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	dirs, err := fs.ReadDir(ui.Files, "templates/pages")
	if err != nil {
		return nil, errors.Wrap(err, "read pages dir")
	}
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		name := dir.Name()
		t, parseErr := template.New(name).Funcs(placeholderFuncs).ParseFS(ui.Files,
			"templates/base.gohtml", path.Join("templates/pages", name, "*.gohtml"))
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "parse page", slog.String("page", name))
		}
		pages[name] = t
	}
	return pages, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	ctx := r.Context()
	t, ok := app.pages[page]
	if !ok {
		app.logServerError(r, errors.New("page not found", slog.String("page", page)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	t, err := t.Clone()
	if err != nil {
		app.logServerError(r, errors.Wrap(err, "clone template", slog.String("page", page)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	nonce := contexthelpers.CSPNonce(ctx)
	csrfToken := contexthelpers.CSRFToken(ctx)
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(fmt.Sprintf(`nonce="%s"`, template.HTMLEscapeString(nonce))) //nolint:gosec // letters only.
		},
		"csrf": func() template.HTML {
			return template.HTML(fmt.Sprintf( //nolint:gosec // token is escaped.
				`<input type="hidden" name="csrf_token" value="%s">`, template.HTMLEscapeString(csrfToken)))
		},
	})

	var rendered bytes.Buffer
	if err = t.ExecuteTemplate(&rendered, "base", data); err != nil {
		app.logServerError(r, errors.Wrap(err, "execute template", slog.String("page", page)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var decorated bytes.Buffer
	if err = ssr.Decorate(&decorated, &rendered); err != nil {
		app.logServerError(r, errors.Wrap(err, "decorate page", slog.String("page", page)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = decorated.WriteTo(w)
}

// renderError renders a failure page that always offers a way back to the analysis.
func (app *application) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	app.render(w, r, status, "error", errorTemplateData{
		baseTemplateData: newBaseTemplateData(r),
		Title:            title,
		Message:          message,
	})
}
