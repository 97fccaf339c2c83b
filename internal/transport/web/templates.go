package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = []string{
	"index.html",
	"buy.html",
	"sell.html",
	"quote.html",
	"history.html",
	"addcash.html",
	"login.html",
	"register.html",
	"apology.html",
}

var funcMap = template.FuncMap{
	"usd": func(d decimal.Decimal) string {
		return "$" + d.StringFixed(2)
	},
}

// mustParseTemplates parses every page together with the shared layout.
// Panics on malformed templates so a broken build fails at startup.
func mustParseTemplates() map[string]*template.Template {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").
			Funcs(funcMap).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			panic(fmt.Sprintf("parse template %s: %s", page, err))
		}
		templates[page] = t
	}
	return templates
}

func (ctrl *Controller) render(w http.ResponseWriter, statusCode int, page string, data map[string]any) {
	t, ok := ctrl.templates[page]
	if !ok {
		slog.Error("unknown template page", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		slog.Error("template execute failed", slog.String("page", page), slog.String("err", err.Error()))
	}
}
