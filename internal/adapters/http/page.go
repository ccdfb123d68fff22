package http

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/citysearch/internal/core/session"
)

//go:embed templates/page.html
var pageFS embed.FS

var pageTmpl = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"num": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
	"km": func(m *float64) string {
		if m == nil {
			return ""
		}
		return strconv.FormatFloat(*m/1000, 'f', 2, 64)
	},
}).ParseFS(pageFS, "templates/page.html"))

type pageData struct {
	session.View
	DebounceMS int64
}

// PageHandler renders the lookup page. The query string drives a one-shot
// session: osm_type+osm_id selects a place, lat+lon looks up coordinates,
// q searches by name.
func PageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		s := session.New(deps.Lookup, session.Options{Logger: LoggerFromCtx(ctx)})
		defer s.Close()

		lat, lon := c.Query("lat"), c.Query("lon")
		s.SetLatitude(lat)
		s.SetLongitude(lon)

		switch {
		case c.Query("osm_type") != "" || c.Query("osm_id") != "":
			ref, err := parseRef(c.Query("osm_type"), c.Query("osm_id"))
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			_ = s.SelectRef(ctx, ref)
		case strings.TrimSpace(lat) != "" || strings.TrimSpace(lon) != "":
			_ = s.SubmitCoordinates(ctx)
		case c.Query("q") != "":
			s.SearchNow(ctx, c.Query("q"))
		}

		var buf bytes.Buffer
		if err := pageTmpl.Execute(&buf, pageData{View: s.View(), DebounceMS: deps.Debounce.Milliseconds()}); err != nil {
			return errInternal(c, "render page: "+err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	}
}
