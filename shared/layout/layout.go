package layout

import (
	"html/template"

	"github.com/dracory/weeredis/shared/constants"
	hb "github.com/gouniverse/hb"
)

// Options bundles parameters for rendering the full HTML layout.
type Options struct {
	Title string
	// CurrentPath marks the active navigation entry, e.g. "/data".
	CurrentPath string
	// APIBase is the mount path of the JSON API.
	APIBase  string
	MainHTML string
	// SidebarHTML, when provided, renders on the left.
	SidebarHTML  string
	ExtraHead    []hb.TagInterface
	ExtraBodyEnd []hb.TagInterface
}

// RenderWith builds the full HTML page using the provided options.
func RenderWith(o Options) template.HTML {
	headChildren := []hb.TagInterface{
		hb.NewTag("meta").Attr("charset", "utf-8"),
		hb.NewTag("meta").Attr("name", "viewport").Attr("content", "width=device-width, initial-scale=1"),
		hb.NewTag("title").Text(o.Title + " · WeeRedis"),
		hb.ScriptURL("https://cdn.tailwindcss.com"),
	}
	headChildren = append(headChildren, o.ExtraHead...)

	nav := hb.Nav().Class("wr-nav flex gap-4").Children([]hb.TagInterface{
		navLink(constants.PathData, "Data", o.CurrentPath),
		navLink(constants.PathStats, "Stats", o.CurrentPath),
	})

	header := hb.Header().
		Class("wr-header border-b border-gray-200 px-4 py-2 flex items-center justify-between").
		Children([]hb.TagInterface{
			hb.Heading1().
				Class("wr-title text-lg font-semibold").
				Child(hb.A().Href(constants.PathData).Text("WeeRedis")),
			nav,
		})

	var sidebar hb.TagInterface
	if o.SidebarHTML != "" {
		sidebar = hb.Aside().Class("wr-sidebar shrink-0 border-r border-gray-200 bg-gray-50 p-3 w-64").
			Child(hb.Raw(o.SidebarHTML))
	}

	main := hb.Main().Class("wr-main grow p-4").
		Attr("data-api", o.APIBase).
		Child(hb.Raw(o.MainHTML))

	bodyChildren := []hb.TagInterface{
		header,
		hb.Div().Class("wr-shell flex min-h-[60vh]").Children([]hb.TagInterface{
			sidebar,
			main,
		}),
	}
	bodyChildren = append(bodyChildren, o.ExtraBodyEnd...)

	html := hb.NewTag("html").
		Attr("lang", "en").
		Children([]hb.TagInterface{
			hb.NewTag("head").Children(headChildren),
			hb.NewTag("body").Children(bodyChildren),
		})

	return template.HTML("<!doctype html>" + html.ToHTML())
}

func navLink(path, label, current string) hb.TagInterface {
	if path == current {
		return hb.A().Href(path).Text(label).
			Class("font-semibold text-slate-900").
			Attr("aria-current", "page")
	}
	return hb.A().Href(path).Text(label).Class("text-slate-600 hover:underline")
}
