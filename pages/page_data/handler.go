package page_data

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/dracory/weeredis/shared/constants"
	layout "github.com/dracory/weeredis/shared/layout"
	"github.com/dracory/weeredis/shared/session"
	"github.com/dracory/weeredis/shared/state"
	"github.com/dracory/weeredis/shared/types"
	"github.com/dracory/weeredis/shared/urls"
	"github.com/gouniverse/cdn"
	hb "github.com/gouniverse/hb"
)

//go:embed script.js styles.css
var embeddedFS embed.FS

// pageDataController renders the data-browsing view.
type pageDataController struct {
	config   types.Config
	store    *state.Store
	sessions *session.Manager
}

// New creates the data page handler.
func New(config types.Config, store *state.Store, sessions *session.Manager) *pageDataController {
	return &pageDataController{config: config, store: store, sessions: sessions}
}

// ServeHTTP handles the HTTP request
func (h *pageDataController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.sessions.Ensure(w, r)
	token := h.sessions.CSRFToken(w, r)

	html, err := h.Handle(token)
	if err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// Handle renders the data page for the given CSRF token.
func (h *pageDataController) Handle(csrfToken string) (template.HTML, error) {
	pageCSS, err := embeddedFS.ReadFile("styles.css")
	if err != nil {
		return "", err
	}
	pageJS, err := embeddedFS.ReadFile("script.js")
	if err != nil {
		return "", err
	}

	basePath := h.config.BasePath
	view := h.store.View()

	extraBody := []hb.TagInterface{
		hb.ScriptURL(cdn.VueJs_3()),
		hb.ScriptURL(cdn.Sweetalert2_11()),
		hb.Script(`window.urlInvoke = "` + template.JSEscapeString(urls.Invoke(basePath)) + `"`),
		hb.Script(`window.urlState = "` + template.JSEscapeString(urls.State(basePath)) + `"`),
		hb.Script(`window.urlStateEvents = "` + template.JSEscapeString(urls.StateEvents(basePath)) + `"`),
		hb.Script(`window.urlProfilesList = "` + template.JSEscapeString(urls.ProfilesList(basePath)) + `"`),
		hb.Script(`window.urlProfileSave = "` + template.JSEscapeString(urls.ProfileSave(basePath)) + `"`),
		hb.Script(`window.urlProfileDelete = "` + template.JSEscapeString(urls.ProfileDelete(basePath)) + `"`),
		hb.Script(`window.urlProfileActivate = "` + template.JSEscapeString(urls.ProfileActivate(basePath)) + `"`),
		hb.Script(`window.urlDatabaseSelect = "` + template.JSEscapeString(urls.DatabaseSelect(basePath)) + `"`),
		hb.Script(`window.urlKeySelect = "` + template.JSEscapeString(urls.KeySelect(basePath)) + `"`),
		hb.Script(`window.csrfToken = "` + template.JSEscapeString(csrfToken) + `"`),
		hb.Script(`window.csrfHeader = "` + template.JSEscapeString(constants.CSRFHeaderKey) + `"`),
		hb.Script(string(pageJS)),
	}

	full := layout.RenderWith(layout.Options{
		Title:        "Data",
		CurrentPath:  constants.PathData,
		APIBase:      basePath,
		MainHTML:     mainHTML(view),
		SidebarHTML:  sidebarHTML(view),
		ExtraHead:    []hb.TagInterface{hb.Style(string(pageCSS))},
		ExtraBodyEnd: extraBody,
	})
	return full, nil
}

// sidebarHTML lists the saved profiles; the script takes over once loaded.
func sidebarHTML(view state.View) string {
	items := make([]hb.TagInterface, 0, len(view.Profiles))
	for _, p := range view.Profiles {
		class := "wr-profile cursor-pointer hover:underline"
		if p.ID == view.ActiveID {
			class += " wr-profile-active font-semibold"
		}
		li := hb.NewTag("li").
			Class(class).
			Attr("data-id", p.ID).
			Attr("title", fmt.Sprintf("%s:%d", p.Host, p.Port)).
			Text(p.Name)
		if p.ID == view.ActiveID {
			li.Attr("aria-current", "true")
		}
		items = append(items, li)
	}
	if len(items) == 0 {
		items = append(items, hb.NewTag("li").Class("text-slate-500").Text("No saved connections"))
	}

	return hb.Div().Attr("id", "wr-profiles").Children([]hb.TagInterface{
		hb.Paragraph().Class("text-xs uppercase tracking-wide text-slate-500 mb-1").Text("Connections"),
		hb.NewTag("ul").Class("space-y-1 text-sm").Children(items),
	}).ToHTML()
}

func mainHTML(view state.View) string {
	notice := "Select a connection to browse its keys."
	if view.ActiveID != "" {
		notice = "loading..."
	}
	return hb.Div().Attr("id", "wr-app").Children([]hb.TagInterface{
		hb.Paragraph().Class("text-slate-500").Attr("data-placeholder", "1").Text(notice),
	}).ToHTML()
}
