package page_stats

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/constants"
	"github.com/dracory/weeredis/shared/format"
	layout "github.com/dracory/weeredis/shared/layout"
	"github.com/dracory/weeredis/shared/state"
	"github.com/dracory/weeredis/shared/types"
	hb "github.com/gouniverse/hb"
)

// RefreshSeconds is how often the page reloads while a connection is active.
const RefreshSeconds = 10

// pageStatsController renders server statistics for the active connection.
type pageStatsController struct {
	config  types.Config
	store   *state.Store
	invoker gateway.Invoker
}

// New creates the stats page handler.
func New(config types.Config, store *state.Store, invoker gateway.Invoker) *pageStatsController {
	return &pageStatsController{config: config, store: store, invoker: invoker}
}

// ServeHTTP handles the HTTP request
func (h *pageStatsController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	html, err := h.Handle(r.Context())
	if err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// Handle fetches the statistics of the active profile and renders the page.
func (h *pageStatsController) Handle(ctx context.Context) (template.HTML, error) {
	var main hb.TagInterface
	var head []hb.TagInterface

	profile, ok := h.store.ActiveProfile()
	if !ok {
		main = notice("No active connection. Choose one on the Data page.")
	} else {
		head = append(head, hb.NewTag("meta").
			Attr("http-equiv", "refresh").
			Attr("content", strconv.Itoa(RefreshSeconds)))
		main = h.statsFor(ctx, profile)
	}

	return layout.RenderWith(layout.Options{
		Title:       "Stats",
		CurrentPath: constants.PathStats,
		APIBase:     h.config.BasePath,
		MainHTML:    main.ToHTML(),
		ExtraHead:   head,
	}), nil
}

func (h *pageStatsController) statsFor(ctx context.Context, profile types.ConnectionProfile) hb.TagInterface {
	res, err := gateway.GetRedisServerInfo(ctx, h.invoker, profile.ID)
	if err != nil {
		return notice("Failed to load statistics: " + err.Error())
	}
	info, ok := res.Value()
	if !ok {
		return notice("Failed to load statistics: " + res.Message())
	}

	children := []hb.TagInterface{
		hb.Heading2().Class("text-lg font-semibold mb-2").
			Text(fmt.Sprintf("%s (%s:%d)", profile.Name, profile.Host, profile.Port)),
		table(Rows(info)),
	}

	if counts := h.keyCounts(ctx, profile.ID); len(counts) > 0 {
		rows := make([][2]string, 0, len(counts))
		for _, c := range counts {
			if c.KeyCount == 0 {
				continue
			}
			rows = append(rows, [2]string{fmt.Sprintf("db%d", c.DbIndex), strconv.FormatInt(c.KeyCount, 10)})
		}
		if len(rows) > 0 {
			children = append(children,
				hb.NewTag("h3").Class("font-semibold mt-4 mb-1").Text("Keys per database"),
				table(rows))
		}
	}

	return hb.Div().Attr("id", "wr-stats").Children(children)
}

func (h *pageStatsController) keyCounts(ctx context.Context, connectionID string) []types.DbKeyCount {
	n, err := gateway.GetDbCount(ctx, h.invoker, connectionID)
	if err != nil {
		return nil
	}
	count, ok := n.Value()
	if !ok {
		return nil
	}
	res, err := gateway.GetAllDbKeyCounts(ctx, h.invoker, connectionID, count)
	if err != nil {
		return nil
	}
	counts, _ := res.Value()
	return counts
}

// Rows lays out the statistics as label/value pairs in display order.
func Rows(info types.ServerInfo) [][2]string {
	maxMemory := "unlimited"
	if info.MaxMemory > 0 {
		maxMemory = format.FormatBytes(info.MaxMemory)
	}
	lastSave := "never"
	if info.RDBLastSave > 0 {
		lastSave = time.Unix(info.RDBLastSave, 0).UTC().Format(time.RFC3339)
	}

	return [][2]string{
		{"Version", info.Version},
		{"Role", info.Role},
		{"Replication", info.ReplicationStatus},
		{"Connected replicas", strconv.FormatInt(info.ConnectedSlaves, 10)},
		{"Uptime", format.FormatTTL(info.Uptime)},
		{"Memory used", format.FormatBytes(info.MemoryUsage)},
		{"Max memory", maxMemory},
		{"Fragmentation ratio", strconv.FormatFloat(info.MemFragmentationRatio, 'f', 2, 64)},
		{"Clients", strconv.FormatInt(info.Connections, 10)},
		{"Blocked clients", strconv.FormatInt(info.ClientsBlocked, 10)},
		{"Total keys", strconv.FormatInt(info.TotalKeys, 10)},
		{"Ops/sec", strconv.FormatInt(info.OpsPerSec, 10)},
		{"Hit rate", strconv.FormatFloat(info.HitRate, 'f', 2, 64) + "%"},
		{"CPU (sys)", strconv.FormatFloat(info.UsedCPU, 'f', 2, 64) + "s"},
		{"Expired keys", strconv.FormatInt(info.KeysExpired, 10)},
		{"Evicted keys", strconv.FormatInt(info.KeysEvicted, 10)},
		{"Persistence", info.Persistence},
		{"AOF size", format.FormatBytes(info.AOFSize)},
		{"Last RDB save", lastSave},
	}
}

func table(rows [][2]string) hb.TagInterface {
	trs := make([]hb.TagInterface, 0, len(rows))
	for _, row := range rows {
		trs = append(trs, hb.NewTag("tr").Children([]hb.TagInterface{
			hb.NewTag("th").Class("pr-4 text-left font-normal text-slate-500").Text(row[0]),
			hb.NewTag("td").Text(row[1]),
		}))
	}
	return hb.NewTag("table").Class("wr-table text-sm").Child(hb.NewTag("tbody").Children(trs))
}

func notice(text string) hb.TagInterface {
	return hb.Paragraph().Class("text-slate-500").Text(text)
}
