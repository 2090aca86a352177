package urls

import (
	neturl "net/url"
	"sort"

	"github.com/dracory/weeredis/shared/constants"
	"github.com/samber/lo"
)

const actionParam = "action"

// Invoke builds the URL of the command invocation endpoint.
func Invoke(basePath string) string {
	return Build(basePath, constants.ActionInvoke)
}

// State builds the URL returning the current session state.
func State(basePath string) string {
	return Build(basePath, constants.ActionState)
}

// StateEvents builds the URL of the server-sent state event stream.
func StateEvents(basePath string) string {
	return Build(basePath, constants.ActionStateEvents)
}

// ProfilesList builds the URL listing saved connection profiles.
func ProfilesList(basePath string) string {
	return Build(basePath, constants.ActionProfilesList)
}

// ProfileSave builds the URL for creating or updating a profile.
func ProfileSave(basePath string) string {
	return Build(basePath, constants.ActionProfileSave)
}

// ProfileDelete builds the URL for deleting a profile.
func ProfileDelete(basePath string, params ...map[string]string) string {
	return Build(basePath, constants.ActionProfileDelete, params...)
}

// ProfileActivate builds the URL for switching the active profile.
func ProfileActivate(basePath string, params ...map[string]string) string {
	return Build(basePath, constants.ActionProfileActivate, params...)
}

// DatabaseSelect builds the URL for switching the logical database.
func DatabaseSelect(basePath string, params ...map[string]string) string {
	return Build(basePath, constants.ActionDatabaseSelect, params...)
}

// KeySelect builds the URL for selecting the current key.
func KeySelect(basePath string, params ...map[string]string) string {
	return Build(basePath, constants.ActionKeySelect, params...)
}

// Build constructs a URL like: basePath?action=action&k=v...
// Keys are sorted for stable output. Values are URL-escaped.
func Build(basePath, action string, params ...map[string]string) string {
	p := lo.FirstOr(params, map[string]string{})

	if basePath == "" || basePath[0] != '/' {
		basePath = "/" + basePath
	}
	q := neturl.Values{}
	q.Set(actionParam, action)
	keys := lo.Filter(lo.Keys(p), func(k string, _ int) bool { return k != "" })
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, p[k])
	}
	return basePath + "?" + q.Encode()
}
