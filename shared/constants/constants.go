package constants

// Action names for the /api endpoint, selected with ?action=.
const (
	ActionHealthz = "healthz"

	// ActionInvoke forwards a backend command through the gateway.
	ActionInvoke = "invoke"
	// ActionCSRF returns a CSRF token for non-browser clients.
	ActionCSRF = "csrf"

	ActionState       = "state"
	ActionStateEvents = "state_events"

	ActionProfilesList    = "profiles_list"
	ActionProfileSave     = "profile_save"
	ActionProfileDelete   = "profile_delete"
	ActionProfileActivate = "profile_activate"

	ActionDatabaseSelect = "database_select"
	ActionKeySelect      = "key_select"
)

// Page paths served by the router.
const (
	PathRoot    = "/"
	PathData    = "/data"
	PathStats   = "/stats"
	PathHealthz = "/healthz"
)

// Cookie and header names.
const (
	CookieSession = "wr_sid"
	CookieCSRF    = "wr_csrf"

	CSRFFormKey   = "csrf_token"
	CSRFHeaderKey = "X-CSRF-Token"
	RequestIDKey  = "X-Request-ID"
)
