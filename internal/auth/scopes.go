package auth

// Known OAuth scopes used by the backend.
const (
	ScopeRecordsWrite  = "records:write"
	ScopeRecordsRead   = "records:read"
	ScopeDashboardRead = "dashboard:read"
)
