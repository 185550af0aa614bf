package common

// AccessTokenHeaderName is the HTTP header used to carry the access token on
// outbound requests.
const AccessTokenHeaderName = "Authorization"

// Plan names as they appear in login responses and the users table.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)
