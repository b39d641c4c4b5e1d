package audit

import (
	"encoding/json"
)

// Actions recorded by the auth flows.
const (
	ActionSignup       = "signup"
	ActionLoginSuccess = "login_success"
	ActionLoginFailure = "login_failure"
	ActionLoginLocked  = "login_locked"
	ActionLogout       = "logout"
)

// Metadata encodes non-empty values as a JSON object. Returns "" when nothing is set.
func Metadata(kv map[string]string) string {
	clean := make(map[string]string, len(kv))
	for k, v := range kv {
		if v != "" {
			clean[k] = v
		}
	}
	if len(clean) == 0 {
		return ""
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return ""
	}
	return string(b)
}
