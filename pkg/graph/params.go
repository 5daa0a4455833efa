package graph

// BuildParams returns the parameters sent for a request: a fresh copy of params,
// with TokenKey set to token when token is non-empty. params is never modified and
// may be nil.
func BuildParams(params map[string]string, token string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	if token != "" {
		out[TokenKey] = token
	}
	return out
}
