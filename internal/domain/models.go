package domain

// Domain contains core models shared by the client, storage and publishers.

// Session is the access token a caller obtained out-of-band plus its expiry.
// AccessExpires is milliseconds since the Unix epoch, or 0 when no expiry is known.
type Session struct {
	AccessToken   string `json:"access_token"`
	AccessExpires int64  `json:"access_expires"`
}

// Valid reports whether the session carries a token. Expiry is not consulted.
func (s Session) Valid() bool {
	return s.AccessToken != ""
}

// Query is a named Graph request preset.
type Query struct {
	ID     string
	Path   string
	Method string
	Params map[string]string
}
