package jetstream

import (
	"fmt"
	"net/url"

	"github.com/imposterwatch/imposterwatch/util"
)

// SubscribeURL turns a Jetstream host or URL into a full subscription URL, defaulting the path to /subscribe and adding
// a wantedCollections query parameter for each collection (existing parameters are kept).
func SubscribeURL(host string, wantedCollections []string) (string, error) {
	raw := util.WebsocketURLForHost(host)
	if raw == "" {
		return "", fmt.Errorf("empty jetstream host")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid jetstream URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("jetstream URL must be ws:// or wss://, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("jetstream URL has no host")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/subscribe"
	}
	if len(wantedCollections) > 0 {
		q := u.Query()
		have := make(map[string]bool)
		for _, c := range q["wantedCollections"] {
			have[c] = true
		}
		for _, c := range wantedCollections {
			if !have[c] {
				q.Add("wantedCollections", c)
				have[c] = true
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
