package util

import (
	"strings"
)

// Takes a "host" string and returns an appropriate websocket URL. Defaults to
// wss://, except for localhost. Converts http/https to ws/wss.
func WebsocketURLForHost(host string) string {
	if host == "" {
		return ""
	}
	if strings.HasPrefix(host, "wss://") || strings.HasPrefix(host, "ws://") {
		return host
	}
	if strings.HasPrefix(host, "https://") {
		return "wss://" + strings.TrimPrefix(host, "https://")
	}
	if strings.HasPrefix(host, "http://") {
		return "ws://" + strings.TrimPrefix(host, "http://")
	}
	if strings.Contains(host, "://") {
		// don't mess with unexpected schemes
		return host
	}
	hostname := strings.SplitN(host, ":", 2)[0]
	if hostname == "localhost" || strings.HasPrefix(hostname, "127.0.0.") {
		return "ws://" + host
	}
	return "wss://" + host
}
