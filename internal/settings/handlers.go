package settings

import (
	"strings"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/session"
)

// SessionKeys are the names SessionHandler accepts.
var SessionKeys = []string{"base-url", "token", "user-id"}

// SessionHandler writes base-url, token and user-id into sess. An empty
// token or user id clears that field.
func SessionHandler(sess *session.Session) Handler {
	return Handler{
		Match: ExactMatcher(append(SessionKeys, "baseurl", "user")...),
		Apply: func(key, val string) error {
			switch key {
			case "base-url", "baseurl":
				val = strings.TrimSpace(val)
				if !strings.HasPrefix(val, "http://") && !strings.HasPrefix(val, "https://") {
					return errdef.New(errdef.CodeConfig, "base-url must start with http:// or https://, got %q", val)
				}
				sess.SetBaseURL(val)
			case "token":
				sess.SetToken(strings.TrimSpace(val))
			case "user-id", "user":
				sess.SetUserID(strings.TrimSpace(val))
			}
			return nil
		},
	}
}
