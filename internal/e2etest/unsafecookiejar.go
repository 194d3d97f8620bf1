package e2etest

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/myrjola/skinwise/internal/errors"
)

// plainHTTPJar stores cookies as if every Secure cookie had been set over plain HTTP.
//
// The server marks its session and CSRF cookies Secure, but the test server listens on http://localhost.
type plainHTTPJar struct {
	jar *cookiejar.Jar
}

func newPlainHTTPJar() (*plainHTTPJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &plainHTTPJar{jar: jar}, nil
}

func (j *plainHTTPJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	relaxed := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		c := *cookie
		c.Secure = false
		relaxed = append(relaxed, &c)
	}
	j.jar.SetCookies(u, relaxed)
}

func (j *plainHTTPJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Cookie returns the value of the named cookie stored for u.
func (j *plainHTTPJar) Cookie(u *url.URL, name string) (string, bool) {
	for _, c := range j.jar.Cookies(u) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}
