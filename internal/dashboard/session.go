// Package dashboard holds the per-page controller: session state, push update
// handling, user commands and the delayed reloads they trigger.
package dashboard

import "regexp"

var queuePath = regexp.MustCompile(`/queue/(\d+)`)

// Session is the state of one open page. ActiveServerID is fixed when the page
// opens; IsPlaying changes only on successful pause and resume.
type Session struct {
	ActiveServerID string
	IsPlaying      bool
}

// NewSession derives the session from the page path. Paths without a
// /queue/<digits> segment are the landing page and have no active server.
func NewSession(path string) Session {
	s := Session{IsPlaying: true}
	if m := queuePath.FindStringSubmatch(path); m != nil {
		s.ActiveServerID = m[1]
	}
	return s
}

func (s Session) HasServer() bool {
	return s.ActiveServerID != ""
}
