package web

import (
	"net/http"
	"time"

	"github.com/vbonduro/betelcare/internal/capture"
	"github.com/vbonduro/betelcare/internal/chat"
	"github.com/vbonduro/betelcare/internal/domain"
	"github.com/vbonduro/betelcare/internal/i18n"
	"github.com/vbonduro/betelcare/internal/session"
)

const sessionCookie = "betelcare_session"

// session returns the caller's session, starting a new one and setting the
// cookie when the request carries no live session id.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// existingSession looks up the caller's session without creating one.
func (s *Server) existingSession(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.sessions.Get(c.Value)
}

type captureView struct {
	Lang    i18n.Language
	Capture capture.Snapshot
}

type chatView struct {
	Lang i18n.Language
	Chat chat.Snapshot
}

type historyView struct {
	Lang    i18n.Language
	Entries []*domain.Diagnosis
}

type pageView struct {
	Lang      i18n.Language
	Languages []i18n.Option
	Capture   captureView
	Chat      chatView
	History   historyView
	Year      int
}

func newPageView(sess *session.Session, history []*domain.Diagnosis) pageView {
	lang := sess.Language()
	return pageView{
		Lang:      lang,
		Languages: i18n.Languages(),
		Capture:   captureView{Lang: lang, Capture: sess.Capture.Snapshot()},
		Chat:      chatView{Lang: lang, Chat: sess.Chat.Snapshot()},
		History:   historyView{Lang: lang, Entries: history},
		Year:      time.Now().Year(),
	}
}
