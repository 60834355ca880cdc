package web

import (
	"net/http"

	"github.com/vbonduro/betelcare/internal/i18n"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	history, err := sess.History(r.Context(), historyLimit)
	if err != nil {
		s.logger.Error("list history failed", "session_id", sess.ID, "error", err)
	}

	if err := s.renderPage(w, sess.Language(), "pages/index.html", newPageView(sess, history)); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleLanguage switches the session language and reloads the page. Capture
// and chat state are left untouched.
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	lang, ok := i18n.ParseLanguage(r.FormValue("lang"))
	if !ok {
		http.Error(w, "unsupported language", http.StatusBadRequest)
		return
	}
	sess.SetLanguage(lang)

	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	entries, err := sess.History(r.Context(), historyLimit)
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		s.logger.Error("list history failed", "session_id", sess.ID, "error", err)
		return
	}

	if err := s.renderPartial(w, sess.Language(), "history", historyView{Lang: sess.Language(), Entries: entries}); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}
