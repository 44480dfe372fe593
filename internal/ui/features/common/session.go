package common

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/spcai/labcms/internal/ui/components"
)

// AddFlash queues t for the next page render and saves the session. It must
// be called before anything is written to w.
func AddFlash(w http.ResponseWriter, r *http.Request, store sessions.Store, t components.Toast) error {
	sess, err := store.Get(r, SessionName)
	if err != nil && sess == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	sess.AddFlash(string(b), flashKey)
	return sess.Save(r, w)
}

// Flashes pops the queued toasts. A broken session yields no toasts.
func Flashes(w http.ResponseWriter, r *http.Request, store sessions.Store) []components.Toast {
	sess, err := store.Get(r, SessionName)
	if err != nil && sess == nil {
		return nil
	}
	raw := sess.Flashes(flashKey)
	if len(raw) == 0 {
		return nil
	}
	toasts := make([]components.Toast, 0, len(raw))
	for _, f := range raw {
		s, ok := f.(string)
		if !ok {
			continue
		}
		var t components.Toast
		if err := json.Unmarshal([]byte(s), &t); err == nil {
			toasts = append(toasts, t)
		}
	}
	_ = sess.Save(r, w)
	return toasts
}

// SessionID returns the id of the browser session, creating and saving
// one when the request has none. It must be called before anything is
// written to w.
func SessionID(w http.ResponseWriter, r *http.Request, store sessions.Store) (string, error) {
	sess, err := store.Get(r, SessionName)
	if err != nil && sess == nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}
