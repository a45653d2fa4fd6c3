package handlers

import (
	"encoding/json"
	"html"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"

	"gallerylinks/internal/selection"
)

// htmxError returns an error message as HTML that HTMX will display.
// Uses 200 status so HTMX processes the swap (HTMX ignores non-2xx by default).
func htmxError(c fiber.Ctx, message string) error {
	return c.SendString(
		`<div class="p-3 rounded-lg bg-red-50 dark:bg-red-900/30 text-red-700 dark:text-red-300 text-sm">` + html.EscapeString(message) + `</div>`,
	)
}

func isHTMX(c fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}

func currentSession(c fiber.Ctx) (*session.Middleware, error) {
	sess := session.FromContext(c)
	if sess == nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	return sess, nil
}

// visitorID returns the visitor's pick scope, creating one on first use.
func visitorID(c fiber.Ctx) (string, error) {
	sess, err := currentSession(c)
	if err != nil {
		return "", err
	}
	if id, ok := sess.Get(selection.VisitorKey).(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Set(selection.VisitorKey, id)
	return id, nil
}

// existingVisitorID is like visitorID but never creates a scope.
func existingVisitorID(c fiber.Ctx) string {
	sess := session.FromContext(c)
	if sess == nil {
		return ""
	}
	id, _ := sess.Get(selection.VisitorKey).(string)
	return id
}

// loadSelection reads the visitor's selection for a gallery from the session.
func loadSelection(c fiber.Ctx, shortID string) *selection.Set {
	set := selection.NewSet()
	sess := session.FromContext(c)
	if sess == nil {
		return set
	}
	raw, ok := sess.Get(selection.SelectedKey(shortID)).(string)
	if !ok || raw == "" {
		return set
	}
	if err := json.Unmarshal([]byte(raw), set); err != nil {
		return selection.NewSet()
	}
	return set
}

// saveSelection stores the selection, removing the key when it is empty.
func saveSelection(c fiber.Ctx, shortID string, set *selection.Set) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	key := selection.SelectedKey(shortID)
	if set.Len() == 0 {
		sess.Delete(key)
		return nil
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	sess.Set(key, string(raw))
	return nil
}
