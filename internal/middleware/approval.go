package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/auth"
)

// RequireApproved gates the data routes on the auth state machine: only an
// Approved decision lets a request through. Anything else maps to the screen
// the machine would route to, so the UI shell and the HTTP surface can never
// disagree about where the user belongs.
func RequireApproved(m *auth.Machine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := m.Snapshot()
			if st.Decision != auth.Approved {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"error":       "not_approved",
					"decision":    st.DecisionStr,
					"destination": st.Destination,
				})
			}
			if sess := m.Session(); sess != nil {
				c.Set("subject_id", sess.SubjectID)
			}
			return next(c)
		}
	}
}

// RequireAdmin additionally checks the current profile's role. The gateway
// re-checks authorization on every admin mutation; this gate only prevents
// pointless round trips.
func RequireAdmin(m *auth.Machine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := m.Profile(c.Request().Context())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]any{"error": "not_signed_in"})
			}
			if !p.IsAdmin() {
				return c.JSON(http.StatusForbidden, map[string]any{"error": "admin_only", "role": p.Role})
			}
			c.Set("profile", p)
			return next(c)
		}
	}
}
