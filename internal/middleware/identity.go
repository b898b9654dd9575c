package middleware

import "github.com/labstack/echo/v4"

// Actor returns the admin username stored by JWTAuth, or "" for
// unauthenticated requests.
func Actor(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}

// clientKey identifies the caller for rate limiting: the admin username
// when authenticated, "guest" otherwise.
func clientKey(c echo.Context) string {
	if a := Actor(c); a != "" {
		return a
	}
	return "guest"
}
