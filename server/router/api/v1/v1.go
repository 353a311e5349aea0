// Package v1 exposes the JSON surface consumed by the app's entry points:
// the foreground UI, the share extension, the widget feed, and the
// shortcut/background handler.
package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hilite/wingman/internal/profile"
	apperrors "github.com/hilite/wingman/server/internal/errors"
	"github.com/hilite/wingman/server/middleware"
	"github.com/hilite/wingman/server/service/dialog"
	"github.com/hilite/wingman/store"
)

// APIV1Service wires the lifecycle service into echo routes.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Dialog  *dialog.Service

	// replyLimiter throttles the reply-generation endpoint per user.
	replyLimiter *middleware.RateLimiter
}

func NewAPIV1Service(p *profile.Profile, st *store.Store, dialogService *dialog.Service) *APIV1Service {
	return &APIV1Service{
		Profile: p,
		Store:   st,
		Dialog:  dialogService,
		// One generation per 2s with a small burst absorbs double-taps that
		// get past the reentrancy guard via distinct dialogs.
		replyLimiter: middleware.NewRateLimiter(2*time.Second, 3),
	}
}

// Register attaches all v1 routes.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/dialogs", s.createDialog)
	g.PATCH("/dialogs/:uid", s.updateDialog)
	g.DELETE("/dialogs/:uid", s.deleteDialog)
	g.POST("/dialogs/:uid/replies", s.fetchReplies)

	g.GET("/groups", s.listGroups)
	g.GET("/groups/:uid", s.getGroup)
	g.PATCH("/groups/:uid", s.updateGroup)
	g.DELETE("/groups/:uid", s.deleteGroup)

	g.POST("/shortcut/reply", s.shortcutReply)

	g.PATCH("/user/settings", s.updateUserSettings)
	g.DELETE("/user/data", s.clearUserData)
}

// userID resolves the acting user. The app is effectively single-user per
// device; extensions pass the same id the main app does.
func userID(c echo.Context) int32 {
	if v := c.Request().Header.Get("X-User-ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 32); err == nil && id > 0 {
			return int32(id)
		}
	}
	return 1
}

// receiptToken extracts the entitlement receipt from the Authorization header.
func receiptToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// httpError maps an error's code onto an HTTP status.
func httpError(err error) *echo.HTTPError {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeInvalidArgument:
		status = http.StatusBadRequest
	case apperrors.ErrCodeReentrancyRejected:
		status = http.StatusConflict
	case apperrors.ErrCodeUnentitled:
		status = http.StatusPaymentRequired
	case apperrors.ErrCodeNetwork:
		status = http.StatusBadGateway
	}
	return echo.NewHTTPError(status, err.Error())
}
