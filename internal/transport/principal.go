package transport

import (
	"net/http"

	"glowmarket/internal/middleware"
	"glowmarket/internal/service"

	"github.com/google/uuid"
)

// principalFromRequest reconstructs the authenticated principal from the
// claims the auth middleware placed in context
func principalFromRequest(r *http.Request) (service.Principal, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return service.Principal{}, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return service.Principal{}, false
	}

	role, ok := middleware.GetUserRole(r.Context())
	if !ok {
		return service.Principal{}, false
	}

	return service.Principal{UserID: userID, Role: role}, true
}
