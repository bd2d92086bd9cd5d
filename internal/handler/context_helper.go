package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/middleware"
	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.HubClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// hubFromContext returns the hub resolved by middleware.HubScope.
func hubFromContext(c *gin.Context) (string, error) {
	hubID := middleware.HubID(c)
	if hubID == "" {
		return "", appErrors.ErrUnauthorized
	}
	return hubID, nil
}

func studentIDParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid student id")
	}
	return id, nil
}

// facilitatorSubject returns the subject a facilitator session is limited to, or
// an empty string for roles that may write any subject.
func facilitatorSubject(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleFacilitator {
		return ""
	}
	return claims.Subject
}

func seriesQuery(c *gin.Context) string {
	return c.Query("series")
}
