package handler

import (
	"net/http"

	"assetdesk/internal/apperr"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps the service error taxonomy onto HTTP statuses:
// validation and bad references → 400, missing rights → 403, unknown primary
// entity → 404, already-resolved transitions → 409, anything else → 500.
func writeError(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err), apperr.IsReference(err):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case apperr.IsPermission(err):
		// Generic message so the response never leaks who is allowed.
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "not authorized"))
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case apperr.IsInvalidState(err):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}
