package handlers

import (
	"net/http"
	"strconv"

	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// pathID parses a numeric path parameter, responding 400 on garbage.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest,
			"Invalid "+name+" parameter", ""))
		return 0, false
	}
	return id, true
}

// queryInt64 parses an optional integer query parameter with a fallback.
func queryInt64(c *gin.Context, name string, fallback int64) int64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func bindError(c *gin.Context, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
		"Invalid request payload: "+err.Error(), err.Error()))
}

func internalError(c *gin.Context, action string) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
		"Failed to "+action+".", "Internal error"))
}
