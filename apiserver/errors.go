package apiserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/preslavrachev/nailgun/adapters/sql"
)

// writeError answers the way the API reports errors:
// {"error": {"message": "..."}}
func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"message": message}})
}

// writeValidationError answers 422 with every problem found
func writeValidationError(c *gin.Context, problems []string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{
		"message":       "Validation failed: " + strings.Join(problems, ", "),
		"full_messages": problems,
	}})
}

// writeStoreError maps store errors to answers
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sql.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, sql.ErrInvalidQuery):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}
