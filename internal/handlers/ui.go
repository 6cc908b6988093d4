package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farmersupply/internal/store"
)

// Home reports liveness and whether the store answers.
func Home(pinger store.Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		database := "up"
		if err := ensureStoreAvailable(c.Request.Context(), pinger); err != nil {
			database = "down"
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "Farmer Supply API is running",
			"database": database,
		})
	}
}
