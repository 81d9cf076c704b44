package http

import (
	"net/http"
	"sort"

	"github.com/dkeye/Captions/internal/core"
	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status string `json:"status"`
}

// RoomsHandler lists the live rooms sorted by name.
func RoomsHandler(rooms core.RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := rooms.List()
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		c.JSON(http.StatusOK, list)
	}
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
