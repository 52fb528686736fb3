package handler

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/demo.html
var demoPage []byte

// Demo serves a page that talks to the echo socket at /ws.
func Demo(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", demoPage)
}
