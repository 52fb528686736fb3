package handler

import (
	"net/http"
	"strconv"

	"wsecho/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct{}

func NewItemHandler() *ItemHandler {
	return &ItemHandler{}
}

func (h *ItemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.RootResponse{Hello: "World"})
}

// Read answers GET /items/:item_id with the path id and the optional q
// query parameter (null when absent).
func (h *ItemHandler) Read(c *gin.Context) {
	itemID, err := parseItemID(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse("item_id must be an integer", httpdto.CodeValidation))
		return
	}

	resp := httpdto.ReadItemResponse{ItemID: itemID}
	if q, ok := c.GetQuery("q"); ok {
		resp.Q = &q
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ItemHandler) Update(c *gin.Context) {
	itemID, err := parseItemID(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse("item_id must be an integer", httpdto.CodeValidation))
		return
	}

	var item httpdto.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse(err.Error(), httpdto.CodeValidation))
		return
	}

	c.JSON(http.StatusOK, httpdto.UpdateItemResponse{
		ItemName: *item.Name,
		ItemID:   itemID,
	})
}

func parseItemID(value string) (int, error) {
	return strconv.Atoi(value)
}
