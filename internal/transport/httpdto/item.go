package httpdto

// Item is the body of PUT /items/:item_id. Pointers let the validator tell a
// missing field from a zero value.
type Item struct {
	Name    *string  `json:"name" binding:"required"`
	Price   *float64 `json:"price" binding:"required"`
	IsOffer *bool    `json:"is_offer,omitempty"`
}

// RootResponse is returned by GET /
type RootResponse struct {
	Hello string `json:"Hello"`
}

// ReadItemResponse is returned by GET /items/:item_id
type ReadItemResponse struct {
	ItemID int     `json:"item_id"`
	Q      *string `json:"q"`
}

// UpdateItemResponse is returned by PUT /items/:item_id
type UpdateItemResponse struct {
	ItemName string `json:"item_name"`
	ItemID   int    `json:"item_id"`
}
