package syncapi

// PullQuery is the query string of GET /sync/:entity.
type PullQuery struct {
	Since  string `form:"since"`
	Limit  *int   `form:"limit" binding:"omitempty,min=1"`
	Offset *int   `form:"offset" binding:"omitempty,min=0"`
}

// PushBody is the JSON body of POST /sync/:entity.
type PushBody struct {
	IdempotencyKey string        `json:"idempotency_key" binding:"required"`
	Records        []interface{} `json:"records" binding:"required"`
	Source         *string       `json:"source"`
	Cursor         *string       `json:"cursor"`
}

type EntitiesResponse struct {
	Entities interface{} `json:"entities"`
}
