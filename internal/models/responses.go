package models

import "time"

// HealthResponse represents a basic health check response
// @Description Health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`                 // Health status
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"` // Timestamp of the check
	Version   string    `json:"version" example:"1.0.0"`                  // Application version
}

// DBHealthResponse represents a database health check response
// @Description Database health check response
type DBHealthResponse struct {
	Status    string        `json:"status" example:"healthy"`                   // Health status
	Timestamp time.Time     `json:"timestamp" example:"2023-01-01T00:00:00Z"`   // Timestamp of the check
	Connected bool          `json:"connected" example:"true"`                   // Database connection status
	Latency   time.Duration `json:"latency" swaggertype:"string" example:"1ms"` // Database ping latency
	Error     string        `json:"error,omitempty" example:""`                 // Error message if any
}

// SearchHealthResponse reports the connection state of each search backend
// @Description Search backend health response
type SearchHealthResponse struct {
	Status        string    `json:"status" example:"healthy"`
	Timestamp     time.Time `json:"timestamp"`
	Elasticsearch string    `json:"elasticsearch" example:"connected"`
	Typesense     string    `json:"typesense" example:"disconnected"`
}

// SearchResponse is the payload of the search endpoint
// @Description Search response payload
type SearchResponse struct {
	Items         []SearchItem `json:"items"`
	Total         int          `json:"total" example:"42"`
	Page          int          `json:"page" example:"1"`
	TotalPages    int          `json:"totalPages" example:"3"`
	HasMore       bool         `json:"hasMore" example:"true"`
	SearchTime    int64        `json:"searchTime" example:"12"` // Milliseconds
	Fallback      bool         `json:"fallback,omitempty"`      // True when a degraded backend served the request
	Elasticsearch *bool        `json:"elasticsearch,omitempty"`
	Typesense     *bool        `json:"typesense,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// ItemMutationResponse is returned by the inventory create/update/delete endpoints
// @Description Inventory mutation response
type ItemMutationResponse struct {
	Success bool   `json:"success" example:"true"`
	ID      int    `json:"id,omitempty" example:"831"`
	Error   string `json:"error,omitempty"`
}

// ItemRequest is the create/update payload for an inventory item
// @Description Inventory item payload
type ItemRequest struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	ImageURL *string  `json:"imageUrl"`
	Tags     []string `json:"tags"`
	Sizes    []Size   `json:"sizes"`
}

// AISearchRequest asks the AI search endpoint to find items matching a free-text description
// @Description AI-assisted search request
type AISearchRequest struct {
	Description string `json:"description" example:"áo dài đỏ cho cô dâu, có họa tiết gấm"`
	Limit       int    `json:"limit,omitempty" example:"10"`
}

// AISearchResponse is the AI-assisted search payload
// @Description AI-assisted search response
type AISearchResponse struct {
	Items    []SearchItem `json:"items"`
	Keywords string       `json:"keywords,omitempty"` // Query text the AI extracted from the description
	Fallback bool         `json:"fallback,omitempty"` // True when keyword extraction was skipped
	Error    string       `json:"error,omitempty"`
}

// AdminAuthRequest is the admin login payload
// @Description Admin login request
type AdminAuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminAuthResponse is the admin login result
// @Description Admin login response
type AdminAuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReindexResponse reports the outcome of triggering a bulk reindex
// @Description Reindex trigger response
type ReindexResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	JobName string `json:"job_name,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AnalyticsSummaryResponse aggregates recent search activity
// @Description Search analytics summary
type AnalyticsSummaryResponse struct {
	Period        string       `json:"period" example:"last_7_days"`
	TotalSearches int          `json:"total_searches"`
	FallbackRate  float64      `json:"fallback_rate"`
	AvgLatencyMS  float64      `json:"avg_latency_ms"`
	TopQueries    []TopQuery   `json:"top_queries"`
	Error         string       `json:"error,omitempty"`
}

// TopQuery is one aggregated query row in the analytics summary
type TopQuery struct {
	Text  string `json:"text" db:"query_text"`
	Count int    `json:"count" db:"count"`
}
