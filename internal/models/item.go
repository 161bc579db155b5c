package models

import "time"

// Search modes accepted by the query endpoint.
const (
	ModeExact = "exact"
	ModeFuzzy = "fuzzy"
	ModeBroad = "broad"
	ModeAuto  = "auto"
)

// ValidMode reports whether mode is one of the supported search modes.
func ValidMode(mode string) bool {
	switch mode {
	case ModeExact, ModeFuzzy, ModeBroad, ModeAuto:
		return true
	}
	return false
}

// Item is the authoritative inventory record. Sensitive text fields
// (name, category, tag names, size titles) are stored encrypted in the
// database and decrypted before entering the search pipeline.
type Item struct {
	ID              int       `json:"id" db:"id"`
	Category        string    `json:"category" db:"category"`
	CategoryCounter int       `json:"categoryCounter" db:"category_counter"`
	Name            string    `json:"name" db:"name"`
	ImageURL        *string   `json:"imageUrl" db:"image_url"`
	Tags            []string  `json:"tags"`
	Sizes           []Size    `json:"sizes"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// Size is one size variant of an inventory item. Price is whole currency
// units (VND), never fractional.
type Size struct {
	ItemID   int    `json:"-" db:"item_id"`
	Title    string `json:"title" db:"title"`
	Quantity int    `json:"quantity" db:"quantity"`
	OnHand   int    `json:"onHand" db:"on_hand"`
	Price    int64  `json:"price" db:"price"`
}

// SearchDocument is the denormalized, decrypted projection of an Item
// that lives in the search index. Document id = stringified item id, so
// repeated upserts overwrite rather than duplicate.
type SearchDocument struct {
	ID          int       `json:"id"`
	FormattedID string    `json:"formatted_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	Tags        []string  `json:"tags"`
	Sizes       []Size    `json:"sizes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchQuery is an ephemeral search request.
type SearchQuery struct {
	Text     string `json:"q"`
	Mode     string `json:"mode"`
	Category string `json:"category,omitempty"`
	HasImage bool   `json:"hasImage,omitempty"`
	Sort     string `json:"sort,omitempty"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

// SearchHit is a single scored document returned by a backend.
type SearchHit struct {
	Document   SearchDocument      `json:"document"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchItem is one reconciled result row in the API response.
type SearchItem struct {
	ID          int                 `json:"id"`
	FormattedID string              `json:"formattedId"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	ImageURL    *string             `json:"imageUrl"`
	Tags        []string            `json:"tags"`
	Sizes       []Size              `json:"sizes"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Score       float64             `json:"_score"`
	Highlights  map[string][]string `json:"_highlights,omitempty"`
}
