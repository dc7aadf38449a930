package domain

// Stock states reported by the shelf hardware and aggregated for the
// product-states-update broadcast.
const (
	StateAvailable = "available"
	StateLow       = "low"
	StateOut       = "out"
)

type Product struct {
	ID       string  `bson:"_id,omitempty" json:"id"`
	Title    string  `bson:"title" json:"title"`
	Barcode  string  `bson:"barcode" json:"barcode"`
	Price    float64 `bson:"price" json:"price"`
	Stock    int     `bson:"stock" json:"stock"`
	State    string  `bson:"state" json:"state"`
	ImageURL string  `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
}

// StateCounts tallies products per stock state.
type StateCounts struct {
	Available int `json:"available"`
	Low       int `json:"low"`
	Out       int `json:"out"`
	Total     int `json:"total"`
}
