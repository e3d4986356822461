package domain

// Reward is a catalog entry purchasable with coins.
type Reward struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Partner     string `json:"partner"`
}
