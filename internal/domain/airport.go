package domain

// Airport is a reference airport used for location answers and search.
type Airport struct {
	Code      string  `json:"code" db:"code"` // IATA, uppercase
	Name      string  `json:"name" db:"name"`
	City      string  `json:"city" db:"city"`
	Country   string  `json:"country" db:"country"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}
