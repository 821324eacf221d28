package garages

type GarageListResponse struct {
	Garages    []Garage `json:"garages"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalCount int64    `json:"total_count"`
	TotalPages int      `json:"total_pages"`
}

type SpotListResponse struct {
	GarageID       string        `json:"garage_id"`
	Spots          []ParkingSpot `json:"spots"`
	TotalSpots     int           `json:"total_spots"`
	AvailableSpots int           `json:"available_spots"`
}
