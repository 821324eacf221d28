package notifications

type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	TotalCount    int64          `json:"total_count"`
}
