package audit

type ListResponse struct {
	Logs       []AuditLog `json:"logs"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalCount int64      `json:"total_count"`
	TotalPages int        `json:"total_pages"`
}
