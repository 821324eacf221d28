package notifications

type ListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=unread read"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
