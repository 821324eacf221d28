package audit

type ListQuery struct {
	EntityType string `form:"entity_type" binding:"omitempty,oneof=booking garage parking_spot wallet transaction user"`
	EntityID   string `form:"entity_id" binding:"omitempty,uuid"`
	UserID     string `form:"user_id" binding:"omitempty,uuid"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
