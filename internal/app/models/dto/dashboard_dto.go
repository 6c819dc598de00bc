package dto

// DashboardStats are the tiles on the dashboard home page
type DashboardStats struct {
	ActiveStudents int64  `json:"activeStudents"`
	ActiveTeachers int64  `json:"activeTeachers"`
	ActiveGroups   int64  `json:"activeGroups"`
	AvailableRooms int64  `json:"availableRooms"`
	Guardians      int64  `json:"guardians"`
	UnreadMessages int64  `json:"unreadMessages"`
	ActiveYear     string `json:"activeYear,omitempty"`
}

// UpdateSettingsRequest replaces one settings section
type UpdateSettingsRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}
