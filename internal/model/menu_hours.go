package model

// MenuHours is one local operating window of a store on one weekday.
// DayOfWeek is 0 for Monday through 6 for Sunday. Times are stored as HH:MM:SS;
// a start after the end denotes a window that runs past midnight.
type MenuHours struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	StoreID        string `gorm:"size:64;not null;index;uniqueIndex:uq_menu_hours,priority:1"`
	DayOfWeek      int    `gorm:"not null;uniqueIndex:uq_menu_hours,priority:2"`
	StartTimeLocal string `gorm:"size:8;not null;uniqueIndex:uq_menu_hours,priority:3"`
	EndTimeLocal   string `gorm:"size:8;not null;uniqueIndex:uq_menu_hours,priority:4"`
}

func (MenuHours) TableName() string { return "menu_hours" }
