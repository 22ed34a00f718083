package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User is the slice of the platform account the gamification core needs.
// Account management itself lives outside this service.
// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role     UserRole `gorm:"size:20;not null" json:"role"`
	IsActive bool     `gorm:"not null" json:"isActive"`

	Progress *ProgressAccount `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"progress,omitempty"`
	Streak   *Streak          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"streak,omitempty"`
}

func (User) TableName() string {
	return "users"
}
