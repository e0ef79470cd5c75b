package entity

// User is a registered identity with its mutable profile
type User struct {
	Id        string `json:"id" gorm:"column:id;primaryKey;size:32"`
	Nickname  string `json:"nickname" gorm:"column:nickname;size:64"`
	Email     string `json:"email" gorm:"column:email;size:128"`
	Phone     string `json:"phone" gorm:"column:phone;size:32"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// UserInfo represents public user info
type UserInfo struct {
	Id        string `json:"id"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// ToUserInfo converts User to UserInfo
func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		Id:        u.Id,
		Nickname:  u.Nickname,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}
