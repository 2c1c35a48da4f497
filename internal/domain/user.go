package domain

import "time"

// User 表示应用程序中的用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:text;not null"` // 存储的是 bcrypt 哈希，不能为空
	Email     string    `gorm:"type:varchar(191);uniqueIndex:idx_email"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// UserView 是用户的 API 表示，不包含密码哈希。
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ToView 将用户转换为 API 表示。
func (u *User) ToView() UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email}
}
