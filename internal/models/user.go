// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account on the service.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:30" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null;size:254" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Friends is the one-directional friend set of this user, stored in
	// user_friends keyed by (user_id, friend_id).
	Friends  []*User   `gorm:"many2many:user_friends;joinForeignKey:UserID;joinReferences:FriendID" json:"friends,omitempty"`
	Thoughts []Thought `gorm:"foreignKey:UserID" json:"thoughts,omitempty"`
}

// FriendCount is the size of the user's friend set.
func (u *User) FriendCount() int {
	return len(u.Friends)
}

// UserFriend is the join row behind User.Friends. The composite primary key
// makes the friend list a set.
type UserFriend struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	FriendID  uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the table name for GORM
func (UserFriend) TableName() string {
	return "user_friends"
}
