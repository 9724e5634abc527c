package models

import (
	"time"
)

// Thought is a short text post. Username is denormalized from the author at
// creation time.
type Thought struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ThoughtText string     `gorm:"type:text;not null" json:"thought_text"`
	Username    string     `gorm:"not null;index" json:"username"`
	UserID      *uint      `gorm:"index" json:"user_id,omitempty"`
	CreatedAt   time.Time  `gorm:"index;autoCreateTime" json:"created_at"`
	Reactions   []Reaction `gorm:"foreignKey:ThoughtID;constraint:OnDelete:CASCADE" json:"reactions"`
}

// ReactionCount is the number of reactions attached to the thought.
func (t *Thought) ReactionCount() int {
	return len(t.Reactions)
}

// Reaction only exists inside its Thought; it is appended and never edited.
type Reaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ThoughtID    uint      `gorm:"not null;index" json:"-"`
	ReactionBody string    `gorm:"type:text;not null" json:"reaction_body"`
	Username     string    `gorm:"not null" json:"username"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
