package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Badge is the membership tier. Bronze members may only publish a limited
// number of posts; a completed payment upgrades them to gold.
type Badge string

const (
	BadgeBronze Badge = "bronze"
	BadgeGold   Badge = "gold"
)

type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Name      string             `json:"name" bson:"name"`
	Photo     string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Role      Role               `json:"role" bson:"role"`
	Badge     Badge              `json:"badge" bson:"badge"`
	PostCount int                `json:"postCount" bson:"post_count"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// NewUser returns a first-contact user record with the fixed registration
// defaults applied.
func NewUser(email, name, photo string, now time.Time) User {
	return User{
		Email:     email,
		Name:      name,
		Photo:     photo,
		Role:      RoleUser,
		Badge:     BadgeBronze,
		PostCount: 0,
		Timestamp: now.UTC(),
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type RegisterUserRequest struct {
	Name  string `json:"name" validate:"max=100"`
	Photo string `json:"photo" validate:"omitempty,url,max=2048"`
}

func (r *RegisterUserRequest) Validate() map[string]string {
	return validateStruct(r)
}

type RoleResponse struct {
	Role Role `json:"role"`
}

// Profile is a user together with their most recent posts.
type Profile struct {
	User        User   `json:"user"`
	RecentPosts []Post `json:"recentPosts"`
}

// LoginRequest exchanges an identity-provider token for a session. A bare
// email is only accepted when unverified login is enabled.
type LoginRequest struct {
	IDToken string `json:"idToken" validate:"required_without=Email"`
	Email   string `json:"email" validate:"omitempty,email,max=254"`
}

func (r *LoginRequest) Validate() map[string]string {
	return validateStruct(r)
}

type SessionResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}
