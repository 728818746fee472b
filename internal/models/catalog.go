package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Tag struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

func (r *CreateTagRequest) Validate() map[string]string {
	return validateStruct(r)
}

type Announcement struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorEmail string             `json:"authorEmail" bson:"author_email"`
	AuthorName  string             `json:"authorName" bson:"author_name"`
	AuthorImage string             `json:"authorImage,omitempty" bson:"author_image,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
}

type CreateAnnouncementRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
}

func (r *CreateAnnouncementRequest) Validate() map[string]string {
	return validateStruct(r)
}

// DashboardStats feeds the admin overview page.
type DashboardStats struct {
	Users            int64 `json:"users"`
	Posts            int64 `json:"posts"`
	Comments         int64 `json:"comments"`
	ReportedComments int64 `json:"reportedComments"`
	Tags             int64 `json:"tags"`
	Announcements    int64 `json:"announcements"`
}
