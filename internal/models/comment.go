package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment moderation only moves forward: once Reported is set it stays set.
type Comment struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PostID    primitive.ObjectID `json:"postId" bson:"post_id"`
	PostTitle string             `json:"postTitle,omitempty" bson:"post_title,omitempty"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	Body      string             `json:"body" bson:"body"`
	Feedback  string             `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Reported  bool               `json:"reported" bson:"reported"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

type CreateCommentRequest struct {
	PostID string `json:"postId" validate:"required,len=24,hexadecimal"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Body   string `json:"body" validate:"required,max=2000"`
}

func (r *CreateCommentRequest) Validate() map[string]string {
	return validateStruct(r)
}

type ReportCommentRequest struct {
	Feedback string `json:"feedback" validate:"required,max=500"`
}

func (r *ReportCommentRequest) Validate() map[string]string {
	return validateStruct(r)
}
