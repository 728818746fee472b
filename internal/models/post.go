package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorEmail string             `json:"authorEmail" bson:"author_email"`
	AuthorName  string             `json:"authorName" bson:"author_name"`
	AuthorImage string             `json:"authorImage,omitempty" bson:"author_image,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Tags        []string           `json:"tags" bson:"tags"`
	UpVote      int                `json:"upVote" bson:"up_vote"`
	DownVote    int                `json:"downVote" bson:"down_vote"`
	// Score is upVote - downVote, only present on popularity-sorted listings.
	Score     *int      `json:"score,omitempty" bson:"score,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

type CreatePostRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=10000"`
	Tags        []string `json:"tags" validate:"required,min=1,max=5,dive,required,max=50"`
}

func (r *CreatePostRequest) Validate() map[string]string {
	return validateStruct(r)
}
