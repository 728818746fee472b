package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Payment struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email         string             `json:"email" bson:"email"`
	Amount        float64            `json:"amount" bson:"amount"`
	Currency      string             `json:"currency" bson:"currency"`
	TransactionID string             `json:"transactionId" bson:"transaction_id"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
}

type CreatePaymentIntentRequest struct {
	Price float64 `json:"price" validate:"gt=0,max=100000"`
}

func (r *CreatePaymentIntentRequest) Validate() map[string]string {
	return validateStruct(r)
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type SavePaymentRequest struct {
	TransactionID string  `json:"transactionId" validate:"required,max=255"`
	Amount        float64 `json:"amount" validate:"gt=0"`
}

func (r *SavePaymentRequest) Validate() map[string]string {
	return validateStruct(r)
}
