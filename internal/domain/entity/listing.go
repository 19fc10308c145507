package entity

import "time"

type Listing struct {
	ID       string  `json:"id" firestore:"id"`
	SellerID string  `json:"seller_id" firestore:"sellerId"`
	Title    string  `json:"title" firestore:"title"`
	Address  string  `json:"address,omitempty" firestore:"address,omitempty"`
	City     string  `json:"city,omitempty" firestore:"city,omitempty"`
	Price    float64 `json:"price" firestore:"price"`
	Status   string  `json:"status" firestore:"status"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
