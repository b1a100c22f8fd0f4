package models

// Category represents a catalog category and its sub-categories
type Category struct {
	ID            int      `bson:"_id" json:"id"`
	Name          string   `bson:"name" json:"name"`
	SubCategories []string `bson:"sub_categories,omitempty" json:"subCategories,omitempty"`
}

// Store represents a physical shop, some of which accept in-store pickup
type Store struct {
	ID          int    `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Address     string `bson:"address" json:"address"`
	City        string `bson:"city" json:"city"`
	Phone       string `bson:"phone" json:"phone"`
	PickupPoint bool   `bson:"pickup_point" json:"pickupPoint"`
}
