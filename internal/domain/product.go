package domain

import "time"

// DepositPolicy holds per-tier deposit percentages. A nil entry falls back to the global default.
type DepositPolicy struct {
	Unverified *int `json:"unverified,omitempty"`
	Verified   *int `json:"verified,omitempty"`
	Premium    *int `json:"premium,omitempty"`
}

type Shop struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	Name        string    `json:"name"`
	CreatedOn   time.Time `json:"created_on"`
}

type Product struct {
	ID            string        `json:"id"`
	ShopID        string        `json:"shop_id"`
	Name          string        `json:"name"`
	Price         int64         `json:"price"`
	DepositPolicy DepositPolicy `json:"deposit_policy"`
	Stock         int           `json:"stock"`
	// AvailableStock is a display counter. Unit rows are authoritative.
	AvailableStock int       `json:"available_stock"`
	CreatedOn      time.Time `json:"created_on"`
	UpdatedOn      time.Time `json:"updated_on"`
}

type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusRented    UnitStatus = "rented"
)

type Unit struct {
	ID        string     `json:"id"`
	ProductID string     `json:"product_id"`
	UnitLabel string     `json:"unit_label"`
	Status    UnitStatus `json:"status"`
	RenterID  *string    `json:"renter_id,omitempty"`
	UpdatedOn time.Time  `json:"updated_on"`
}

// UnitCounts summarises the unit rows of one product.
type UnitCounts struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Rented    int `json:"rented"`
}
