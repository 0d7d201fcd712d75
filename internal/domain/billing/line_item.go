package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/salonsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemType distinguishes billable services from retail products
type ItemType string

const (
	ItemTypeService ItemType = "SERVICE"
	ItemTypeProduct ItemType = "PRODUCT"
)

// IsValid checks if the item type is valid
func (t ItemType) IsValid() bool {
	return t == ItemTypeService || t == ItemTypeProduct
}

// String returns the string representation of ItemType
func (t ItemType) String() string {
	return string(t)
}

// LineItem represents one billable row on an invoice.
// It is a value object within the Invoice aggregate, stored as JSONB.
// Total is always Quantity * UnitPrice; Recalculate restores the invariant
// after any change to quantity or price.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	Type        ItemType        `json:"type"`
	Name        string          `json:"name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	ServiceID   *uuid.UUID      `json:"service_id,omitempty"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	StylistID   *uuid.UUID      `json:"stylist_id,omitempty"`
	StylistName string          `json:"stylist_name,omitempty"`
}

// NewLineItem creates a new line item with its total computed
func NewLineItem(itemType ItemType, name string, quantity int64, unitPrice decimal.Decimal) (*LineItem, error) {
	if !itemType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ITEM_TYPE", "Line item type must be SERVICE or PRODUCT")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ITEM_NAME", "Line item name cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line item quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_PRICE", "Line item unit price cannot be negative")
	}

	item := &LineItem{
		ID:        uuid.New(),
		Type:      itemType,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	item.Recalculate()
	return item, nil
}

// Recalculate restores Total = Quantity * UnitPrice
func (li *LineItem) Recalculate() {
	li.Total = li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

// LineItems is a slice of LineItem that implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (li LineItems) Value() (driver.Value, error) {
	if li == nil {
		return "[]", nil
	}
	return json.Marshal(li)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (li *LineItems) Scan(value interface{}) error {
	if value == nil {
		*li = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*li = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, li)
}
