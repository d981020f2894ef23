package resources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID is a record identifier. The API returns numeric ids, but some endpoints
// quote them, so both forms are accepted.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Company is a tenant.
type Company struct {
	ID        ID         `json:"id"`
	Name      string     `json:"name"`
	TaxID     string     `json:"tax_id,omitempty"`
	Address   string     `json:"address,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Warehouse belongs to a company.
type Warehouse struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	CompanyID ID     `json:"company,omitempty"`
}

// Product is a stock-keeping unit held in a warehouse.
type Product struct {
	ID          ID     `json:"id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Stock       int    `json:"stock"`
	WarehouseID ID     `json:"warehouse,omitempty"`
}

// User is an account as returned by the users and profile endpoints.
type User struct {
	ID          ID     `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Role        string `json:"role,omitempty"`
	CompanyID   ID     `json:"company,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// DisplayName is the full name, falling back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Role is a named permission set.
type Role struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MovementKind is the direction of a stock movement.
type MovementKind string

const (
	MovementIn       MovementKind = "in"
	MovementOut      MovementKind = "out"
	MovementTransfer MovementKind = "transfer"
)

// Movement records a change in stock.
type Movement struct {
	ID          ID           `json:"id"`
	ProductID   ID           `json:"product"`
	WarehouseID ID           `json:"warehouse,omitempty"`
	Kind        MovementKind `json:"kind"`
	Quantity    int          `json:"quantity"`
	Note        string       `json:"note,omitempty"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
}

// Record is an untyped API record, used where the kind is chosen at runtime.
type Record map[string]any
