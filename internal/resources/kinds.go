package resources

import (
	"fmt"
	"sort"
	"strings"
)

// Kind describes a resource collection for runtime lookup.
type Kind struct {
	Name    string
	Path    string
	Aliases []string
	// Columns are the record keys shown in table output, in order.
	Columns []string
}

var (
	KindCompanies = Kind{
		Name:    "companies",
		Path:    "/api/companies/",
		Aliases: []string{"company", "co"},
		Columns: []string{"id", "name", "tax_id", "email"},
	}
	KindWarehouses = Kind{
		Name:    "warehouses",
		Path:    "/api/warehouses/",
		Aliases: []string{"warehouse", "wh"},
		Columns: []string{"id", "name", "location", "company"},
	}
	KindProducts = Kind{
		Name:    "products",
		Path:    "/api/products/",
		Aliases: []string{"product", "prod"},
		Columns: []string{"id", "sku", "name", "stock", "price"},
	}
	KindUsers = Kind{
		Name:    "users",
		Path:    "/api/users/",
		Aliases: []string{"user"},
		Columns: []string{"id", "username", "email", "role"},
	}
	KindRoles = Kind{
		Name:    "roles",
		Path:    "/api/roles/",
		Aliases: []string{"role"},
		Columns: []string{"id", "name", "description"},
	}
	KindMovements = Kind{
		Name:    "movements",
		Path:    "/api/movements/",
		Aliases: []string{"movement", "mv"},
		Columns: []string{"id", "product", "kind", "quantity", "created_at"},
	}
)

// Kinds lists every known collection.
var Kinds = []Kind{KindCompanies, KindWarehouses, KindProducts, KindUsers, KindRoles, KindMovements}

// LookupKind resolves a name or alias, case-insensitively.
func LookupKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range Kinds {
		if k.Name == name {
			return k, nil
		}
		for _, alias := range k.Aliases {
			if alias == name {
				return k, nil
			}
		}
	}
	return Kind{}, fmt.Errorf("unknown resource kind %q (valid: %s)", name, strings.Join(KindNames(), ", "))
}

// KindNames returns the sorted primary names.
func KindNames() []string {
	names := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		names = append(names, k.Name)
	}
	sort.Strings(names)
	return names
}
