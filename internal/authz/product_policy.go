package authz

// Permission names granted to roles.
const (
	PermViewProducts   = "view products"
	PermCreateProducts = "create products"
	PermEditProducts   = "edit products"
	PermDeleteProducts = "delete products"
)

// ProductKind is the resource kind ProductPolicy is registered under.
const ProductKind = "product"

var productActions = map[Action]string{
	ViewAny: PermViewProducts,
	View:    PermViewProducts,
	Create:  PermCreateProducts,
	Update:  PermEditProducts,
	Delete:  PermDeleteProducts,
}

// ProductPolicy maps each product action to a single permission. Unknown
// actions are denied.
func ProductPolicy(s Subject, action Action, _ any) bool {
	perm, ok := productActions[action]
	return ok && s.HasPermission(perm)
}
