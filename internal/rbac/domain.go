package rbac

// Role groups permissions under a name.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []string
}

// Permission codes used around the application. Stored in the permissions
// table; listed here so handlers reference constants instead of strings.
const (
	PermTransactionPost = "transaction:post"
	PermTransactionRead = "transaction:read"
	PermProductWrite    = "product:write"
	PermProductRead     = "product:read"
	PermWarehouseWrite  = "warehouse:write"
	PermPartnerWrite    = "partner:write"
	PermUserManage      = "user:manage"
	PermSettingsManage  = "settings:manage"
	PermReportRead      = "report:read"
	PermNegativePosting = "transaction:allow-negative"
)
