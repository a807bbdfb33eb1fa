package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for account persistence
type Repository interface {
	// FindByID finds an account by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByIDForUpdate finds an account and locks its row until the transaction ends.
	// Ledger appends on one account are serialized through this lock.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindChildren lists the projects of a company
	FindChildren(ctx context.Context, tenantID, companyID uuid.UUID) ([]*Account, error)

	// FindAll lists every account of a tenant
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*Account, error)

	// ListTenantIDs lists tenants that own at least one account
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)

	// UpdateBalance stores the account's current budget
	UpdateBalance(ctx context.Context, a *Account) error
}

// EmployeeRepository defines the interface for the employee roster
type EmployeeRepository interface {
	// FindByID finds an employee by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Employee, error)

	// FindByIDs finds several employees; missing IDs are simply absent from the result
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Employee, error)

	// LockForUpdate locks the employee row until the transaction ends.
	// Freeze quota check-then-insert is serialized through this lock.
	LockForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Employee, error)
}
