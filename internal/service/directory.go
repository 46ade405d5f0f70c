package service

import (
	"context"
	"fmt"

	"github.com/glowlabs/glowlabs/internal/models"
)

type ClientStore interface {
	GetByID(ctx context.Context, id string) (*models.Client, error)
}

type EmployeeStore interface {
	GetByID(ctx context.Context, id string) (*models.Employee, error)
}

// CustomerDirectory adapts the client repository to the session evaluator.
// A customer's profile is complete once a phone number is on file.
type CustomerDirectory struct {
	clients ClientStore
}

func NewCustomerDirectory(clients ClientStore) *CustomerDirectory {
	return &CustomerDirectory{clients: clients}
}

func (d *CustomerDirectory) FindByID(ctx context.Context, id string) (*Principal, error) {
	c, err := d.clients.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if c == nil {
		return nil, ErrPrincipalNotFound
	}

	return &Principal{
		ID:              c.ID,
		TokenCount:      c.TokenCount,
		ProfileComplete: c.PhoneNumber != "",
		Access: AccessClaims{
			PrincipalID: c.ID,
			Email:       c.Email,
			PhoneNumber: c.PhoneNumber,
			FirstName:   c.FirstName,
			LastName:    c.LastName,
		},
		Display: DisplayClaims{
			PrincipalID: c.ID,
		},
	}, nil
}

// StaffDirectory adapts the employee repository to the session evaluator.
// A staff profile is complete once a permanent password has been set.
type StaffDirectory struct {
	employees EmployeeStore
}

func NewStaffDirectory(employees EmployeeStore) *StaffDirectory {
	return &StaffDirectory{employees: employees}
}

func (d *StaffDirectory) FindByID(ctx context.Context, id string) (*Principal, error) {
	e, err := d.employees.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if e == nil {
		return nil, ErrPrincipalNotFound
	}

	return &Principal{
		ID:              e.ID,
		TokenCount:      e.TokenCount,
		ProfileComplete: e.PermanentPasswordSet,
		Access: AccessClaims{
			PrincipalID: e.ID,
			Role:        e.Role,
		},
		Display: DisplayClaims{
			PrincipalID: e.ID,
			Role:        e.Role,
		},
	}, nil
}
