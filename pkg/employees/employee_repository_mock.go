package employees

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockEmployeeRepository is an in memory EmployeeRepositoryInterface for tests
type MockEmployeeRepository struct {
	Employees []*Employee
}

// Add adds an employee
func (r *MockEmployeeRepository) Add(_ context.Context, employee *Employee) error {
	employee.ID = primitive.NewObjectID()
	r.Employees = append(r.Employees, employee)
	return nil
}

// FindByID finds an employee by ID
func (r *MockEmployeeRepository) FindByID(_ context.Context, id string) (*Employee, error) {
	for _, employee := range r.Employees {
		if employee.ID.Hex() == id {
			return employee, nil
		}
	}

	return nil, errors.New("employee not found")
}

// FindByEmail finds an employee by email
func (r *MockEmployeeRepository) FindByEmail(_ context.Context, email string) (*Employee, error) {
	for _, employee := range r.Employees {
		if employee.Email == email {
			return employee, nil
		}
	}

	return nil, errors.New("employee not found")
}

// FindByVerificationToken finds an employee by its email verification token
func (r *MockEmployeeRepository) FindByVerificationToken(_ context.Context, token string) (*Employee, error) {
	for _, employee := range r.Employees {
		if employee.EmailVerificationToken == token {
			return employee, nil
		}
	}

	return nil, errors.New("employee not found")
}

// FindAll finds all employees
func (r *MockEmployeeRepository) FindAll(_ context.Context, _ int, _ int) ([]*Employee, int, error) {
	return r.Employees, len(r.Employees), nil
}

// Update updates an employee
func (r *MockEmployeeRepository) Update(_ context.Context, employee *Employee) error {
	for i, existing := range r.Employees {
		if existing.ID == employee.ID {
			r.Employees[i] = employee
			return nil
		}
	}

	return errors.New("employee not found")
}

// Remove deletes an employee
func (r *MockEmployeeRepository) Remove(_ context.Context, id string) error {
	for i, employee := range r.Employees {
		if employee.ID.Hex() == id {
			r.Employees = append(r.Employees[:i], r.Employees[i+1:]...)
			return nil
		}
	}

	return errors.New("employee not found")
}
