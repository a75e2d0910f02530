package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

// --- EmployeeRepository implementation ---

// UpsertEmployee inserts an employee or refreshes the directory fields of an existing one
func (s *Store) UpsertEmployee(ctx context.Context, employee persistence.Employee) error {
	if strings.TrimSpace(employee.ID) == "" {
		return fmt.Errorf("sqlstore: employee id is required")
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	if employee.UpdatedAt.IsZero() {
		employee.UpdatedAt = now
	}

	query := `
		INSERT INTO employees (id, name, email, department, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			department = excluded.department,
			updated_at = excluded.updated_at
	`
	_, err := s.pool.DB().ExecContext(ctx, s.pool.Rebind(query),
		employee.ID,
		employee.Name,
		employee.Email,
		employee.Department,
		formatTimestamp(employee.CreatedAt),
		formatTimestamp(employee.UpdatedAt),
	)
	return s.mapper.MapError(err)
}

// GetEmployee retrieves an employee by id
func (s *Store) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	var (
		employee             persistence.Employee
		createdAt, updatedAt string
	)
	err := s.pool.DB().QueryRowContext(ctx, s.pool.Rebind(`
		SELECT id, name, email, department, created_at, updated_at
		FROM employees WHERE id = ?
	`), id).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.Department,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Employee{}, s.mapper.MapError(err)
	}
	if employee.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Employee{}, err
	}
	if employee.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Employee{}, err
	}
	return employee, nil
}

// --- OperatorRepository implementation ---

// CreateOperator inserts a new operator
func (s *Store) CreateOperator(ctx context.Context, operator persistence.Operator) error {
	if strings.TrimSpace(operator.ID) == "" {
		return fmt.Errorf("sqlstore: operator id is required")
	}
	if operator.CreatedAt.IsZero() {
		operator.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.DB().ExecContext(ctx, s.pool.Rebind(`
		INSERT INTO operators (id, name, role, api_key_hash, disabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`),
		operator.ID,
		operator.Name,
		operator.Role,
		operator.APIKeyHash,
		operator.Disabled,
		formatTimestamp(operator.CreatedAt),
	)
	return s.mapper.MapError(err)
}

// GetOperator retrieves an operator by id
func (s *Store) GetOperator(ctx context.Context, id string) (persistence.Operator, error) {
	var (
		operator  persistence.Operator
		createdAt string
	)
	err := s.pool.DB().QueryRowContext(ctx, s.pool.Rebind(`
		SELECT id, name, role, api_key_hash, disabled, created_at
		FROM operators WHERE id = ?
	`), id).Scan(
		&operator.ID,
		&operator.Name,
		&operator.Role,
		&operator.APIKeyHash,
		&operator.Disabled,
		&createdAt,
	)
	if err != nil {
		return persistence.Operator{}, s.mapper.MapError(err)
	}
	if operator.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Operator{}, err
	}
	return operator, nil
}
