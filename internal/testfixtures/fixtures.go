package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

var (
	assetCounter    uint64
	employeeCounter uint64
	operatorCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Asset fixtures -----------------------------

// AssetFixture represents a deterministic asset record.
type AssetFixture struct {
	ID          string
	TagID       string
	Description string
	Status      lifecycle.Status
	Category    string
	Location    string
	Department  string
	Site        string
	CreatedAt   time.Time
}

// AssetOption configures the generated asset fixture.
type AssetOption func(*AssetFixture)

// NewAssetFixture returns a deterministic, available asset with optional overrides.
func NewAssetFixture(opts ...AssetOption) AssetFixture {
	idx := atomic.AddUint64(&assetCounter, 1)
	fixture := AssetFixture{
		ID:          fmt.Sprintf("asset-%03d", idx),
		TagID:       fmt.Sprintf("FX-%04d", idx),
		Description: fmt.Sprintf("Fixture asset %03d", idx),
		Status:      lifecycle.StatusAvailable,
		Category:    "IT Equipment",
		Location:    "Storage",
		Department:  "Facilities",
		Site:        "HQ",
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAssetID overrides the generated asset ID.
func WithAssetID(id string) AssetOption {
	return func(f *AssetFixture) {
		f.ID = id
	}
}

// WithAssetTag overrides the generated asset tag.
func WithAssetTag(tag string) AssetOption {
	return func(f *AssetFixture) {
		f.TagID = tag
	}
}

// WithAssetStatus sets the stored status.
func WithAssetStatus(status lifecycle.Status) AssetOption {
	return func(f *AssetFixture) {
		f.Status = status
	}
}

// WithAssetDepartment overrides the placement department.
func WithAssetDepartment(department string) AssetOption {
	return func(f *AssetFixture) {
		f.Department = department
	}
}

// Persistence returns the fixture as a persistence.Asset value.
func (f AssetFixture) Persistence() persistence.Asset {
	return persistence.Asset{
		ID:          f.ID,
		TagID:       f.TagID,
		Description: f.Description,
		Status:      f.Status,
		Category:    f.Category,
		Location:    f.Location,
		Department:  f.Department,
		Site:        f.Site,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// ----------------------------- Employee fixtures -----------------------------

// EmployeeFixture represents a deterministic directory entry.
type EmployeeFixture struct {
	ID         string
	Name       string
	Email      string
	Department string
}

// EmployeeOption configures the generated employee fixture.
type EmployeeOption func(*EmployeeFixture)

// NewEmployeeFixture returns a deterministic employee with optional overrides.
func NewEmployeeFixture(opts ...EmployeeOption) EmployeeFixture {
	idx := atomic.AddUint64(&employeeCounter, 1)
	id := fmt.Sprintf("emp-%03d", idx)
	fixture := EmployeeFixture{
		ID:         id,
		Name:       fmt.Sprintf("Employee %03d", idx),
		Email:      fmt.Sprintf("%s@example.com", id),
		Department: "Engineering",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEmployeeID overrides the generated employee ID.
func WithEmployeeID(id string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.ID = id
	}
}

// WithEmployeeDepartment overrides the department.
func WithEmployeeDepartment(department string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Department = department
	}
}

// Persistence returns the fixture as a persistence.Employee value.
func (f EmployeeFixture) Persistence() persistence.Employee {
	return persistence.Employee{
		ID:         f.ID,
		Name:       f.Name,
		Email:      f.Email,
		Department: f.Department,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
}

// ----------------------------- Operator fixtures -----------------------------

// OperatorFixture represents an operator allowed to authenticate.
type OperatorFixture struct {
	ID         string
	Name       string
	Role       string
	APIKeyHash string
	Disabled   bool
}

// OperatorOption configures the generated operator fixture.
type OperatorOption func(*OperatorFixture)

// NewOperatorFixture returns a deterministic custodian operator.
func NewOperatorFixture(opts ...OperatorOption) OperatorFixture {
	idx := atomic.AddUint64(&operatorCounter, 1)
	fixture := OperatorFixture{
		ID:         fmt.Sprintf("op-%03d", idx),
		Name:       fmt.Sprintf("Operator %03d", idx),
		Role:       "custodian",
		APIKeyHash: fmt.Sprintf("hash-%03d", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOperatorID overrides the generated operator ID.
func WithOperatorID(id string) OperatorOption {
	return func(f *OperatorFixture) {
		f.ID = id
	}
}

// WithOperatorRole sets the operator role.
func WithOperatorRole(role string) OperatorOption {
	return func(f *OperatorFixture) {
		f.Role = role
	}
}

// WithOperatorKeyHash sets the stored API key hash.
func WithOperatorKeyHash(hash string) OperatorOption {
	return func(f *OperatorFixture) {
		f.APIKeyHash = hash
	}
}

// WithOperatorDisabled marks the operator as disabled.
func WithOperatorDisabled(disabled bool) OperatorOption {
	return func(f *OperatorFixture) {
		f.Disabled = disabled
	}
}

// Persistence returns the fixture as a persistence.Operator value.
func (f OperatorFixture) Persistence() persistence.Operator {
	return persistence.Operator{
		ID:         f.ID,
		Name:       f.Name,
		Role:       f.Role,
		APIKeyHash: f.APIKeyHash,
		Disabled:   f.Disabled,
		CreatedAt:  referenceTime,
	}
}
