package domain

import "time"

const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
)

// User roles. Admins manage tenant resources; agents work tickets.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Tenant is one customer account owning users, queues and gateway instances.
type Tenant struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Name           string    `json:"name" form:"name"`
	DocumentNumber string    `gorm:"uniqueIndex;size:50" json:"document_number" form:"document_number"`
	Status         string    `json:"status" form:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Tenant) TableName() string {
	return "tenants"
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID     string    `gorm:"index;size:36" json:"tenant_id" form:"tenant_id"`
	Name         string    `json:"name" form:"name"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email" form:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role" form:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "users"
}
