package domain

import "time"

// Instance connection status values persisted on the instance row.
const (
	InstanceDisconnected = "DISCONNECTED"
	InstanceQRCode       = "QRCODE"
	InstanceConnected    = "CONNECTED"
)

// Instance is one tenant-scoped WhatsApp gateway session. Status and QRCode
// are mutated only by the connection lifecycle manager and by admin CRUD.
type Instance struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TenantID  string    `gorm:"index;size:36" json:"tenant_id" form:"tenant_id"`
	Name      string    `json:"name" form:"name"`
	Status    string    `json:"status"`
	QRCode    string    `gorm:"column:qrcode" json:"qrcode"`
	IsDefault bool      `json:"is_default" form:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Instance) TableName() string {
	return "whatsapp_instances"
}

// CredentialRecord is one item of gateway key material for a session.
// The triple (SessionID, Category, ItemID) is the primary key; SessionID
// equals the owning Instance.ID. The "creds"/"main" item holds the primary
// credential document read synchronously at session start.
type CredentialRecord struct {
	SessionID string    `gorm:"primaryKey;size:255" json:"session_id"`
	Category  string    `gorm:"primaryKey;size:255" json:"category"`
	ItemID    string    `gorm:"primaryKey;size:255" json:"item_id"`
	Value     []byte    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (CredentialRecord) TableName() string {
	return "auth_sessions"
}
