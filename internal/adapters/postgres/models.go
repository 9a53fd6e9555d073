package postgres

import (
	"time"

	"github.com/google/uuid"
)

type tenantModel struct {
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (tenantModel) TableName() string { return "tenants" }

type roleModel struct {
	RoleID    uuid.UUID `gorm:"column:role_id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (roleModel) TableName() string { return "roles" }

type permissionModel struct {
	PermissionID uuid.UUID `gorm:"column:permission_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug         string    `gorm:"column:slug"`
	Description  string    `gorm:"column:description"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (permissionModel) TableName() string { return "permissions" }

type rolePermissionModel struct {
	RoleID       uuid.UUID `gorm:"column:role_id;primaryKey"`
	PermissionID uuid.UUID `gorm:"column:permission_id;primaryKey"`
}

func (rolePermissionModel) TableName() string { return "role_permissions" }

type userPermissionModel struct {
	UserID       uuid.UUID `gorm:"column:user_id;primaryKey"`
	PermissionID uuid.UUID `gorm:"column:permission_id;primaryKey"`
}

func (userPermissionModel) TableName() string { return "user_permissions" }

type userModel struct {
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID        uuid.UUID  `gorm:"column:tenant_id"`
	Email           string     `gorm:"column:email"`
	RoleID          uuid.UUID  `gorm:"column:role_id"`
	IsActive        bool       `gorm:"column:is_active"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type authTokenModel struct {
	ID               int64      `gorm:"column:id;primaryKey"`
	UserID           uuid.UUID  `gorm:"column:user_id"`
	DeviceName       string     `gorm:"column:device_name"`
	AccessTokenID    string     `gorm:"column:access_token_id"`
	RefreshTokenHash string     `gorm:"column:refresh_token_hash"`
	AccessExpiresAt  time.Time  `gorm:"column:access_expires_at"`
	RefreshExpiresAt time.Time  `gorm:"column:refresh_expires_at"`
	Revoked          bool       `gorm:"column:revoked"`
	LastUsedAt       *time.Time `gorm:"column:last_used_at"`
	IPAddress        *string    `gorm:"column:ip_address"`
	UserAgent        string     `gorm:"column:user_agent"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (authTokenModel) TableName() string { return "auth_tokens" }

type customerModel struct {
	CustomerID     uuid.UUID  `gorm:"column:customer_id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID  `gorm:"column:tenant_id"`
	Name           string     `gorm:"column:name"`
	Email          string     `gorm:"column:email"`
	LoyaltyPoints  int64      `gorm:"column:loyalty_points"`
	TotalSpent     float64    `gorm:"column:total_spent"`
	TotalPurchases int64      `gorm:"column:total_purchases"`
	LastPurchaseAt *time.Time `gorm:"column:last_purchase_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (customerModel) TableName() string { return "customers" }

type loyaltyTransactionModel struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	CustomerID       uuid.UUID `gorm:"column:customer_id"`
	Type             string    `gorm:"column:type"`
	PointsDelta      int64     `gorm:"column:points_delta"`
	PointsBalance    int64     `gorm:"column:points_balance"`
	SpentDelta       float64   `gorm:"column:spent_delta"`
	SpentBalance     float64   `gorm:"column:spent_balance"`
	PurchasesDelta   int64     `gorm:"column:purchases_delta"`
	PurchasesBalance int64     `gorm:"column:purchases_balance"`
	Reason           string    `gorm:"column:reason"`
	Meta             *string   `gorm:"column:meta;type:jsonb"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (loyaltyTransactionModel) TableName() string { return "customer_loyalty_transactions" }

type outboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "outbox_events" }
