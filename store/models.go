package store

import (
	"strconv"
	"time"
)

// User is a member of an organization.
type User struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID     string `json:"orgId" gorm:"size:64;index;not null"`
	Email     string `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Name      string `json:"name" gorm:"size:255"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// Organization is the owning tenant of all workflows and credentials.
type Organization struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// Workflow is a named graph owned by an organization.
type Workflow struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID       string    `json:"orgId" gorm:"size:64;index;not null"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Status      string    `json:"status" gorm:"size:32;default:draft"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// Node is a vertex of a stored workflow graph. Data is the free-form
// configuration map whose interpretation is determined by Kind.
type Node struct {
	ID           string         `json:"id" gorm:"primaryKey;size:64"`
	WorkflowID   string         `json:"workflowId" gorm:"type:uuid;index;not null"`
	Kind         string         `json:"kind" gorm:"size:64;not null"`
	PositionX    float64        `json:"positionX"`
	PositionY    float64        `json:"positionY"`
	Data         map[string]any `json:"data" gorm:"type:jsonb;serializer:json"`
	CredentialID string         `json:"credentialId,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time      `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// Connection is a labeled edge between two nodes of one workflow. Deleting
// the workflow cascades to its nodes and connections.
type Connection struct {
	ID         string    `json:"id" gorm:"primaryKey;size:64"`
	WorkflowID string    `json:"workflowId" gorm:"type:uuid;index;not null"`
	FromNodeID string    `json:"fromNodeId" gorm:"size:64;not null"`
	ToNodeID   string    `json:"toNodeId" gorm:"size:64;index;not null"`
	FromOutput string    `json:"fromOutput" gorm:"size:64"`
	ToInput    string    `json:"toInput" gorm:"size:64"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// Credential is an encrypted secret owned by an organization. The plaintext
// never leaves the credentials store.
type Credential struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID          string    `json:"orgId" gorm:"size:64;index;not null"`
	Kind           string    `json:"kind" gorm:"size:32;not null"`
	Name           string    `json:"name" gorm:"size:255;not null"`
	EncryptedValue string    `json:"-" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// WorkflowRun records one execution of a workflow.
type WorkflowRun struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid"`
	WorkflowID string     `json:"workflowId" gorm:"type:uuid;index;not null"`
	OrgID      string     `json:"orgId" gorm:"size:64;index;not null"`
	Status     string     `json:"status" gorm:"size:32;not null"`
	Error      string     `json:"error,omitempty" gorm:"type:text"`
	StartedAt  time.Time  `json:"startedAt" gorm:"not null"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Product is a sellable item of an organization.
type Product struct {
	ID          int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	OrgID       string    `json:"orgId" gorm:"size:64;index;not null"`
	SKU         string    `json:"sku" gorm:"size:64;index;not null"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// ProductPrice is the current price of a product in one currency.
type ProductPrice struct {
	ID          int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	ProductID   int64  `json:"-" gorm:"index;not null"`
	Currency    string `json:"currency" gorm:"size:8;not null"`
	AmountCents int64  `json:"amountCents" gorm:"not null"`
}

// ProductStock is the on-hand quantity of a product in one warehouse.
type ProductStock struct {
	ID           int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	ProductID    int64 `json:"-" gorm:"index;not null"`
	WarehouseID  int64 `json:"-" gorm:"index;not null"`
	Quantity     int64 `json:"quantity" gorm:"not null"`
	ReorderLevel int64 `json:"reorderLevel" gorm:"default:0"`
}

// Warehouse is a stock location of an organization.
type Warehouse struct {
	ID       int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	OrgID    string `json:"orgId" gorm:"size:64;index;not null"`
	Name     string `json:"name" gorm:"size:255;not null"`
	Location string `json:"location" gorm:"size:255"`
}

// Order is a customer order of an organization.
type Order struct {
	ID            int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	OrgID         string    `json:"orgId" gorm:"size:64;index;not null"`
	CustomerName  string    `json:"customerName" gorm:"size:255"`
	CustomerEmail string    `json:"customerEmail" gorm:"size:255"`
	Status        string    `json:"status" gorm:"size:32;index;not null"`
	TotalCents    int64     `json:"totalCents" gorm:"not null"`
	CreatedAt     time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID        int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   int64 `json:"-" gorm:"index;not null"`
	ProductID int64 `json:"-" gorm:"index;not null"`
	Quantity  int64 `json:"quantity" gorm:"not null"`
	UnitCents int64 `json:"unitCents" gorm:"not null"`
}

// Order statuses accepted by the order tools.
var OrderStatuses = []string{"pending", "processing", "shipped", "delivered", "cancelled"}

// ValidOrderStatus reports whether s is an accepted order status.
func ValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// FormatID serialises a surrogate key as a decimal string. BigInt
// identifiers cross the UI boundary as strings, never as JSON numbers.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
