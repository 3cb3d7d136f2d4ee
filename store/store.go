package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flowgrid-io/flowgrid/graph"
)

// ErrNotFound is returned when an entity does not exist within the caller's
// organization. Cross-tenant reads are indistinguishable from absence.
var ErrNotFound = errors.New("not found")

// Store wraps the relational database with org-scoped queries.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a store over an open gorm connection.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}
}

// DB exposes the underlying connection for migrations and seeding.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AutoMigrate creates the schema directly from the models. Production
// deployments run the SQL migrations instead; tests and embedded setups use
// this.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&User{}, &Organization{}, &Workflow{}, &Node{}, &Connection{},
		&Credential{}, &WorkflowRun{},
		&Product{}, &ProductPrice{}, &ProductStock{}, &Warehouse{},
		&Order{}, &OrderItem{},
	)
}

// LoadWorkflow fetches a workflow with its nodes and connections and maps it
// onto the engine's graph model.
func (s *Store) LoadWorkflow(ctx context.Context, workflowID string) (*graph.Workflow, error) {
	var wf Workflow
	if err := s.db.WithContext(ctx).First(&wf, "id = ?", workflowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	var nodes []Node
	if err := s.db.WithContext(ctx).Where("workflow_id = ?", workflowID).Order("id").Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("load nodes of %s: %w", workflowID, err)
	}
	var conns []Connection
	if err := s.db.WithContext(ctx).Where("workflow_id = ?", workflowID).Order("id").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("load connections of %s: %w", workflowID, err)
	}

	out := &graph.Workflow{
		ID:          wf.ID,
		OrgID:       wf.OrgID,
		Name:        wf.Name,
		Description: wf.Description,
	}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, graph.Node{
			ID:           n.ID,
			WorkflowID:   n.WorkflowID,
			Kind:         graph.NodeKind(n.Kind),
			Position:     graph.Position{X: n.PositionX, Y: n.PositionY},
			Data:         n.Data,
			CredentialID: n.CredentialID,
		})
	}
	for _, c := range conns {
		out.Connections = append(out.Connections, graph.Connection{
			ID:         c.ID,
			WorkflowID: c.WorkflowID,
			FromNodeID: c.FromNodeID,
			ToNodeID:   c.ToNodeID,
			FromOutput: c.FromOutput,
			ToInput:    c.ToInput,
		})
	}
	return out, nil
}

// GetCredential returns the encrypted credential row, scoped to the
// organization.
func (s *Store) GetCredential(ctx context.Context, orgID, credentialID string) (*Credential, error) {
	var cred Credential
	err := s.db.WithContext(ctx).
		Where("id = ? AND org_id = ?", credentialID, orgID).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return &cred, nil
}

// CreateRun records the start of a workflow run.
func (s *Store) CreateRun(ctx context.Context, run *WorkflowRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = RunStatusRunning
	return s.db.WithContext(ctx).Create(run).Error
}

// FinishRun records the terminal state of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status, errMsg string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&WorkflowRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":      status,
			"error":       errMsg,
			"finished_at": &now,
		}).Error
}

// ProductView is the boundary shape of a product; surrogate keys are
// decimal strings.
type ProductView struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	PriceCents   int64  `json:"priceCents"`
	Currency     string `json:"currency,omitempty"`
	StockOnHand  int64  `json:"stockOnHand"`
	ReorderLevel int64  `json:"reorderLevel"`
	LowStock     bool   `json:"lowStock"`
}

// SearchProducts returns products of the organization matching query by name
// or SKU, with aggregate stock. lowStockOnly keeps only products at or below
// their reorder level.
func (s *Store) SearchProducts(ctx context.Context, orgID, query string, limit int, lowStockOnly bool) ([]ProductView, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	q := s.db.WithContext(ctx).Where("org_id = ?", orgID)
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("name LIKE ? OR sku LIKE ?", like, like)
	}
	var products []Product
	if err := q.Order("id").Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		view := ProductView{
			ID:          FormatID(p.ID),
			SKU:         p.SKU,
			Name:        p.Name,
			Description: p.Description,
		}

		var price ProductPrice
		if err := s.db.WithContext(ctx).Where("product_id = ?", p.ID).First(&price).Error; err == nil {
			view.PriceCents = price.AmountCents
			view.Currency = price.Currency
		}

		var stocks []ProductStock
		if err := s.db.WithContext(ctx).Where("product_id = ?", p.ID).Find(&stocks).Error; err != nil {
			return nil, fmt.Errorf("load stock: %w", err)
		}
		for _, st := range stocks {
			view.StockOnHand += st.Quantity
			if st.ReorderLevel > view.ReorderLevel {
				view.ReorderLevel = st.ReorderLevel
			}
		}
		view.LowStock = view.StockOnHand <= view.ReorderLevel

		if lowStockOnly && !view.LowStock {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// WarehouseView is the boundary shape of a warehouse.
type WarehouseView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// ListWarehouses returns the organization's warehouses.
func (s *Store) ListWarehouses(ctx context.Context, orgID string) ([]WarehouseView, error) {
	var rows []Warehouse
	if err := s.db.WithContext(ctx).Where("org_id = ?", orgID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	views := make([]WarehouseView, len(rows))
	for i, w := range rows {
		views[i] = WarehouseView{ID: FormatID(w.ID), Name: w.Name, Location: w.Location}
	}
	return views, nil
}

// OrderView is the boundary shape of an order.
type OrderView struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	Status        string    `json:"status"`
	TotalCents    int64     `json:"totalCents"`
	CreatedAt     time.Time `json:"createdAt"`
}

func orderView(o Order) OrderView {
	return OrderView{
		ID:            FormatID(o.ID),
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		TotalCents:    o.TotalCents,
		CreatedAt:     o.CreatedAt,
	}
}

// SearchOrders returns the organization's orders, optionally filtered by a
// customer-name query and status.
func (s *Store) SearchOrders(ctx context.Context, orgID, query, status string, limit int) ([]OrderView, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	q := s.db.WithContext(ctx).Where("org_id = ?", orgID)
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("customer_name LIKE ? OR customer_email LIKE ?", like, like)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []Order
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	views := make([]OrderView, len(rows))
	for i, o := range rows {
		views[i] = orderView(o)
	}
	return views, nil
}

// GetOrder returns one order scoped to the organization.
func (s *Store) GetOrder(ctx context.Context, orgID string, orderID int64) (*OrderView, error) {
	var o Order
	err := s.db.WithContext(ctx).Where("id = ? AND org_id = ?", orderID, orgID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	v := orderView(o)
	return &v, nil
}

// UpdateOrderStatus transitions an order, scoped to the organization. A
// cross-tenant order id behaves exactly like a missing one.
func (s *Store) UpdateOrderStatus(ctx context.Context, orgID string, orderID int64, newStatus string) (*OrderView, error) {
	if !ValidOrderStatus(newStatus) {
		return nil, fmt.Errorf("invalid order status %q", newStatus)
	}

	res := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND org_id = ?", orderID, orgID).
		Update("status", newStatus)
	if res.Error != nil {
		return nil, fmt.Errorf("update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetOrder(ctx, orgID, orderID)
}

// OrderStats summarises the organization's orders.
type OrderStats struct {
	TotalOrders   int64            `json:"totalOrders"`
	RevenueCents  int64            `json:"revenueCents"`
	CountByStatus map[string]int64 `json:"countByStatus"`
}

// GetOrderStats computes order totals, revenue, and a status breakdown.
func (s *Store) GetOrderStats(ctx context.Context, orgID string) (*OrderStats, error) {
	stats := &OrderStats{CountByStatus: make(map[string]int64)}

	type row struct {
		Status string
		N      int64
		Sum    int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&Order{}).
		Select("status, COUNT(*) AS n, COALESCE(SUM(total_cents), 0) AS sum").
		Where("org_id = ?", orgID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	for _, r := range rows {
		stats.TotalOrders += r.N
		stats.CountByStatus[r.Status] = r.N
		if r.Status != "cancelled" {
			stats.RevenueCents += r.Sum
		}
	}
	return stats, nil
}
