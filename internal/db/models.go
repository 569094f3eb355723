package db

import "time"

// Part is a stored inventory entry. Price semantics depend on PricePer:
// "lot" means Price covers the whole quantity, "item" means per unit.
type Part struct {
	ID          string
	Title       string
	Description string
	Make        string
	Model       string
	Year        int
	VIN         *string
	Category    string
	Price       float64
	Quantity    int
	PricePer    string
	InStock     bool
	PhotoKeys   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Vehicle is a donor vehicle parts are pulled from, keyed by VIN.
type Vehicle struct {
	ID            string
	VIN           string
	Make          string
	Model         string
	Year          int
	Trim          string
	Engine        string
	AcquiredPrice float64
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PriceRule is an admin-configured automatic discount or markup.
type PriceRule struct {
	ID         string
	RuleType   string
	Scope      string
	ScopeValue *string
	Amount     float64
	AmountType string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expense is a one-off or recurring business cost.
type Expense struct {
	ID              string
	Label           string
	Category        string
	Amount          float64
	IncurredOn      time.Time
	Recurrence      *string
	RecurrenceUntil *time.Time
	CreatedAt       time.Time
}

// ChatSession groups a visitor conversation.
type ChatSession struct {
	ID          string
	VisitorName string
	Status      string
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// ChatMessage is a single message inside a session.
type ChatMessage struct {
	ID        string
	SessionID string
	Sender    string
	Body      string
	CreatedAt time.Time
}

// PageView is one recorded storefront page impression.
type PageView struct {
	ID         int64
	Path       string
	PartID     *string
	VisitorIP  string
	OccurredAt time.Time
}

// Setting is a site configuration entry.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Admin is a back-office user account.
type Admin struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
