package order

import (
	"time"

	"github.com/restohub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Record tracks one order through its lifecycle. It is created the instant
// a valid Request is accepted and is never deleted; cancellation is a state,
// not a removal. All mutation goes through the lifecycle methods below so
// the state machine in status.go is the only path between states.
type Record struct {
	shared.TenantAggregateRoot
	OrderID       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_tenant_order,priority:2"`
	SupplierID    string          `gorm:"type:varchar(100);not null;index"`
	Status        Status          `gorm:"type:varchar(20);not null;default:'created'"`
	Channel       Channel         `gorm:"type:varchar(10);not null"`
	Items         []Item          `gorm:"type:jsonb;serializer:json"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExternalRef   *string         `gorm:"type:varchar(200)"`
	FailureReason string          `gorm:"type:text"`
	Urgent        bool            `gorm:"not null;default:false"`
	DeliveryAddress string        `gorm:"type:text"`
	RequestedDate *time.Time
	ContactName   string `gorm:"type:varchar(200)"`
	ContactEmail  string `gorm:"type:varchar(200)"`
	ContactPhone  string `gorm:"type:varchar(50)"`
	Notes         string `gorm:"type:text"`
	DocumentKey   string `gorm:"type:varchar(300)"` // object storage key of the rendered order sheet
	Attempts      int    `gorm:"not null;default:0"`
	LastAttemptAt *time.Time
	SubmittedAt   *time.Time
	ConfirmedAt   *time.Time
	ShippedAt     *time.Time
	DeliveredAt   *time.Time
	FailedAt      *time.Time
	CancelledAt   *time.Time
	LastEvidence  *StatusEvidence `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "order_records"
}

// NewRecord accepts a validated request and opens the lifecycle in created.
func NewRecord(req *Request, channel Channel) (*Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !channel.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Unknown order channel")
	}

	return &Record{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(req.TenantID),
		OrderID:             req.ID,
		SupplierID:          req.SupplierID,
		Status:              StatusCreated,
		Channel:             channel,
		Items:               req.Items,
		TotalAmount:         req.Total(),
		Urgent:              req.Urgent,
		DeliveryAddress:     req.DeliveryAddress,
		RequestedDate:       req.RequestedDate,
		ContactName:         req.Contact.Name,
		ContactEmail:        req.Contact.Email,
		ContactPhone:        req.Contact.Phone,
		Notes:               req.Notes,
	}, nil
}

// RecordAttempt counts a submission attempt. Attempts accumulate across
// retries so the bounded-retry policy can be enforced after a restart.
func (r *Record) RecordAttempt(at time.Time) {
	r.Attempts++
	r.LastAttemptAt = &at
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// MarkSubmitted moves the record to submitted. For API channels externalRef
// carries the supplier-assigned reference; document channels pass nil since
// handover has no acknowledgment.
func (r *Record) MarkSubmitted(externalRef *string, at time.Time) error {
	if !r.Status.CanTransitionTo(StatusSubmitted) {
		return shared.NewDomainError("INVALID_TRANSITION", "Order cannot be submitted from status "+r.Status.String())
	}

	r.Status = StatusSubmitted
	r.ExternalRef = externalRef
	r.SubmittedAt = &at
	r.FailureReason = ""
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewSubmittedEvent(r))

	return nil
}

// MarkFailed terminates the record with a reason. Legal from every
// non-terminal state.
func (r *Record) MarkFailed(reason string, at time.Time) error {
	if !r.Status.CanTransitionTo(StatusFailed) {
		return shared.NewDomainError("INVALID_TRANSITION", "Order cannot fail from status "+r.Status.String())
	}

	r.Status = StatusFailed
	r.FailureReason = reason
	r.FailedAt = &at
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewFailedEvent(r, reason))

	return nil
}

// Cancel terminates the record on caller request. Legal from every
// non-terminal state.
func (r *Record) Cancel(reason string, at time.Time) error {
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_TRANSITION", "Order cannot be cancelled from status "+r.Status.String())
	}

	r.Status = StatusCancelled
	r.FailureReason = reason
	r.CancelledAt = &at
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// AdvanceTo applies an externally evidenced transition (confirmed, shipped,
// delivered). The target must be exactly one step forward; anything else is
// rejected so a confused external signal can never rewind or skip the
// lifecycle.
func (r *Record) AdvanceTo(target Status, evidence StatusEvidence) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_TRANSITION", "Unknown target status")
	}
	if target == StatusFailed || target == StatusCancelled {
		return shared.NewDomainError("INVALID_TRANSITION", "Use MarkFailed or Cancel for terminal transitions")
	}
	if err := evidence.Validate(); err != nil {
		return err
	}
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			"Order in status "+r.Status.String()+" cannot advance to "+target.String())
	}

	now := time.Now()
	r.Status = target
	r.LastEvidence = &evidence
	if evidence.Reference != "" && r.ExternalRef == nil {
		ref := evidence.Reference
		r.ExternalRef = &ref
	}
	switch target {
	case StatusConfirmed:
		r.ConfirmedAt = &evidence.ObservedAt
	case StatusShipped:
		r.ShippedAt = &evidence.ObservedAt
	case StatusDelivered:
		r.DeliveredAt = &evidence.ObservedAt
	}
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// SetDocumentKey records where the rendered order sheet was archived
func (r *Record) SetDocumentKey(key string) {
	r.DocumentKey = key
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// IsTerminal reports whether the record reached a final state
func (r *Record) IsTerminal() bool {
	return r.Status.IsTerminal()
}
