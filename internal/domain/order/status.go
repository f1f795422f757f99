package order

// Status represents the lifecycle state of an order
type Status string

const (
	StatusCreated   Status = "created"
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusSubmitted, StatusConfirmed, StatusShipped,
		StatusDelivered, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// The lifecycle moves strictly forward one step at a time; failed and
// cancelled are reachable from every non-terminal state and always win.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusFailed || target == StatusCancelled {
		return true
	}
	switch s {
	case StatusCreated:
		return target == StatusSubmitted
	case StatusSubmitted:
		return target == StatusConfirmed
	case StatusConfirmed:
		return target == StatusShipped
	case StatusShipped:
		return target == StatusDelivered
	}
	return false
}

// Channel identifies how an order reached the supplier
type Channel string

const (
	ChannelAPI   Channel = "api"   // synchronous adapter submission
	ChannelPDF   Channel = "pdf"   // rendered document, handed over out of band
	ChannelEmail Channel = "email" // rendered document dispatched by email
)

// IsValid checks if the channel is a known value
func (c Channel) IsValid() bool {
	switch c {
	case ChannelAPI, ChannelPDF, ChannelEmail:
		return true
	}
	return false
}

// String returns the string representation
func (c Channel) String() string {
	return string(c)
}
