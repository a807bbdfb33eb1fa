package subscription

// Status represents the lifecycle status of a subscription
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal returns true if no further mutation is permitted
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// CanTransitionTo returns true if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusActive:
		return target == StatusPaused || target == StatusCompleted
	case StatusPaused:
		return target == StatusActive || target == StatusCompleted
	}
	return false
}

// OrderStatus represents the lifecycle status of one daily order
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "ACTIVE"
	OrderStatusPaused    OrderStatus = "PAUSED"
	OrderStatusFrozen    OrderStatus = "FROZEN"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusActive, OrderStatusPaused, OrderStatusFrozen, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for Completed and Cancelled
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo returns true if the order can move to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusActive:
		switch target {
		case OrderStatusPaused, OrderStatusFrozen, OrderStatusCancelled, OrderStatusCompleted:
			return true
		}
	case OrderStatusPaused, OrderStatusFrozen:
		return target == OrderStatusActive
	}
	return false
}

// SchedulePattern determines which calendar days get an order
type SchedulePattern string

const (
	ScheduleEveryDay      SchedulePattern = "EVERY_DAY"
	ScheduleEveryOtherDay SchedulePattern = "EVERY_OTHER_DAY"
	ScheduleCustom        SchedulePattern = "CUSTOM"
)

// String returns the string representation of SchedulePattern
func (p SchedulePattern) String() string {
	return string(p)
}

// IsValid returns true if the pattern is known
func (p SchedulePattern) IsValid() bool {
	switch p {
	case ScheduleEveryDay, ScheduleEveryOtherDay, ScheduleCustom:
		return true
	}
	return false
}

// ComboType names a meal combination; prices come from the tenant's catalog
type ComboType string

// String returns the string representation of ComboType
func (c ComboType) String() string {
	return string(c)
}
