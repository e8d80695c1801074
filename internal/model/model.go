// Package model defines the domain records shared across services.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role of a society profile.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSecretary Role = "secretary"
	RoleSecurity  Role = "security"
	RoleMember    Role = "member"
)

// Profile represents a society resident or staff account.
type Profile struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	FullName        string    `json:"full_name"`
	Phone           string    `json:"phone,omitempty"`
	Role            Role      `json:"role"`
	ApartmentNumber string    `json:"apartment_number,omitempty"`
	BuildingName    string    `json:"building_name,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TimeOfDay is minutes since midnight. Booking intervals are half-open
// [Start, End) on a single calendar day, so a value of 24*60 is a valid
// exclusive end bound.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q; expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return TimeOfDay(hour*60 + minute), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Minutes returns the value as whole minutes.
func (t TimeOfDay) Minutes() int { return int(t) }

// OnDate anchors the time of day to a calendar date.
func (t TimeOfDay) OnDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).
		Add(time.Duration(t) * time.Minute)
}

// Interval is a half-open [Start, End) slice of a day.
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// DurationMinutes returns End-Start in minutes.
func (i Interval) DurationMinutes() int { return int(i.End - i.Start) }

// DateOnly truncates a timestamp to its calendar day, normalized to UTC.
// Dates parsed from the wire land at UTC midnight while time.Now carries the
// server zone; pinning both to UTC makes Before/After compare day keys.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Facility represents a bookable society amenity.
type Facility struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Capacity    int       `json:"capacity"`
	HourlyRate  int64     `json:"hourly_rate"` // smallest currency unit per hour; 0 = free
	Amenities   []string  `json:"amenities,omitempty"`
	OpenTime    TimeOfDay `json:"open_time"`
	CloseTime   TimeOfDay `json:"close_time"`
	MinDuration int       `json:"min_duration_minutes"`
	MaxDuration int       `json:"max_duration_minutes"` // 0 = unbounded
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookingStatus of a facility booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking represents a facility reservation request.
type Booking struct {
	ID          int64         `json:"id"`
	FacilityID  int64         `json:"facility_id"`
	RequesterID int64         `json:"requester_id"`
	Date        time.Time     `json:"date"`
	Start       TimeOfDay     `json:"start_time"`
	End         TimeOfDay     `json:"end_time"`
	Purpose     string        `json:"purpose,omitempty"`
	Status      BookingStatus `json:"status"`
	TotalAmount int64         `json:"total_amount"`
	DecidedBy   *int64        `json:"decided_by,omitempty"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Version     int64         `json:"version"`
}

// Interval returns the booked slot.
func (b *Booking) Interval() Interval { return Interval{Start: b.Start, End: b.End} }

// Blocks reports whether the booking reserves its slot. Pending bookings
// hold the slot provisionally until decided.
func (b *Booking) Blocks() bool {
	return b.Status == BookingPending || b.Status == BookingApproved
}

// OverlapsWith checks half-open interval overlap with another booking.
func (b *Booking) OverlapsWith(other *Booking) bool {
	return b.Interval().Overlaps(other.Interval())
}

// VisitorStatus of a registered visitor.
type VisitorStatus string

const (
	VisitorPending    VisitorStatus = "pending"
	VisitorApproved   VisitorStatus = "approved"
	VisitorCheckedIn  VisitorStatus = "checked_in"
	VisitorCheckedOut VisitorStatus = "checked_out"
	VisitorRejected   VisitorStatus = "rejected"
)

// Visitor represents an expected guest registered by a resident host.
type Visitor struct {
	ID           int64         `json:"id"`
	HostID       int64         `json:"host_id"`
	VisitorName  string        `json:"visitor_name"`
	VisitorPhone string        `json:"visitor_phone,omitempty"`
	Purpose      string        `json:"purpose,omitempty"`
	ExpectedDate time.Time     `json:"expected_date"`
	Status       VisitorStatus `json:"status"`
	GatePass     string        `json:"gate_pass"`
	ApprovedBy   *int64        `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time    `json:"approved_at,omitempty"`
	CheckedInBy  *int64        `json:"checked_in_by,omitempty"`
	CheckedInAt  *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time    `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Event represents a community event open for registration.
type Event struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	EventDate       time.Time `json:"event_date"`
	Start           TimeOfDay `json:"start_time"`
	End             TimeOfDay `json:"end_time"`
	Location        string    `json:"location,omitempty"`
	MaxAttendees    int       `json:"max_attendees"` // 0 = unlimited
	RegistrationFee int64     `json:"registration_fee"`
	CreatedBy       int64     `json:"created_by"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EventRegistration ties a profile to an event.
type EventRegistration struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MaintenanceStatus of a maintenance request.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Priority of a maintenance request.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// MaintenanceRequest filed by a resident.
type MaintenanceRequest struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	Priority      Priority          `json:"priority"`
	Status        MaintenanceStatus `json:"status"`
	AssignedTo    *int64            `json:"assigned_to,omitempty"`
	EstimatedCost int64             `json:"estimated_cost,omitempty"`
	ActualCost    int64             `json:"actual_cost,omitempty"`
	ScheduledDate *time.Time        `json:"scheduled_date,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// PaymentStatus of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PaymentType classifies what a payment is for.
type PaymentType string

const (
	PaymentTypeBooking     PaymentType = "booking"
	PaymentTypeEvent       PaymentType = "event"
	PaymentTypeMaintenance PaymentType = "maintenance"
	PaymentTypeDues        PaymentType = "dues"
)

// Payment is a ledger record; gateway settlement happens elsewhere.
type Payment struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	Amount      int64         `json:"amount"` // smallest currency unit
	Type        PaymentType   `json:"payment_type"`
	ReferenceID int64         `json:"reference_id,omitempty"`
	Receipt     string        `json:"receipt"`
	Status      PaymentStatus `json:"status"`
	Description string        `json:"description,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PollOption is a single choice within a poll.
type PollOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Poll put to the members by staff.
type Poll struct {
	ID             int64        `json:"id"`
	CreatedBy      int64        `json:"created_by"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Options        []PollOption `json:"options"`
	MultipleChoice bool         `json:"is_multiple_choice"`
	EndDate        *time.Time   `json:"end_date,omitempty"`
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PollVote is one member's vote for one option.
type PollVote struct {
	ID        int64     `json:"id"`
	PollID    int64     `json:"poll_id"`
	UserID    int64     `json:"user_id"`
	OptionID  string    `json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is an inbox row; delivery channels consume it elsewhere.
type Notification struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	ReferenceID int64     `json:"reference_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
