package domain

import (
	"strings"
	"time"

	"court-booking-service/internal/timeslot"
)

type Academy struct {
	ID        string        `json:"_id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone,omitempty"`
	Address   string        `json:"address"`
	City      string        `json:"city"`
	Sports    []SportConfig `json:"sports"`
	CreatedAt time.Time     `json:"createdAt,omitempty"`
}

// Sport returns the configuration for sport, matched case-insensitively.
func (a *Academy) Sport(sport string) (SportConfig, bool) {
	name := NormalizeSport(sport)
	for _, s := range a.Sports {
		if s.SportName == name {
			return s, true
		}
	}
	return SportConfig{}, false
}

type SportConfig struct {
	SportName      string         `json:"sportName"`
	NumberOfCourts int            `json:"numberOfCourts"`
	StartTime      string         `json:"startTime"`
	EndTime        string         `json:"endTime"`
	Pricing        []CourtPricing `json:"pricing"`
}

// Window returns the operating hours in minutes since midnight.
func (c SportConfig) Window() (start, end int, err error) {
	if start, err = timeslot.Parse(c.StartTime); err != nil {
		return 0, 0, err
	}
	if end, err = timeslot.Parse(c.EndTime); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

type CourtPricing struct {
	CourtNumber int         `json:"courtNumber"`
	Prices      []SlotPrice `json:"prices"`
}

type SlotPrice struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

func NormalizeSport(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking reserves one court of one sport at an academy for [Start, End) on
// Date. Start and End are minutes since midnight.
type Booking struct {
	ID          string
	AcademyID   string
	Sport       string
	CourtNumber int
	Date        timeslot.Date
	Start       int
	End         int
	UserEmail   string
	UserID      string
	Price       float64
	Status      BookingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b Booking) Duration() int { return b.End - b.Start }

func (b Booking) Active() bool { return b.Status == BookingActive }

// Overlaps compares half-open intervals: touching ends do not conflict.
func (b Booking) Overlaps(start, end int) bool {
	return b.Start < end && start < b.End
}

// OwnedBy matches on email, or on the opaque user id when both carry one.
func (b Booking) OwnedBy(id Identity) bool {
	if b.UserID != "" && id.UserID != "" {
		return b.UserID == id.UserID
	}
	return strings.EqualFold(b.UserEmail, id.Email)
}

// Identity is the authenticated caller, passed explicitly into every
// operation.
type Identity struct {
	Email  string
	UserID string
	Role   string
}

const RoleAdmin = "admin"

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
