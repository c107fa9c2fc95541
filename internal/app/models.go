package app

import (
	"fmt"
	"time"

	"court-booking-service/internal/availability"
	"court-booking-service/internal/domain"
	"court-booking-service/internal/ledger"
	"court-booking-service/internal/timeslot"
)

type availabilityReq struct {
	AcademyID string `json:"academyId" binding:"required"`
	Sport     string `json:"sport" binding:"required"`
	Date      string `json:"date" binding:"required,date"`
	StartTime string `json:"startTime" binding:"required,clock"`
	Duration  int    `json:"duration" binding:"required,gt=0,max=1440"`
}

func (r availabilityReq) request() (availability.Request, error) {
	date, err := timeslot.ParseDate(r.Date)
	if err != nil {
		return availability.Request{}, domain.Invalid("date", "%v", err)
	}
	start, err := timeslot.Parse(r.StartTime)
	if err != nil {
		return availability.Request{}, domain.Invalid("startTime", "%v", err)
	}
	return availability.Request{
		AcademyID: r.AcademyID,
		Sport:     r.Sport,
		Date:      date,
		Start:     start,
		Duration:  r.Duration,
	}, nil
}

type createBookingReq struct {
	availabilityReq
	UserEmail   string `json:"userEmail" binding:"omitempty,email"`
	UserID      string `json:"userId"`
	CourtNumber int    `json:"courtNumber" binding:"required,gte=1"`
}

func (r createBookingReq) booking() (ledger.BookingRequest, error) {
	req, err := r.request()
	if err != nil {
		return ledger.BookingRequest{}, err
	}
	return ledger.BookingRequest{Request: req, CourtNumber: r.CourtNumber}, nil
}

type modifyBookingReq struct {
	createBookingReq
	BookingID string `json:"bookingId" binding:"required"`
}

type cancelBookingReq struct {
	BookingID string `json:"bookingId" binding:"required"`
	UserEmail string `json:"userEmail" binding:"omitempty,email"`
	UserID    string `json:"userId"`
}

type myBookingsReq struct {
	UserEmail string `json:"userEmail" binding:"omitempty,email"`
	UserID    string `json:"userId"`
}

type academyBookingsReq struct {
	AcademyID string `json:"academyId" binding:"required"`
	StartDate string `json:"startDate" binding:"required,date"`
	EndDate   string `json:"endDate" binding:"required,date"`
	Sport     string `json:"sport"`
}

type searchReq struct {
	City  string `json:"city" binding:"required"`
	Sport string `json:"sport" binding:"required"`
	Date  string `json:"date" binding:"omitempty,date"`
}

type onboardReq struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city" binding:"required"`
}

type detailsReq struct {
	Email string `json:"email" binding:"required,email"`
}

type sportReq struct {
	SportName      string                `json:"sportName" binding:"required"`
	NumberOfCourts int                   `json:"numberOfCourts" binding:"required,gte=1"`
	StartTime      string                `json:"startTime" binding:"required,clock"`
	EndTime        string                `json:"endTime" binding:"required,clock"`
	Pricing        []domain.CourtPricing `json:"pricing"`
}

type configureReq struct {
	Email  string     `json:"email" binding:"required,email"`
	Sports []sportReq `json:"sports" binding:"required,min=1,dive"`
}

func (r configureReq) sports() []domain.SportConfig {
	out := make([]domain.SportConfig, 0, len(r.Sports))
	for _, s := range r.Sports {
		out = append(out, domain.SportConfig{
			SportName:      s.SportName,
			NumberOfCourts: s.NumberOfCourts,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			Pricing:        s.Pricing,
		})
	}
	return out
}

type academySummary struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
}

type bookingResp struct {
	ID          string          `json:"_id"`
	AcademyID   string          `json:"academyId"`
	Academy     *academySummary `json:"academy,omitempty"`
	Sport       string          `json:"sport"`
	CourtNumber int             `json:"courtNumber"`
	Date        string          `json:"date"`
	StartTime   string          `json:"startTime"`
	EndTime     string          `json:"endTime"`
	Duration    int             `json:"duration"`
	UserEmail   string          `json:"userEmail"`
	UserID      string          `json:"userId,omitempty"`
	Price       float64         `json:"price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toBookingResp(b domain.Booking) bookingResp {
	return bookingResp{
		ID:          b.ID,
		AcademyID:   b.AcademyID,
		Sport:       b.Sport,
		CourtNumber: b.CourtNumber,
		Date:        b.Date.String(),
		StartTime:   timeslot.Format(b.Start),
		EndTime:     timeslot.Format(b.End),
		Duration:    b.Duration(),
		UserEmail:   b.UserEmail,
		UserID:      b.UserID,
		Price:       b.Price,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBookingResps(bs []domain.Booking) []bookingResp {
	out := make([]bookingResp, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResp(b))
	}
	return out
}

func summarize(a *domain.Academy) *academySummary {
	return &academySummary{ID: a.ID, Name: a.Name, Address: a.Address, City: a.City}
}

func courtLabel(sport string, court int) string {
	return fmt.Sprintf("%s court %d", sport, court)
}
