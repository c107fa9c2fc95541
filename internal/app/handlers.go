package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"court-booking-service/internal/catalog"
	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

// GET /academy/locations
func (a *App) LocationsHandler(c *gin.Context) {
	cities, err := a.Catalog.Locations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uniqueCities": cities})
}

// GET /academy/sports/:city
func (a *App) SportsHandler(c *gin.Context) {
	sports, err := a.Catalog.Sports(c.Request.Context(), c.Param("city"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sports": sports})
}

// POST /academy/onboard-academy
func (a *App) OnboardAcademyHandler(c *gin.Context) {
	var req onboardReq
	if !bind(c, &req) {
		return
	}
	if !canManage(c, req.Email) {
		writeError(c, fmt.Errorf("%w: cannot onboard an academy for %s", domain.ErrForbidden, req.Email))
		return
	}
	academy, err := a.Catalog.Onboard(c.Request.Context(), catalog.OnboardInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"academy": academy})
}

// POST /academy/getDetails
func (a *App) AcademyDetailsHandler(c *gin.Context) {
	var req detailsReq
	if !bind(c, &req) {
		return
	}
	academy, err := a.Catalog.AcademyByEmail(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"academy": academy})
}

// POST /academy/configure
func (a *App) ConfigureAcademyHandler(c *gin.Context) {
	var req configureReq
	if !bind(c, &req) {
		return
	}
	if !canManage(c, req.Email) {
		writeError(c, fmt.Errorf("%w: academy %s is managed by another account", domain.ErrForbidden, req.Email))
		return
	}
	academy, err := a.Catalog.Configure(c.Request.Context(), req.Email, req.sports())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"academy": academy})
}

// POST /booking/search
func (a *App) SearchHandler(c *gin.Context) {
	var req searchReq
	if !bind(c, &req) {
		return
	}
	academies, err := a.Catalog.Search(c.Request.Context(), req.City, req.Sport)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"academies": academies})
}

// POST /booking/check-availability
func (a *App) CheckAvailabilityHandler(c *gin.Context) {
	var req availabilityReq
	if !bind(c, &req) {
		return
	}
	r, err := req.request()
	if err != nil {
		writeError(c, err)
		return
	}
	courts, err := a.Availability.Check(c.Request.Context(), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courts": courts})
}

// POST /booking/create
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req createBookingReq
	if !bind(c, &req) {
		return
	}
	br, err := req.booking()
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := a.Ledger.Create(c.Request.Context(), caller(c, req.UserEmail, req.UserID), br)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": toBookingResp(b)})
}

// PATCH /booking/modify-booking
func (a *App) ModifyBookingHandler(c *gin.Context) {
	var req modifyBookingReq
	if !bind(c, &req) {
		return
	}
	br, err := req.booking()
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := a.Ledger.Modify(c.Request.Context(), caller(c, req.UserEmail, req.UserID), req.BookingID, br)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": toBookingResp(b)})
}

// POST /booking/cancel-booking
func (a *App) CancelBookingHandler(c *gin.Context) {
	var req cancelBookingReq
	if !bind(c, &req) {
		return
	}
	b, err := a.Ledger.Cancel(c.Request.Context(), caller(c, req.UserEmail, req.UserID), req.BookingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": toBookingResp(b)})
}

// POST /booking/my-bookings
// Each booking carries a summary of its academy.
func (a *App) MyBookingsHandler(c *gin.Context) {
	var req myBookingsReq
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	bookings, err := a.Ledger.ListForUser(ctx, caller(c, req.UserEmail, req.UserID))
	if err != nil {
		writeError(c, err)
		return
	}
	academies := map[string]*domain.Academy{}
	out := toBookingResps(bookings)
	for i := range out {
		if ac := a.academy(ctx, academies, out[i].AcademyID); ac != nil {
			out[i].Academy = summarize(ac)
		}
	}
	c.JSON(http.StatusOK, out)
}

// POST /booking/academy-bookings
func (a *App) AcademyBookingsHandler(c *gin.Context) {
	var req academyBookingsReq
	if !bind(c, &req) {
		return
	}
	from, err := timeslot.ParseDate(req.StartDate)
	if err != nil {
		writeError(c, domain.Invalid("startDate", "%v", err))
		return
	}
	to, err := timeslot.ParseDate(req.EndDate)
	if err != nil {
		writeError(c, domain.Invalid("endDate", "%v", err))
		return
	}

	ctx := c.Request.Context()
	academy, err := a.Catalog.Academy(ctx, req.AcademyID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !canManage(c, academy.Email) {
		writeError(c, fmt.Errorf("%w: academy %s is managed by another account", domain.ErrForbidden, academy.ID))
		return
	}
	bookings, err := a.Ledger.ListForAcademy(ctx, academy.ID, from, to, req.Sport)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": toBookingResps(bookings)})
}
