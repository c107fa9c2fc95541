package app

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"court-booking-service/internal/availability"
	"court-booking-service/internal/catalog"
	"court-booking-service/internal/domain"
	"court-booking-service/internal/ledger"
	"court-booking-service/internal/timeslot"
)

// App turns HTTP requests into catalog, availability and ledger calls.
type App struct {
	Catalog      *catalog.Service
	Availability *availability.Calculator
	Ledger       *ledger.Ledger
	Calendar     *CalendarExporter
	Clock        timeslot.Clock
}

// Register mounts the API on router. The OAuth2 callback is reachable
// without a token.
func (a *App) Register(router gin.IRouter, auth gin.HandlerFunc) {
	registerValidators()

	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api", auth)
	{
		academy := api.Group("/academy")
		{
			academy.GET("/locations", a.LocationsHandler)
			academy.GET("/sports/:city", a.SportsHandler)
			academy.POST("/onboard-academy", a.OnboardAcademyHandler)
			academy.POST("/getDetails", a.AcademyDetailsHandler)
			academy.POST("/configure", a.ConfigureAcademyHandler)
		}
		booking := api.Group("/booking")
		{
			booking.POST("/search", a.SearchHandler)
			booking.POST("/check-availability", a.CheckAvailabilityHandler)
			booking.POST("/create", a.CreateBookingHandler)
			booking.PATCH("/modify-booking", a.ModifyBookingHandler)
			booking.POST("/cancel-booking", a.CancelBookingHandler)
			booking.POST("/my-bookings", a.MyBookingsHandler)
			booking.POST("/academy-bookings", a.AcademyBookingsHandler)
		}
		calendar := api.Group("/calendar")
		{
			calendar.GET("/auth", a.GoogleAuthHandler)
			calendar.POST("/sync", a.SyncCalendarHandler)
		}
	}
}

// academy looks id up once per request. A missing academy yields nil.
func (a *App) academy(ctx context.Context, seen map[string]*domain.Academy, id string) *domain.Academy {
	if ac, ok := seen[id]; ok {
		return ac
	}
	ac, err := a.Catalog.Academy(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "academy lookup failed", "academy_id", id, "error", err)
		ac = nil
	}
	seen[id] = ac
	return ac
}
