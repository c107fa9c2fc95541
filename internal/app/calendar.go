package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

// CalendarExporter copies a user's upcoming bookings into their Google
// Calendar.
type CalendarExporter struct {
	Config   *oauth2.Config
	Location *time.Location

	newService func(ctx context.Context, token *oauth2.Token) (*calendar.Service, error)
}

// NewCalendarExporter returns nil unless all OAuth2 settings are present.
func NewCalendarExporter(clientID, clientSecret, redirectURL string, loc *time.Location) *CalendarExporter {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	e := &CalendarExporter{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		Location: loc,
	}
	e.newService = func(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
		return calendar.NewService(ctx, option.WithHTTPClient(e.Config.Client(ctx, token)))
	}
	return e
}

// bookingEvent renders b as a calendar event. The event id is derived from
// the booking id so repeated syncs update rather than duplicate.
func bookingEvent(b domain.Booking, academy *domain.Academy, loc *time.Location) *calendar.Event {
	ev := &calendar.Event{
		Id:          strings.ReplaceAll(b.ID, "-", ""),
		Summary:     courtLabel(b.Sport, b.CourtNumber),
		Description: fmt.Sprintf("Booking %s, price %.2f", b.ID, b.Price),
		Start:       &calendar.EventDateTime{DateTime: b.Date.At(b.Start, loc).Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: b.Date.At(b.End, loc).Format(time.RFC3339)},
	}
	if academy != nil {
		ev.Summary = academy.Name + ": " + ev.Summary
		ev.Location = strings.Join([]string{academy.Name, academy.Address, academy.City}, ", ")
	}
	if loc != time.Local && loc != time.UTC {
		ev.Start.TimeZone = loc.String()
		ev.End.TimeZone = loc.String()
	}
	return ev
}

// calendarReady answers 503 and reports false when Google OAuth2 is not
// configured.
func (a *App) calendarReady(c *gin.Context) bool {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return false
	}
	return true
}

// GET /calendar/auth
// The state is opaque to Google and echoed back on the callback.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if !a.calendarReady(c) {
		return
	}
	state := fmt.Sprintf("%s.%d", uuid.NewString(), a.Clock.Now().Unix())
	c.JSON(http.StatusOK, gin.H{
		"auth_url": a.Calendar.Config.AuthCodeURL(state, oauth2.AccessTypeOffline),
		"state":    state,
	})
}

// GET /oauth2callback
// The client keeps the returned token and presents it on sync.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if !a.calendarReady(c) {
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}
	token, err := a.Calendar.Config.Exchange(c.Request.Context(), code)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "exchange calendar code", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": c.Query("state"), "token": token})
}

// POST /calendar/sync
func (a *App) SyncCalendarHandler(c *gin.Context) {
	if !a.calendarReady(c) {
		return
	}
	tokenStr := c.GetHeader("X-Google-Token")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google token required in X-Google-Token header"})
		return
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenStr), &token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token format"})
		return
	}
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
	srv, err := a.Calendar.newService(ctx, &token)
	if err != nil {
		slog.ErrorContext(ctx, "create calendar service", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create calendar service"})
		return
	}

	now := a.Clock.Now()
	academies := map[string]*domain.Academy{}
	synced := 0
	for _, b := range bookings {
		if timeslot.IsPast(b.Date, b.Start, now) {
			continue
		}
		ev := bookingEvent(b, a.academy(ctx, academies, b.AcademyID), a.Calendar.Location)
		if err := upsertEvent(ctx, srv, ev); err != nil {
			slog.ErrorContext(ctx, "sync booking to calendar", "booking_id", b.ID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to write calendar event", "synced": synced})
			return
		}
		synced++
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

func upsertEvent(ctx context.Context, srv *calendar.Service, ev *calendar.Event) error {
	_, err := srv.Events.Insert("primary", ev).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
		_, err = srv.Events.Update("primary", ev.Id, ev).Context(ctx).Do()
	}
	return err
}
