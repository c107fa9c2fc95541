package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"court-booking-service/internal/domain"
)

func newTestCatalog(t *testing.T) (*Service, *domain.Academy) {
	t.Helper()
	svc := NewService(NewMemoryStore())
	a, err := svc.Onboard(context.Background(), OnboardInput{
		Name: "Smash Academy", Email: "Owner@Smash.test", Address: "1 Court St", City: "Toronto",
	})
	require.NoError(t, err)
	return svc, a
}

func badminton(courts int, start, end string) domain.SportConfig {
	return domain.SportConfig{SportName: "Badminton", NumberOfCourts: courts, StartTime: start, EndTime: end}
}

func TestRegeneratePricing_ShapeMatchesSlots(t *testing.T) {
	table, err := RegeneratePricing(badminton(2, "08:00", "20:00"), nil)
	require.NoError(t, err)
	require.Len(t, table, 2)
	for i, court := range table {
		assert.Equal(t, i+1, court.CourtNumber)
		require.Len(t, court.Prices, 12)
		assert.Equal(t, "08:00", court.Prices[0].Time)
		assert.Equal(t, "19:00", court.Prices[11].Time)
		for _, p := range court.Prices {
			assert.Zero(t, p.Price)
		}
	}
}

func TestRegeneratePricing_KeepsMatchingSlots(t *testing.T) {
	prior := []domain.CourtPricing{
		{CourtNumber: 1, Prices: []domain.SlotPrice{{Time: "08:00", Price: 10}, {Time: "9:00", Price: 12}, {Time: "10:00", Price: 15}}},
		{CourtNumber: 2, Prices: []domain.SlotPrice{{Time: "08:00", Price: 20}}},
	}

	table, err := RegeneratePricing(badminton(3, "09:00", "11:00"), prior)
	require.NoError(t, err)
	require.Len(t, table, 3)

	assert.Equal(t, []domain.SlotPrice{{Time: "09:00", Price: 12}, {Time: "10:00", Price: 15}}, table[0].Prices)
	assert.Equal(t, []domain.SlotPrice{{Time: "09:00"}, {Time: "10:00"}}, table[1].Prices)
	assert.Equal(t, []domain.SlotPrice{{Time: "09:00"}, {Time: "10:00"}}, table[2].Prices)
}

func TestUpsertSport_IdempotentForUnchangedHours(t *testing.T) {
	ctx := context.Background()
	svc, a := newTestCatalog(t)

	cfg, err := svc.UpsertSport(ctx, a.ID, badminton(2, "08:00", "20:00"))
	require.NoError(t, err)
	for c := range cfg.Pricing {
		for s := range cfg.Pricing[c].Prices {
			cfg.Pricing[c].Prices[s].Price = float64(100*(c+1) + s)
		}
	}
	priced, err := svc.UpsertSport(ctx, a.ID, cfg)
	require.NoError(t, err)

	again, err := svc.UpsertSport(ctx, a.ID, priced)
	require.NoError(t, err)
	assert.Equal(t, priced.Pricing, again.Pricing)

	// Without a submitted table the stored one is the prior.
	bare, err := svc.UpsertSport(ctx, a.ID, badminton(2, "08:00", "20:00"))
	require.NoError(t, err)
	assert.Equal(t, priced.Pricing, bare.Pricing)

	stored, err := svc.SportConfig(ctx, a.ID, "BADMINTON")
	require.NoError(t, err)
	assert.Equal(t, priced.Pricing, stored.Pricing)
}

func TestUpsertSport_Validation(t *testing.T) {
	ctx := context.Background()
	svc, a := newTestCatalog(t)

	cases := map[string]struct {
		cfg   domain.SportConfig
		field string
	}{
		"no courts":      {badminton(0, "08:00", "20:00"), "numberOfCourts"},
		"negative":       {badminton(-1, "08:00", "20:00"), "numberOfCourts"},
		"bad start":      {badminton(1, "8am", "20:00"), "startTime"},
		"end before":     {badminton(1, "20:00", "08:00"), "endTime"},
		"same hours":     {badminton(1, "08:00", "08:00"), "endTime"},
		"half hour":      {badminton(1, "08:30", "20:00"), "startTime"},
		"missing sport":  {domain.SportConfig{NumberOfCourts: 1, StartTime: "08:00", EndTime: "09:00"}, "sportName"},
		"negative price": {domain.SportConfig{SportName: "x", NumberOfCourts: 1, StartTime: "08:00", EndTime: "09:00", Pricing: []domain.CourtPricing{{CourtNumber: 1, Prices: []domain.SlotPrice{{Time: "08:00", Price: -5}}}}}, "pricing"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpsertSport(ctx, a.ID, tc.cfg)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestSportConfig_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, a := newTestCatalog(t)

	_, err := svc.SportConfig(ctx, "missing", "badminton")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.SportConfig(ctx, a.ID, "squash")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPrice(t *testing.T) {
	ctx := context.Background()
	svc, a := newTestCatalog(t)

	cfg := badminton(2, "08:00", "20:00")
	cfg.Pricing = []domain.CourtPricing{
		{CourtNumber: 1, Prices: []domain.SlotPrice{{Time: "10:00", Price: 25}, {Time: "11:00", Price: 30}}},
	}
	_, err := svc.UpsertSport(ctx, a.ID, cfg)
	require.NoError(t, err)

	p, err := svc.Price(ctx, a.ID, "badminton", 1, "10:00")
	require.NoError(t, err)
	assert.Equal(t, 25.0, p)

	p, err = svc.Price(ctx, a.ID, "badminton", 1, "10:30")
	require.NoError(t, err)
	assert.Equal(t, 25.0, p)

	p, err = svc.Price(ctx, a.ID, "badminton", 2, "11:00")
	require.NoError(t, err)
	assert.Zero(t, p)

	_, err = svc.Price(ctx, a.ID, "badminton", 1, "07:30")
	require.ErrorIs(t, err, domain.ErrNoPricingData)
	_, err = svc.Price(ctx, a.ID, "badminton", 1, "20:00")
	require.ErrorIs(t, err, domain.ErrNoPricingData)
	_, err = svc.Price(ctx, a.ID, "badminton", 3, "10:00")
	require.ErrorIs(t, err, domain.ErrNoPricingData)
}

func TestOnboard(t *testing.T) {
	ctx := context.Background()
	svc, a := newTestCatalog(t)

	assert.Equal(t, "owner@smash.test", a.Email)
	assert.Equal(t, "toronto", a.City)

	_, err := svc.Onboard(ctx, OnboardInput{Name: "Dup", Email: "owner@smash.test", City: "Toronto"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = svc.Onboard(ctx, OnboardInput{Name: "Bad", Email: "not-an-email", City: "Toronto"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

func TestConfigure_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, a := newTestCatalog(t)

	_, err := svc.Configure(ctx, a.Email, []domain.SportConfig{
		badminton(2, "08:00", "20:00"),
		{SportName: "tennis", NumberOfCourts: 0, StartTime: "08:00", EndTime: "20:00"},
	})
	require.Error(t, err)
	got, err := svc.Academy(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Sports)

	got, err = svc.Configure(ctx, "OWNER@smash.test", []domain.SportConfig{
		badminton(2, "08:00", "20:00"),
		{SportName: "Tennis", NumberOfCourts: 1, StartTime: "06:00", EndTime: "22:00"},
	})
	require.NoError(t, err)
	require.Len(t, got.Sports, 2)
	assert.Equal(t, "tennis", got.Sports[1].SportName)
	assert.Len(t, got.Sports[1].Pricing[0].Prices, 16)

	_, err = svc.Configure(ctx, a.Email, []domain.SportConfig{badminton(1, "08:00", "09:00"), badminton(1, "08:00", "09:00")})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.Configure(ctx, "nobody@smash.test", []domain.SportConfig{badminton(1, "08:00", "09:00")})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDiscovery(t *testing.T) {
	ctx := context.Background()
	svc, a := newTestCatalog(t)
	_, err := svc.UpsertSport(ctx, a.ID, badminton(2, "08:00", "20:00"))
	require.NoError(t, err)

	b, err := svc.Onboard(ctx, OnboardInput{Name: "Net Club", Email: "net@club.test", City: "Ottawa"})
	require.NoError(t, err)
	_, err = svc.UpsertSport(ctx, b.ID, domain.SportConfig{SportName: "tennis", NumberOfCourts: 1, StartTime: "08:00", EndTime: "10:00"})
	require.NoError(t, err)

	cities, err := svc.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ottawa", "toronto"}, cities)

	sports, err := svc.Sports(ctx, "Toronto")
	require.NoError(t, err)
	assert.Equal(t, []string{"badminton"}, sports)

	found, err := svc.Search(ctx, "toronto", "Badminton")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	found, err = svc.Search(ctx, "toronto", "tennis")
	require.NoError(t, err)
	assert.Empty(t, found)
}
