package catalog

import (
	"fmt"

	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

// RegeneratePricing rebuilds the pricing table for cfg's courts and hours.
// A court/slot pair keeps its price from prior when prior has one; every other
// cell starts at zero.
func RegeneratePricing(cfg domain.SportConfig, prior []domain.CourtPricing) ([]domain.CourtPricing, error) {
	slots, err := timeslot.PriceSlots(cfg.StartTime, cfg.EndTime)
	if err != nil {
		return nil, err
	}

	old := make(map[int]map[string]float64, len(prior))
	for _, court := range prior {
		prices := make(map[string]float64, len(court.Prices))
		for _, p := range court.Prices {
			// Tolerate "9:00" style labels from older payloads.
			if m, err := timeslot.Parse(p.Time); err == nil {
				prices[timeslot.Format(m)] = p.Price
			}
		}
		old[court.CourtNumber] = prices
	}

	table := make([]domain.CourtPricing, cfg.NumberOfCourts)
	for i := range table {
		n := i + 1
		prices := make([]domain.SlotPrice, len(slots))
		for j, slot := range slots {
			prices[j] = domain.SlotPrice{Time: slot, Price: old[n][slot]}
		}
		table[i] = domain.CourtPricing{CourtNumber: n, Prices: prices}
	}
	return table, nil
}

// PriceAt returns the price of the pricing slot containing minute on court.
// Bookings are priced by their start slot only, whatever their duration.
func PriceAt(cfg domain.SportConfig, court, minute int) (float64, error) {
	start, end, err := cfg.Window()
	if err != nil {
		return 0, err
	}
	if minute < start || minute >= end {
		return 0, fmt.Errorf("%w: %s %s", domain.ErrNoPricingData, cfg.SportName, timeslot.Format(minute))
	}
	for _, c := range cfg.Pricing {
		if c.CourtNumber != court {
			continue
		}
		best, found := -1, false
		var price float64
		for _, p := range c.Prices {
			m, err := timeslot.Parse(p.Time)
			if err != nil || m > minute || m <= best {
				continue
			}
			best, price, found = m, p.Price, true
		}
		if found {
			return price, nil
		}
	}
	return 0, fmt.Errorf("%w: court %d at %s", domain.ErrNoPricingData, court, timeslot.Format(minute))
}
