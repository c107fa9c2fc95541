package domain

import (
	"errors"
	"slices"

	"court-booking-service/internal/timeslot"
)

var ErrActivityFull = errors.New("activity is full")

// Activity is a hosted pickup session other players ask to join.
type Activity struct {
	ID             string        `json:"_id"`
	HostEmail      string        `json:"hostEmail"`
	Sport          string        `json:"sport"`
	City           string        `json:"city"`
	Address        string        `json:"address"`
	Date           timeslot.Date `json:"date"`
	FromTime       string        `json:"fromTime"`
	ToTime         string        `json:"toTime"`
	SkillLevel     string        `json:"skillLevel"`
	MaxPlayers     int           `json:"maxPlayers"`
	JoinedPlayers  []string      `json:"joinedPlayers"`
	PendingPlayers []string      `json:"pendingRequests"`
}

// RequestJoin queues player for the host's approval.
func (a *Activity) RequestJoin(player string) error {
	if player == a.HostEmail || slices.Contains(a.JoinedPlayers, player) || slices.Contains(a.PendingPlayers, player) {
		return ErrAlreadyExists
	}
	if a.Full() {
		return ErrActivityFull
	}
	a.PendingPlayers = append(a.PendingPlayers, player)
	return nil
}

// Approve moves a pending player into the joined list. It never lets the
// joined list grow beyond MaxPlayers.
func (a *Activity) Approve(player string) error {
	i := slices.Index(a.PendingPlayers, player)
	if i < 0 {
		return ErrNotFound
	}
	if a.Full() {
		return ErrActivityFull
	}
	a.PendingPlayers = slices.Delete(a.PendingPlayers, i, i+1)
	a.JoinedPlayers = append(a.JoinedPlayers, player)
	return nil
}

func (a *Activity) Reject(player string) error {
	i := slices.Index(a.PendingPlayers, player)
	if i < 0 {
		return ErrNotFound
	}
	a.PendingPlayers = slices.Delete(a.PendingPlayers, i, i+1)
	return nil
}

// Withdraw removes player from either list.
func (a *Activity) Withdraw(player string) error {
	if i := slices.Index(a.JoinedPlayers, player); i >= 0 {
		a.JoinedPlayers = slices.Delete(a.JoinedPlayers, i, i+1)
		return nil
	}
	return a.Reject(player)
}

func (a *Activity) Full() bool {
	return len(a.JoinedPlayers) >= a.MaxPlayers
}
