package model

import (
	"time"

	"innkeeper/internal/domains/availability"
	"innkeeper/shared/model"
)

const (
	TableName  = "reservations"
	EntityName = "reservation"

	FieldID               = "id"
	FieldGuestName        = "guest_name"
	FieldAddress          = "address"
	FieldContactNumber    = "contact_number"
	FieldRoomID           = "room_id"
	FieldRoomType         = "room_type"
	FieldCheckIn          = "check_in"
	FieldCheckOut         = "check_out"
	FieldNights           = "nights"
	FieldNightlyRateCents = "nightly_rate_cents"
	FieldTotalAmountCents = "total_amount_cents"
	FieldStatus           = "status"
)

const (
	StatusPending  = availability.StatusPending
	StatusApproved = availability.StatusApproved
	StatusRejected = "REJECTED"
)

const (
	CacheKeyGet     = "reservation:get"
	CacheKeyGetAll  = "reservation:gets"
	CacheKeyCount   = "reservation:count"
	CacheKeySummary = "reservation:summary"
)

// Statuses lists every lifecycle state in display order.
var Statuses = []string{StatusPending, StatusApproved, StatusRejected}

// Reservation is one guest's request for one unit of a room over a stay.
// NightlyRateCents and RoomType are snapshots taken when the stay was priced.
type Reservation struct {
	ID               string    `db:"id"`
	GuestName        string    `db:"guest_name"`
	Address          string    `db:"address"`
	ContactNumber    string    `db:"contact_number"`
	RoomID           string    `db:"room_id"`
	RoomType         string    `db:"room_type"`
	CheckIn          time.Time `db:"check_in"`
	CheckOut         time.Time `db:"check_out"`
	Nights           int       `db:"nights"`
	NightlyRateCents int64     `db:"nightly_rate_cents"`
	TotalAmountCents int64     `db:"total_amount_cents"`
	Status           string    `db:"status"`
	model.Metadata
}

func (r Reservation) Booking() availability.Booking {
	return availability.Booking{
		ID:       r.ID,
		Status:   r.Status,
		CheckIn:  r.CheckIn,
		CheckOut: r.CheckOut,
	}
}

func Bookings(reservations []Reservation) []availability.Booking {
	res := make([]availability.Booking, len(reservations))
	for i, r := range reservations {
		res[i] = r.Booking()
	}

	return res
}

// GroupByRoom indexes bookings by room id.
func GroupByRoom(reservations []Reservation) map[string][]availability.Booking {
	res := make(map[string][]availability.Booking)
	for _, r := range reservations {
		res[r.RoomID] = append(res[r.RoomID], r.Booking())
	}

	return res
}

// LockKey names the in-process lock guarding edits of one reservation.
func LockKey(id string) string {
	return EntityName + ":" + id
}

// Summary is the aggregate row behind the reports view.
type Summary struct {
	Status       string `db:"status"`
	Reservations int    `db:"reservations"`
	Nights       int64  `db:"nights"`
	RevenueCents int64  `db:"revenue_cents"`
}

// Sortable maps public sort_by values to columns.
var Sortable = map[string]string{
	"created_at":   "created_at",
	"check_in":     FieldCheckIn,
	"check_out":    FieldCheckOut,
	"guest_name":   FieldGuestName,
	"status":       FieldStatus,
	"total_amount": FieldTotalAmountCents,
}
