package model

import "innkeeper/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID               = "id"
	FieldRoomType         = "room_type"
	FieldNightlyRateCents = "nightly_rate_cents"
	FieldTotalUnits       = "total_units"
	FieldDescription      = "description"
	FieldImage            = "image"
)

// Cache prefixes. Listings embed availability, so reservation writes clear them too.
const (
	CacheKeyGet    = "room:get"
	CacheKeyGetAll = "room:gets"
	CacheKeyCount  = "room:count"
)

// Room is a room type with a fixed pool of identical units. Free units are
// never stored; they are derived from active reservations.
type Room struct {
	ID               string `db:"id"`
	RoomType         string `db:"room_type"`
	NightlyRateCents int64  `db:"nightly_rate_cents"`
	TotalUnits       int    `db:"total_units"`
	Description      string `db:"description"`
	Image            string `db:"image"`
	model.Metadata
}

// LockKey names the in-process lock shared by every write that consumes or
// frees units of the room.
func LockKey(id string) string {
	return EntityName + ":" + id
}

// Sortable maps public sort_by values to columns.
var Sortable = map[string]string{
	"created_at":   "created_at",
	"room_type":    FieldRoomType,
	"nightly_rate": FieldNightlyRateCents,
	"total_units":  FieldTotalUnits,
}
