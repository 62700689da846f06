package dto

import (
	"mime/multipart"
	"time"

	"innkeeper/internal/domains/availability"
	"innkeeper/internal/domains/billing"
	"innkeeper/internal/domains/room/model"
	"innkeeper/shared"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	gModel "innkeeper/shared/model"
	"innkeeper/shared/timezone"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	RoomType    string                `json:"room_type"    validate:"required,notblank,max=100"`
	NightlyRate float64               `json:"nightly_rate" validate:"required,gt=0"`
	TotalUnits  int                   `json:"total_units"  validate:"required,min=1"`
	Description string                `json:"description"  validate:"required,notblank"`
	Image       *multipart.FileHeader `json:"-"            validate:"omitempty,mimetypes=image/png image/jpg image/jpeg image/webp,maxfilesize=2"`
	ImageFile   multipart.File        `json:"-"`
	// ImageRef is an already hosted image reference, or a base64 data URI to upload.
	ImageRef string `json:"image_ref" validate:"required_without=Image,omitempty,notblank"`
}

func (c *CreateRoomRequest) ToModel(user string, image string) model.Room {
	now := timezone.Now()

	return model.Room{
		ID:               uuid.NewString(),
		RoomType:         c.RoomType,
		NightlyRateCents: billing.ToCents(c.NightlyRate),
		TotalUnits:       c.TotalUnits,
		Description:      c.Description,
		Image:            image,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

// UpdateRoomRequest is a partial update; nil fields keep their stored value.
type UpdateRoomRequest struct {
	RoomType    *string               `json:"room_type"    validate:"omitempty,notblank,max=100"`
	NightlyRate *float64              `json:"nightly_rate" validate:"omitempty,gt=0"`
	TotalUnits  *int                  `json:"total_units"  validate:"omitempty,min=1"`
	Description *string               `json:"description"  validate:"omitempty,notblank"`
	Image       *multipart.FileHeader `json:"-"            validate:"omitempty,mimetypes=image/png image/jpg image/jpeg image/webp,maxfilesize=2"`
	ImageFile   multipart.File        `json:"-"`
	ImageRef    *string               `json:"image_ref"    validate:"omitempty,notblank"`
}

// UpdatedFields maps the provided fields to columns, stamping modification metadata.
func (u *UpdateRoomRequest) UpdatedFields(user string) map[string]any {
	fields := shared.Stamp(map[string]any{}, user)

	if u.RoomType != nil {
		fields[model.FieldRoomType] = *u.RoomType
	}

	if u.NightlyRate != nil {
		fields[model.FieldNightlyRateCents] = billing.ToCents(*u.NightlyRate)
	}

	if u.TotalUnits != nil {
		fields[model.FieldTotalUnits] = *u.TotalUnits
	}

	if u.Description != nil {
		fields[model.FieldDescription] = *u.Description
	}

	return fields
}

func (u *UpdateRoomRequest) HasChanges() bool {
	return u.RoomType != nil || u.NightlyRate != nil || u.TotalUnits != nil ||
		u.Description != nil || u.Image != nil || u.ImageRef != nil
}

// AvailabilityQuery selects the stay range that available_units is computed for.
// Both dates empty means from today onward.
type AvailabilityQuery struct {
	CheckIn  string `json:"check_in"  validate:"required_with=CheckOut,omitempty,calendardate"`
	CheckOut string `json:"check_out" validate:"required_with=CheckIn,omitempty,calendardate"`
}

// Range resolves the query against today's date.
func (q AvailabilityQuery) Range(today time.Time) (availability.Range, error) {
	if q.CheckIn == constant.Empty && q.CheckOut == constant.Empty {
		return availability.Open(today), nil
	}

	checkIn, err := timezone.ParseDate(q.CheckIn)
	if err != nil {
		return availability.Range{}, failure.Validation("check_in must be a date in YYYY-MM-DD format")
	}

	checkOut, err := timezone.ParseDate(q.CheckOut)
	if err != nil {
		return availability.Range{}, failure.Validation("check_out must be a date in YYYY-MM-DD format")
	}

	if !checkOut.After(checkIn) {
		return availability.Range{}, failure.Validation("check_out must be after check_in")
	}

	return availability.Range{CheckIn: checkIn, CheckOut: checkOut}, nil
}

// Key identifies the query in cache keys.
func (q AvailabilityQuery) Key(today time.Time) string {
	if q.CheckIn == constant.Empty && q.CheckOut == constant.Empty {
		return "from-" + timezone.FormatDate(today)
	}

	return q.CheckIn + "_" + q.CheckOut
}

type RoomResponse struct {
	ID             string  `json:"id"`
	RoomType       string  `json:"room_type"`
	NightlyRate    float64 `json:"nightly_rate"`
	TotalUnits     int     `json:"total_units"`
	AvailableUnits int     `json:"available_units"`
	Description    string  `json:"description"`
	Image          string  `json:"image"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room, availableUnits int) {
	r.ID = model.ID
	r.RoomType = model.RoomType
	r.NightlyRate = billing.FromCents(model.NightlyRateCents)
	r.TotalUnits = model.TotalUnits
	r.AvailableUnits = availableUnits
	r.Description = model.Description
	r.Image = model.Image
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

// FromModels builds the page; available holds free units per room id.
func (r *GetRoomsResponse) FromModels(models []model.Room, available map[string]int, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod, available[mod.ID])
	}
}
