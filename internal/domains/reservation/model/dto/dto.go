package dto

import (
	"strings"
	"time"

	"innkeeper/internal/domains/billing"
	"innkeeper/internal/domains/reservation/model"
	"innkeeper/shared"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	gModel "innkeeper/shared/model"
	"innkeeper/shared/timezone"

	"github.com/google/uuid"
)

type CreateReservationRequest struct {
	GuestName     string `json:"guest_name"     validate:"required,notblank,max=150"`
	Address       string `json:"address"        validate:"required,notblank,max=255"`
	ContactNumber string `json:"contact_number" validate:"required,notblank,max=30"`
	RoomID        string `json:"room_id"        validate:"required,uuid"`
	CheckIn       string `json:"check_in"       validate:"required,calendardate"`
	CheckOut      string `json:"check_out"      validate:"required,calendardate"`
}

// Stay parses the requested dates.
func (c *CreateReservationRequest) Stay() (time.Time, time.Time, error) {
	return parseStay(c.CheckIn, c.CheckOut)
}

func (c *CreateReservationRequest) ToModel(user string, roomType string, checkIn, checkOut time.Time, stay billing.Stay) model.Reservation {
	now := timezone.Now()

	return model.Reservation{
		ID:               uuid.NewString(),
		GuestName:        strings.TrimSpace(c.GuestName),
		Address:          strings.TrimSpace(c.Address),
		ContactNumber:    strings.TrimSpace(c.ContactNumber),
		RoomID:           c.RoomID,
		RoomType:         roomType,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Nights:           stay.Nights,
		NightlyRateCents: stay.NightlyRateCents,
		TotalAmountCents: stay.TotalCents,
		Status:           model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

// UpdateReservationRequest is a partial edit; nil fields keep their stored value.
// Status is deliberately absent, it only moves through SetStatus.
type UpdateReservationRequest struct {
	GuestName     *string `json:"guest_name"     validate:"omitempty,notblank,max=150"`
	Address       *string `json:"address"        validate:"omitempty,notblank,max=255"`
	ContactNumber *string `json:"contact_number" validate:"omitempty,notblank,max=30"`
	RoomID        *string `json:"room_id"        validate:"omitempty,uuid"`
	CheckIn       *string `json:"check_in"       validate:"omitempty,calendardate"`
	CheckOut      *string `json:"check_out"      validate:"omitempty,calendardate"`
}

// Merge overlays the provided fields on current and returns the candidate
// reservation plus its parsed stay dates.
func (u *UpdateReservationRequest) Merge(current model.Reservation) (model.Reservation, error) {
	merged := current

	if u.GuestName != nil {
		merged.GuestName = strings.TrimSpace(*u.GuestName)
	}

	if u.Address != nil {
		merged.Address = strings.TrimSpace(*u.Address)
	}

	if u.ContactNumber != nil {
		merged.ContactNumber = strings.TrimSpace(*u.ContactNumber)
	}

	if u.RoomID != nil {
		merged.RoomID = *u.RoomID
	}

	checkIn := timezone.FormatDate(current.CheckIn)
	if u.CheckIn != nil {
		checkIn = *u.CheckIn
	}

	checkOut := timezone.FormatDate(current.CheckOut)
	if u.CheckOut != nil {
		checkOut = *u.CheckOut
	}

	in, out, err := parseStay(checkIn, checkOut)
	if err != nil {
		return merged, err
	}

	merged.CheckIn = in
	merged.CheckOut = out

	return merged, nil
}

// UpdatedFields is the full replacement column set for a merged reservation.
func UpdatedFields(r model.Reservation, user string) map[string]any {
	return shared.Stamp(map[string]any{
		model.FieldGuestName:        r.GuestName,
		model.FieldAddress:          r.Address,
		model.FieldContactNumber:    r.ContactNumber,
		model.FieldRoomID:           r.RoomID,
		model.FieldRoomType:         r.RoomType,
		model.FieldCheckIn:          r.CheckIn,
		model.FieldCheckOut:         r.CheckOut,
		model.FieldNights:           r.Nights,
		model.FieldNightlyRateCents: r.NightlyRateCents,
		model.FieldTotalAmountCents: r.TotalAmountCents,
	}, user)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// GuestFields are the required guest details checked on every write.
func GuestFields(r model.Reservation) error {
	switch {
	case strings.TrimSpace(r.GuestName) == constant.Empty:
		return failure.Validation("guest_name is required")
	case strings.TrimSpace(r.Address) == constant.Empty:
		return failure.Validation("address is required")
	case strings.TrimSpace(r.ContactNumber) == constant.Empty:
		return failure.Validation("contact_number is required")
	case r.RoomID == constant.Empty:
		return failure.Validation("room_id is required")
	}

	return nil
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := timezone.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, failure.Validation("check_in must be a date in YYYY-MM-DD format")
	}

	out, err := timezone.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, failure.Validation("check_out must be a date in YYYY-MM-DD format")
	}

	return in, out, nil
}

// ReservationResponse carries everything needed to render the bill.
type ReservationResponse struct {
	ID            string  `json:"id"`
	GuestName     string  `json:"guest_name"`
	Address       string  `json:"address"`
	ContactNumber string  `json:"contact_number"`
	RoomID        string  `json:"room_id"`
	RoomType      string  `json:"room_type"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	Nights        int     `json:"nights"`
	NightlyRate   float64 `json:"nightly_rate"`
	TotalAmount   float64 `json:"total_amount"`
	Status        string  `json:"status"`
	gDto.Metadata
}

func (r *ReservationResponse) FromModel(model model.Reservation) {
	r.ID = model.ID
	r.GuestName = model.GuestName
	r.Address = model.Address
	r.ContactNumber = model.ContactNumber
	r.RoomID = model.RoomID
	r.RoomType = model.RoomType
	r.CheckIn = timezone.FormatDate(model.CheckIn)
	r.CheckOut = timezone.FormatDate(model.CheckOut)
	r.Nights = model.Nights
	r.NightlyRate = billing.FromCents(model.NightlyRateCents)
	r.TotalAmount = billing.FromCents(model.TotalAmountCents)
	r.Status = model.Status
	r.Metadata.FromModel(model.Metadata)
}

type GetReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	TotalPage    int                   `json:"total_page"`
	TotalData    int                   `json:"total_data"`
}

func (r *GetReservationsResponse) FromModels(models []model.Reservation, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Reservations = make([]ReservationResponse, len(models))
	for i, mod := range models {
		r.Reservations[i].FromModel(mod)
	}
}

type StatusSummary struct {
	Status       string  `json:"status"`
	Reservations int     `json:"reservations"`
	Nights       int64   `json:"nights"`
	Revenue      float64 `json:"revenue"`
}

type SummaryResponse struct {
	TotalReservations int             `json:"total_reservations"`
	TotalNights       int64           `json:"total_nights"`
	TotalRevenue      float64         `json:"total_revenue"`
	ByStatus          []StatusSummary `json:"by_status"`
}

// FromModels folds per-status rows into totals. Every status is listed, zero or not.
func (s *SummaryResponse) FromModels(rows []model.Summary) {
	byStatus := make(map[string]model.Summary, len(rows))
	var revenueCents int64

	for _, row := range rows {
		byStatus[row.Status] = row
		s.TotalReservations += row.Reservations
		s.TotalNights += row.Nights
		revenueCents += row.RevenueCents
	}

	s.TotalRevenue = billing.FromCents(revenueCents)
	s.ByStatus = make([]StatusSummary, len(model.Statuses))

	for i, status := range model.Statuses {
		row := byStatus[status]
		s.ByStatus[i] = StatusSummary{
			Status:       status,
			Reservations: row.Reservations,
			Nights:       row.Nights,
			Revenue:      billing.FromCents(row.RevenueCents),
		}
	}
}
