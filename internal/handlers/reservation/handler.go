package reservation

import (
	"net/http"
	"slices"

	"innkeeper/infras/otel"
	"innkeeper/internal/domains/reservation/model"
	"innkeeper/internal/domains/reservation/model/dto"
	"innkeeper/internal/domains/reservation/service"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	"innkeeper/shared/validator"
	"innkeeper/transport/http/response"

	"github.com/go-chi/chi/v5"
)

const (
	queryParamFrom = "from"
	queryParamTo   = "to"
)

type Handler struct {
	service service.Reservation
	otel    otel.Otel
}

func New(service service.Reservation, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/reservations", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateReservation)
		routerGroup.Get("/", handler.GetReservations)
		routerGroup.Get("/summary", handler.GetSummary)
		routerGroup.Get("/{id}", handler.GetReservationByID)
		routerGroup.Patch("/{id}", handler.UpdateReservation)
		routerGroup.Patch("/{id}/status", handler.UpdateReservationStatus)
		routerGroup.Delete("/{id}", handler.CancelReservation)
	})
}

// CreateReservation books one unit of a room for a stay.
// @Summary Create a reservation
// @Description Reserve a unit of a room. The stay is priced at the room's current nightly rate and starts PENDING.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param request body dto.CreateReservationRequest true "Create Reservation Request"
// @Success 201 {object} response.Data[dto.ReservationResponse] "Reservation created"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "No unit left for the stay"
// @Failure 500 {object} response.Error
// @Router /v1/reservations [post]
// @Security BearerAuth
func (handler *Handler) CreateReservation(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateReservation")
	defer scope.End()

	req := dto.CreateReservationRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		response.Fail(writer, scope, err, "failed to validate request body")

		return
	}

	reservation, err := handler.service.Create(ctx, req)
	if err != nil {
		response.Fail(writer, scope, err, "failed to create reservation")

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Reservation created successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, reservation)
}

// GetReservations lists reservations.
// @Summary Get all reservations
// @Description List reservations with optional filters. Guests must filter by their own guest_name.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param guest_name query string false "Filter by guest name"
// @Param room_id query string false "Filter by room ID"
// @Param status query string false "Filter by status" Enums(PENDING, APPROVED, REJECTED)
// @Success 200 {object} response.Data[dto.GetReservationsResponse] "List of reservations"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations [get]
// @Security BearerAuth
func (handler *Handler) GetReservations(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservations")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	if err := queryParams.RestrictSort(model.Sortable); err != nil {
		response.WithError(w, err)

		return
	}

	guestName := r.URL.Query().Get(model.FieldGuestName)

	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)
	if role == constant.RoleGuest && guestName == constant.Empty {
		response.Fail(w, scope, failure.Forbidden("guests must filter reservations by guest_name"), "guest listing without guest_name")

		return
	}

	filterGroup, err := listFilter(r, guestName)
	if err != nil {
		response.WithError(w, err)

		return
	}

	reservations, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		response.Fail(w, scope, err, "failed to get reservations")

		return
	}

	scope.AddEvent("Reservations retrieved successfully")

	response.WithJSON(w, http.StatusOK, reservations)
}

// GetSummary reports reservation totals.
// @Summary Reservation summary
// @Description Totals of reservations, nights and revenue, overall and per status. Optionally limited to a room and a check-in window.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param room_id query string false "Filter by room ID"
// @Param from query string false "Earliest check-in (YYYY-MM-DD)"
// @Param to query string false "Latest check-in (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.SummaryResponse] "Summary"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations/summary [get]
// @Security BearerAuth
func (handler *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSummary")
	defer scope.End()

	filterGroup, err := summaryFilter(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	summary, err := handler.service.Summary(ctx, filterGroup)
	if err != nil {
		response.Fail(w, scope, err, "failed to get reservation summary")

		return
	}

	response.WithJSON(w, http.StatusOK, summary)
}

// GetReservationByID retrieves a reservation with its bill.
// @Summary Get a reservation by ID
// @Description Retrieve a reservation, including nights, nightly rate and total amount.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.ReservationResponse] "Reservation details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetReservationByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservationByID")
	defer scope.End()

	id, err := reservationID(r)
	if err != nil {
		response.Fail(w, scope, err, "malformed reservation ID")

		return
	}

	reservation, err := handler.service.Get(ctx, id)
	if err != nil {
		response.Fail(w, scope, err, "failed to get reservation by ID")

		return
	}

	scope.AddEvent("Reservation retrieved successfully")

	response.WithJSON(w, http.StatusOK, reservation)
}

// UpdateReservation edits a reservation.
// @Summary Update a reservation by ID
// @Description Partially update guest details, room or dates. Changing the room or dates re-checks availability and re-prices the stay. The status never changes here.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body dto.UpdateReservationRequest true "Update Reservation Request"
// @Success 200 {object} response.Data[dto.ReservationResponse] "Reservation updated"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "No unit left for the stay"
// @Failure 500 {object} response.Error
// @Router /v1/reservations/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateReservation")
	defer scope.End()

	id, err := reservationID(r)
	if err != nil {
		response.Fail(w, scope, err, "malformed reservation ID")

		return
	}

	req := dto.UpdateReservationRequest{}

	if err = validator.Validate(r.Body, &req); err != nil {
		response.Fail(w, scope, err, "failed to validate request body")

		return
	}

	reservation, err := handler.service.Update(ctx, req, id)
	if err != nil {
		response.Fail(w, scope, err, "failed to update reservation")

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Reservation updated successfully by user " + user)

	response.WithJSON(w, http.StatusOK, reservation)
}

// UpdateReservationStatus approves or rejects a pending reservation.
// @Summary Approve or reject a reservation
// @Description Move a PENDING reservation to APPROVED or REJECTED.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Data[dto.ReservationResponse] "Reservation updated"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Reservation is no longer pending"
// @Failure 500 {object} response.Error
// @Router /v1/reservations/{id}/status [patch]
// @Security BearerAuth
func (handler *Handler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateReservationStatus")
	defer scope.End()

	id, err := reservationID(r)
	if err != nil {
		response.Fail(w, scope, err, "malformed reservation ID")

		return
	}

	req := dto.UpdateStatusRequest{}

	if err = validator.Validate(r.Body, &req); err != nil {
		response.Fail(w, scope, err, "failed to validate request body")

		return
	}

	reservation, err := handler.service.SetStatus(ctx, id, req.Status)
	if err != nil {
		response.Fail(w, scope, err, "failed to update reservation status")

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Reservation " + req.Status + " by user " + user)

	response.WithJSON(w, http.StatusOK, reservation)
}

// CancelReservation deletes a reservation in any status.
// @Summary Cancel a reservation by ID
// @Description Cancel a reservation, freeing its unit.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Message "Reservation cancelled successfully"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations/{id} [delete]
// @Security BearerAuth
func (handler *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelReservation")
	defer scope.End()

	id, err := reservationID(r)
	if err != nil {
		response.Fail(w, scope, err, "malformed reservation ID")

		return
	}

	if err = handler.service.Cancel(ctx, id); err != nil {
		response.Fail(w, scope, err, "failed to cancel reservation")

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Reservation cancelled successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Reservation cancelled successfully")
}

func listFilter(r *http.Request, guestName string) (gDto.FilterGroup, error) {
	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	if guestName != constant.Empty {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldGuestName,
			Operator: gDto.FilterOperatorEq,
			Value:    guestName,
			Table:    model.TableName,
		})
	}

	if roomID := r.URL.Query().Get(model.FieldRoomID); roomID != constant.Empty {
		if !validator.IsUUID(roomID) {
			return filterGroup, failure.Validation("room_id must be a valid UUID")
		}

		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldRoomID,
			Operator: gDto.FilterOperatorEq,
			Value:    roomID,
			Table:    model.TableName,
		})
	}

	if status := r.URL.Query().Get(model.FieldStatus); status != constant.Empty {
		if !slices.Contains(model.Statuses, status) {
			return filterGroup, failure.Validation("status must be one of PENDING APPROVED REJECTED")
		}

		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorEq,
			Value:    status,
			Table:    model.TableName,
		})
	}

	return filterGroup, nil
}

func summaryFilter(r *http.Request) (gDto.FilterGroup, error) {
	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	if roomID := r.URL.Query().Get(model.FieldRoomID); roomID != constant.Empty {
		if !validator.IsUUID(roomID) {
			return filterGroup, failure.Validation("room_id must be a valid UUID")
		}

		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldRoomID,
			Operator: gDto.FilterOperatorEq,
			Value:    roomID,
			Table:    model.TableName,
		})
	}

	bounds := []struct {
		param    string
		operator string
	}{
		{queryParamFrom, gDto.FilterOperatorGreaterEq},
		{queryParamTo, gDto.FilterOperatorLessEq},
	}

	for _, bound := range bounds {
		value := r.URL.Query().Get(bound.param)
		if value == constant.Empty {
			continue
		}

		if err := validator.ValidateVar(value, "calendardate"); err != nil {
			return filterGroup, failure.Validation(bound.param + " must be a date in YYYY-MM-DD format")
		}

		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			ArgName:  bound.param,
			Field:    model.FieldCheckIn,
			Operator: bound.operator,
			Value:    value,
			Table:    model.TableName,
		})
	}

	return filterGroup, nil
}

// reservationID reads the {id} path parameter. A value that is not a UUID cannot name
// a stored reservation, so it is reported as not found.
func reservationID(r *http.Request) (string, error) {
	id := chi.URLParam(r, constant.RequestParamID)
	if !validator.IsUUID(id) {
		return id, failure.NotFound("reservation not found")
	}

	return id, nil
}
