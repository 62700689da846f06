package room

import (
	"mime"
	"mime/multipart"
	"net/http"

	"innkeeper/infras/otel"
	"innkeeper/internal/domains/room/model"
	"innkeeper/internal/domains/room/model/dto"
	"innkeeper/internal/domains/room/service"
	"innkeeper/shared"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	"innkeeper/shared/validator"
	"innkeeper/transport/http/response"

	"github.com/go-chi/chi/v5"
)

const (
	formRoomType    = "room_type"
	formNightlyRate = "nightly_rate"
	formTotalUnits  = "total_units"
	formDescription = "description"
	formImage       = "image"
	formImageRef    = "image_ref"
)

type Handler struct {
	service service.Room
	otel    otel.Otel
}

func New(service service.Room, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateRoom)
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Get("/{id}", handler.GetRoomByID)
		routerGroup.Patch("/{id}", handler.UpdateRoom)
		routerGroup.Delete("/{id}", handler.DeleteRoom)
	})
}

// CreateRoom handles the creation of a new room type.
// @Summary Create a new room
// @Description Create a room type with its nightly rate and unit pool. The image is either an uploaded file or an image_ref.
// @Tags Room
// @Accept multipart/form-data
// @Produce json
// @Param room_type formData string true "Room type"
// @Param nightly_rate formData number true "Nightly rate"
// @Param total_units formData integer true "Number of identical units"
// @Param description formData string true "Description"
// @Param image formData file false "Room image"
// @Param image_ref formData string false "Hosted image URL or base64 data URI"
// @Success 201 {object} response.Data[dto.RoomResponse] "Room created"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [post]
// @Security BearerAuth
func (handler *Handler) CreateRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	if err := request.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		err = failure.BadRequest(err)

		response.Fail(writer, scope, err, "failed to parse multipart form")

		return
	}

	req := dto.CreateRoomRequest{
		RoomType:    request.FormValue(formRoomType),
		Description: request.FormValue(formDescription),
		ImageRef:    request.FormValue(formImageRef),
	}

	if rate := request.FormValue(formNightlyRate); rate != constant.Empty {
		value, err := shared.ConvertStringToFloat(rate)
		if err != nil {
			response.WithError(writer, failure.Validation("nightly_rate must be a number"))

			return
		}

		req.NightlyRate = value
	}

	if units := request.FormValue(formTotalUnits); units != constant.Empty {
		value, err := shared.ConvertStringToInt(units)
		if err != nil {
			response.WithError(writer, failure.Validation("total_units must be an integer"))

			return
		}

		req.TotalUnits = value
	}

	file, fileHeader, err := request.FormFile(formImage)
	if err == nil {
		req.Image = fileHeader
		req.ImageFile = file

		defer file.Close()
	}

	if err := validator.ValidateStruct(&req); err != nil {
		response.Fail(writer, scope, err, "failed to validate request")

		return
	}

	room, err := handler.service.Create(ctx, req)
	if err != nil {
		response.Fail(writer, scope, err, "failed to create room")

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room created successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, room)
}

// GetRooms lists rooms with the units still free over a stay range.
// @Summary Get all rooms
// @Description List rooms with available_units for the given check_in/check_out range, or from today onward when both are omitted.
// @Tags Room
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param room_type query string false "Filter by room type"
// @Param check_in query string false "Check-in date (YYYY-MM-DD)"
// @Param check_out query string false "Check-out date (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.GetRoomsResponse] "List of rooms"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [get]
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	if err := queryParams.RestrictSort(model.Sortable); err != nil {
		response.WithError(w, err)

		return
	}

	query, err := availabilityQuery(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	if roomType := r.URL.Query().Get(model.FieldRoomType); roomType != constant.Empty {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldRoomType,
			Operator: gDto.FilterOperatorLike,
			Value:    roomType,
			Table:    model.TableName,
		})
	}

	rooms, err := handler.service.GetAll(ctx, queryParams, query, filterGroup)
	if err != nil {
		response.Fail(w, scope, err, "failed to get rooms")

		return
	}

	scope.AddEvent("Rooms retrieved successfully")

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoomByID retrieves a room by its ID.
// @Summary Get a room by ID
// @Description Retrieve a room and its available units over a stay range.
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param check_in query string false "Check-in date (YYYY-MM-DD)"
// @Param check_out query string false "Check-out date (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.RoomResponse] "Room details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [get]
func (handler *Handler) GetRoomByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByID")
	defer scope.End()

	id, err := roomID(r)
	if err != nil {
		response.Fail(w, scope, err, "malformed room ID")

		return
	}

	query, err := availabilityQuery(r)
	if err != nil {
		response.WithError(w, err)

		return
	}

	room, err := handler.service.Get(ctx, id, query)
	if err != nil {
		response.Fail(w, scope, err, "failed to get room by ID")

		return
	}

	scope.AddEvent("Room retrieved successfully")

	response.WithJSON(w, http.StatusOK, room)
}

// UpdateRoom updates an existing room by its ID.
// @Summary Update a room by ID
// @Description Partially update a room. Accepts multipart/form-data or JSON. Existing reservations keep their billed rate.
// @Tags Room
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param room_type formData string false "Room type"
// @Param nightly_rate formData number false "Nightly rate"
// @Param total_units formData integer false "Number of identical units"
// @Param description formData string false "Description"
// @Param image formData file false "Room image"
// @Param image_ref formData string false "Hosted image URL or base64 data URI"
// @Success 200 {object} response.Data[dto.RoomResponse] "Room updated"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	id, err := roomID(r)
	if err != nil {
		response.Fail(w, scope, err, "malformed room ID")

		return
	}

	req, closeFile, err := updateRequest(r)
	if err != nil {
		response.Fail(w, scope, err, "failed to validate request")

		return
	}
	defer closeFile()

	room, err := handler.service.Update(ctx, req, id)
	if err != nil {
		response.Fail(w, scope, err, "failed to update room")

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room updated successfully by user " + user)

	response.WithJSON(w, http.StatusOK, room)
}

// DeleteRoom deletes a room by its ID.
// @Summary Delete a room by ID
// @Description Delete a room. Rooms still referenced by reservations cannot be deleted.
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Message "Room deleted successfully"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteRoom")
	defer scope.End()

	id, err := roomID(r)
	if err != nil {
		response.Fail(w, scope, err, "malformed room ID")

		return
	}

	if err = handler.service.Delete(ctx, id); err != nil {
		response.Fail(w, scope, err, "failed to delete room")

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room deleted successfully")
}

func availabilityQuery(r *http.Request) (dto.AvailabilityQuery, error) {
	query := dto.AvailabilityQuery{
		CheckIn:  r.URL.Query().Get(constant.RequestParamCheckIn),
		CheckOut: r.URL.Query().Get(constant.RequestParamCheckOut),
	}

	if err := validator.ValidateStruct(&query); err != nil {
		return dto.AvailabilityQuery{}, err
	}

	return query, nil
}

// updateRequest reads a partial update from either a multipart form or a JSON
// body. Only fields present in the request are set.
func updateRequest(r *http.Request) (dto.UpdateRoomRequest, func(), error) {
	req := dto.UpdateRoomRequest{}
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(constant.RequestHeaderContentType))
	if mediaType != constant.ContentTypeMultipartFormData {
		if err := validator.Validate(r.Body, &req); err != nil {
			return req, noop, err
		}

		return req, noop, nil
	}

	if err := r.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		return req, noop, failure.BadRequest(err)
	}

	req.RoomType = formValue(r.MultipartForm, formRoomType)
	req.Description = formValue(r.MultipartForm, formDescription)
	req.ImageRef = formValue(r.MultipartForm, formImageRef)

	if rate := formValue(r.MultipartForm, formNightlyRate); rate != nil {
		value, err := shared.ConvertStringToFloat(*rate)
		if err != nil {
			return req, noop, failure.Validation("nightly_rate must be a number")
		}

		req.NightlyRate = &value
	}

	if units := formValue(r.MultipartForm, formTotalUnits); units != nil {
		value, err := shared.ConvertStringToInt(*units)
		if err != nil {
			return req, noop, failure.Validation("total_units must be an integer")
		}

		req.TotalUnits = &value
	}

	closeFile := noop

	file, fileHeader, err := r.FormFile(formImage)
	if err == nil {
		req.Image = fileHeader
		req.ImageFile = file
		closeFile = func() { file.Close() }
	}

	if err := validator.ValidateStruct(&req); err != nil {
		closeFile()

		return req, noop, err
	}

	return req, closeFile, nil
}

func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}

	return &values[0]
}

// roomID reads the {id} path parameter. A value that is not a UUID cannot name
// a stored room, so it is reported as not found.
func roomID(r *http.Request) (string, error) {
	id := chi.URLParam(r, constant.RequestParamID)
	if !validator.IsUUID(id) {
		return id, failure.NotFound("room not found")
	}

	return id, nil
}
