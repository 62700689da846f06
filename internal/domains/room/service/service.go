package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Room=MockRoomService

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"innkeeper/config"
	"innkeeper/infras/otel"
	"innkeeper/infras/s3"
	"innkeeper/internal/domains/availability"
	reservationModel "innkeeper/internal/domains/reservation/model"
	reservationRepo "innkeeper/internal/domains/reservation/repository"
	"innkeeper/internal/domains/room/model"
	"innkeeper/internal/domains/room/model/dto"
	"innkeeper/internal/domains/room/repository"
	"innkeeper/shared"
	"innkeeper/shared/base64"
	"innkeeper/shared/cache"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	"innkeeper/shared/keylock"
	gRepo "innkeeper/shared/repository"
	"innkeeper/shared/timezone"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Room interface {
	Create(ctx context.Context, req dto.CreateRoomRequest) (dto.RoomResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, query dto.AvailabilityQuery, filter gDto.FilterGroup) (dto.GetRoomsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string, query dto.AvailabilityQuery) (dto.RoomResponse, error)
	Update(ctx context.Context, req dto.UpdateRoomRequest, id string) (dto.RoomResponse, error)
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo         repository.Room
	reservations reservationRepo.Reservation
	tx           gRepo.Transactor
	locks        *keylock.KeyLock
	cfg          *config.Config
	cache        cache.RedisCache
	otel         otel.Otel
	s3           s3.S3
	today        func() time.Time
}

func New(
	repo repository.Room,
	reservations reservationRepo.Reservation,
	tx gRepo.Transactor,
	locks *keylock.KeyLock,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	s3 s3.S3,
) Room {
	return &serviceImpl{
		repo:         repo,
		reservations: reservations,
		tx:           tx,
		locks:        locks,
		cfg:          cfg,
		cache:        cache,
		otel:         otel,
		s3:           s3,
		today:        timezone.Today,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateRoomRequest) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = validateCreate(req); err != nil {
		return res, err
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	image, uploaded, err := s.storeImage(ctx, req.Image, req.ImageFile, req.ImageRef)
	if err != nil {
		return res, err
	}

	room := req.ToModel(user, image)

	if err = s.repo.Insert(ctx, room); err != nil {
		s.removeImage(ctx, uploaded)

		if gRepo.IsCheckViolation(err) {
			return res, failure.Validation("room rate and units must be positive")
		}

		return res, fmt.Errorf("failed to create room: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, model.CacheKeyGetAll)
		shared.InvalidateCaches(c, s.cache, model.CacheKeyCount)
	}()

	res.FromModel(room, room.TotalUnits)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, query dto.AvailabilityQuery, filter gDto.FilterGroup) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	today := s.today()

	stay, err := query.Range(today)
	if err != nil {
		return res, err
	}

	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheKeyGetAll, req, filter, query.Key(today))

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	rooms, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	available, err := s.availableUnits(ctx, rooms, stay)
	if err != nil {
		return res, err
	}

	res.FromModels(rooms, available, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save rooms to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheKeyCount, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string, query dto.AvailabilityQuery) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	today := s.today()

	stay, err := query.Range(today)
	if err != nil {
		return res, err
	}

	cacheKey := shared.BuildCacheKey(model.CacheKeyGet, id, query.Key(today))

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room")

		return res, nil
	}

	room, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return res, failure.NotFound("room not found") // nolint:wrapcheck
	}

	available, err := s.availableUnits(ctx, []model.Room{room}, stay)
	if err != nil {
		return res, err
	}

	res.FromModel(room, available[room.ID])

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateRoomRequest, id string) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = validateUpdate(req); err != nil {
		return res, err
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	unlock := s.locks.Lock(model.LockKey(id))
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	currentRoom, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check room existence")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if currentRoom.ID == constant.Empty {
		log.Error().Str("id", id).Msg("room not found")

		return res, failure.NotFound("room not found")
	}

	if !req.HasChanges() {
		return s.respond(ctx, currentRoom)
	}

	return s.updateInternal(ctx, req, currentRoom, user, filter)
}

func (s *serviceImpl) updateInternal(ctx context.Context, req dto.UpdateRoomRequest, currentRoom model.Room, user string, filter gDto.FilterGroup) (dto.RoomResponse, error) {
	var (
		image    string
		uploaded string
		err      error
	)

	if req.Image != nil || req.ImageRef != nil {
		ref := constant.Empty
		if req.ImageRef != nil {
			ref = *req.ImageRef
		}

		image, uploaded, err = s.storeImage(ctx, req.Image, req.ImageFile, ref)
		if err != nil {
			return dto.RoomResponse{}, err
		}
	}

	updatedFields := req.UpdatedFields(user)
	if image != constant.Empty {
		updatedFields[model.FieldImage] = image
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		rooms, err := s.repo.LockTx(ctx, tx, currentRoom.ID)
		if err != nil {
			return fmt.Errorf("failed to lock room: %w", err)
		}

		if len(rooms) == 0 {
			return failure.NotFound("room not found")
		}

		if req.TotalUnits != nil {
			if err := s.checkUnits(ctx, tx, currentRoom.ID, *req.TotalUnits); err != nil {
				return err
			}
		}

		return s.repo.UpdateTx(ctx, tx, updatedFields, filter) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("id", currentRoom.ID).Msg("failed to update room")

		s.removeImage(ctx, uploaded)

		if gRepo.IsCheckViolation(err) {
			return dto.RoomResponse{}, failure.Validation("room rate and units must be positive")
		}

		if failure.KindOf(err) != failure.KindInternal {
			return dto.RoomResponse{}, err
		}

		return dto.RoomResponse{}, fmt.Errorf("failed to update room: %w", err)
	}

	// The replaced image is ours to clean up only if it lives in our bucket.
	if image != constant.Empty && image != currentRoom.Image {
		s.removeImage(ctx, s.s3.GetObjectNameFromURL(s.cfg.External.S3.BucketName, currentRoom.Image))
	}

	s.invalidate(ctx, currentRoom.ID)

	updated, err := s.repo.Get(ctx, filter)
	if err != nil {
		return dto.RoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	return s.respond(ctx, updated)
}

// checkUnits refuses a unit count below what the room's active
// reservations already hold on their busiest night.
func (s *serviceImpl) checkUnits(ctx context.Context, tx *sqlx.Tx, id string, units int) error {
	active, err := s.reservations.ListActiveTx(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("failed to list active reservations: %w", err)
	}

	if peak := availability.PeakUsage(reservationModel.Bookings(active)); units < peak {
		return failure.Conflict(fmt.Sprintf("room has %d overlapping active reservations; total_units cannot go below that", peak))
	}

	return nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	unlock := s.locks.Lock(model.LockKey(id))
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	var deleted model.Room

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		rooms, err := s.repo.LockTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to lock room: %w", err)
		}

		if len(rooms) == 0 {
			return failure.NotFound("room not found")
		}

		referenced, err := s.reservations.Exist(ctx, shared.FilterByID(id, reservationModel.FieldRoomID, reservationModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to check room reservations: %w", err)
		}

		if referenced {
			return failure.Conflict("room has reservations and cannot be deleted")
		}

		if err := s.repo.DeleteTx(ctx, tx, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			if gRepo.IsForeignKeyViolation(err) {
				return failure.Conflict("room has reservations and cannot be deleted")
			}

			return fmt.Errorf("failed to delete room: %w", err)
		}

		deleted = rooms[0]

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to delete room")

		return err
	}

	s.removeImage(ctx, s.s3.GetObjectNameFromURL(s.cfg.External.S3.BucketName, deleted.Image))
	s.invalidate(ctx, id)

	return nil
}

// availableUnits computes free units per room over stay from one read of
// the active reservations.
func (s *serviceImpl) availableUnits(ctx context.Context, rooms []model.Room, stay availability.Range) (map[string]int, error) {
	res := make(map[string]int, len(rooms))
	if len(rooms) == 0 {
		return res, nil
	}

	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}

	active, err := s.reservations.ListActive(ctx, ids...)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active reservations")

		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}

	byRoom := reservationModel.GroupByRoom(active)
	for _, room := range rooms {
		res[room.ID] = availability.AvailableUnits(room.TotalUnits, byRoom[room.ID], stay, constant.Empty)
	}

	return res, nil
}

func (s *serviceImpl) respond(ctx context.Context, room model.Room) (res dto.RoomResponse, err error) {
	available, err := s.availableUnits(ctx, []model.Room{room}, availability.Open(s.today()))
	if err != nil {
		return res, err
	}

	res.FromModel(room, available[room.ID])

	return res, nil
}

// storeImage resolves the room image: an uploaded file or an inline data URI
// is pushed to the bucket, anything else is kept as an opaque reference.
// uploaded is the object name to roll back, empty when nothing was uploaded.
func (s *serviceImpl) storeImage(ctx context.Context, header *multipart.FileHeader, file multipart.File, ref string) (image, uploaded string, err error) {
	bucketName := s.cfg.External.S3.BucketName

	switch {
	case header != nil && file != nil:
		filename := objectName(path.Ext(header.Filename))

		image, err = s.s3.UploadFile(ctx, bucketName, model.EntityName, file, header, filename)
		if err != nil {
			log.Error().Err(err).Msg("failed to upload image to S3")

			return constant.Empty, constant.Empty, fmt.Errorf("failed to upload image: %w", err)
		}

		return image, filename, nil
	case base64.IsDataURI(ref):
		contentType, data, err := base64.Decode(ref)
		if err != nil {
			return constant.Empty, constant.Empty, failure.Validation("image_ref is not a valid data URI")
		}

		filename := objectName("." + base64.Extension(contentType))

		image, err = s.s3.UploadFileBytes(ctx, bucketName, model.EntityName, filename, contentType, data)
		if err != nil {
			log.Error().Err(err).Msg("failed to upload image to S3")

			return constant.Empty, constant.Empty, fmt.Errorf("failed to upload image: %w", err)
		}

		return image, filename, nil
	case strings.TrimSpace(ref) != constant.Empty:
		return strings.TrimSpace(ref), constant.Empty, nil
	default:
		return constant.Empty, constant.Empty, failure.Validation("image is required")
	}
}

func (s *serviceImpl) removeImage(ctx context.Context, name string) {
	if name == constant.Empty {
		return
	}

	name = strings.TrimPrefix(name, model.EntityName+"/")

	if err := s.s3.DeleteFile(ctx, s.cfg.External.S3.BucketName, model.EntityName, name); err != nil {
		log.Error().Err(err).Str("object", name).Msg("failed to delete room image")
	}
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, shared.BuildCacheKey(model.CacheKeyGet, id))
		shared.InvalidateCaches(c, s.cache, model.CacheKeyGetAll)
		shared.InvalidateCaches(c, s.cache, model.CacheKeyCount)
	}()
}

func objectName(ext string) string {
	if ext == "" || ext == "." {
		return uuid.NewString()
	}

	return uuid.NewString() + strings.ToLower(ext)
}

func validateCreate(req dto.CreateRoomRequest) error {
	switch {
	case strings.TrimSpace(req.RoomType) == constant.Empty:
		return failure.Validation("room_type is required")
	case req.NightlyRate <= 0:
		return failure.Validation("nightly_rate must be greater than 0")
	case req.TotalUnits < 1:
		return failure.Validation("total_units must be at least 1")
	case strings.TrimSpace(req.Description) == constant.Empty:
		return failure.Validation("description is required")
	case req.Image == nil && strings.TrimSpace(req.ImageRef) == constant.Empty:
		return failure.Validation("image is required")
	}

	return nil
}

func validateUpdate(req dto.UpdateRoomRequest) error {
	switch {
	case req.RoomType != nil && strings.TrimSpace(*req.RoomType) == constant.Empty:
		return failure.Validation("room_type must not be blank")
	case req.NightlyRate != nil && *req.NightlyRate <= 0:
		return failure.Validation("nightly_rate must be greater than 0")
	case req.TotalUnits != nil && *req.TotalUnits < 1:
		return failure.Validation("total_units must be at least 1")
	case req.Description != nil && strings.TrimSpace(*req.Description) == constant.Empty:
		return failure.Validation("description must not be blank")
	case req.ImageRef != nil && req.Image == nil && strings.TrimSpace(*req.ImageRef) == constant.Empty:
		return failure.Validation("image_ref must not be blank")
	}

	return nil
}
