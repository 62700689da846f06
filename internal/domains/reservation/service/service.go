package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Reservation=MockReservationService

import (
	"context"
	"fmt"
	"slices"
	"time"

	"innkeeper/config"
	"innkeeper/infras/otel"
	"innkeeper/internal/domains/availability"
	"innkeeper/internal/domains/billing"
	"innkeeper/internal/domains/reservation/event"
	"innkeeper/internal/domains/reservation/model"
	"innkeeper/internal/domains/reservation/model/dto"
	"innkeeper/internal/domains/reservation/repository"
	roomModel "innkeeper/internal/domains/room/model"
	roomRepo "innkeeper/internal/domains/room/repository"
	"innkeeper/shared"
	"innkeeper/shared/cache"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	"innkeeper/shared/keylock"
	gRepo "innkeeper/shared/repository"
	"innkeeper/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Reservation is the only writer of reservations. Every write that can take a
// unit runs under the room's lock, inside one transaction.
type Reservation interface {
	Create(ctx context.Context, req dto.CreateReservationRequest) (dto.ReservationResponse, error)
	Get(ctx context.Context, id string) (dto.ReservationResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetReservationsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req dto.UpdateReservationRequest, id string) (dto.ReservationResponse, error)
	SetStatus(ctx context.Context, id string, status string) (dto.ReservationResponse, error)
	Cancel(ctx context.Context, id string) error
	Summary(ctx context.Context, filter gDto.FilterGroup) (dto.SummaryResponse, error)
}

type serviceImpl struct {
	repo      repository.Reservation
	rooms     roomRepo.Room
	tx        gRepo.Transactor
	locks     *keylock.KeyLock
	cfg       *config.Config
	cache     cache.RedisCache
	otel      otel.Otel
	publisher event.Publisher
	today     func() time.Time
}

func New(
	repo repository.Reservation,
	rooms roomRepo.Room,
	tx gRepo.Transactor,
	locks *keylock.KeyLock,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	publisher event.Publisher,
) Reservation {
	return &serviceImpl{
		repo:      repo,
		rooms:     rooms,
		tx:        tx,
		locks:     locks,
		cfg:       cfg,
		cache:     cache,
		otel:      otel,
		publisher: publisher,
		today:     timezone.Today,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateReservationRequest) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	checkIn, checkOut, err := req.Stay()
	if err != nil {
		return res, err
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	reservation := req.ToModel(user, constant.Empty, checkIn, checkOut, billing.Stay{})

	if err = s.validate(reservation); err != nil {
		return res, err
	}

	unlock := s.locks.Lock(roomModel.LockKey(reservation.RoomID))
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		rooms, err := s.rooms.LockTx(ctx, tx, reservation.RoomID)
		if err != nil {
			return fmt.Errorf("failed to lock room: %w", err)
		}

		if len(rooms) == 0 {
			return failure.NotFound("room not found")
		}

		if err := s.reserve(ctx, tx, rooms[0], &reservation); err != nil {
			return err
		}

		if err := s.repo.InsertTx(ctx, tx, reservation); err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room", reservation.RoomID).Msg("failed to create reservation")

		return res, err
	}

	res.FromModel(reservation)

	s.afterWrite(ctx, event.New(event.TypeCreated, res, user))

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(model.CacheKeyGet, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation")

		return res, nil
	}

	reservation, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservation")

		return res, fmt.Errorf("failed to get reservation: %w", err)
	}

	if reservation.ID == constant.Empty {
		return res, failure.NotFound("reservation not found") // nolint:wrapcheck
	}

	res.FromModel(reservation)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetReservationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheKeyGetAll, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservations")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reservations")

		return res, fmt.Errorf("failed to count reservations: %w", err)
	}

	reservations, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservations")

		return res, fmt.Errorf("failed to get reservations: %w", err)
	}

	res.FromModels(reservations, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservations to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheKeyCount, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reservations")

		return res, fmt.Errorf("failed to count reservations: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation count to cache")
		}
	}()

	return res, nil
}

// Update merges the edit onto the stored reservation. A new room or new dates
// are re-validated like a new request, except that the reservation never
// competes with itself for a unit, and re-priced at the room's current rate.
// Guest detail edits keep the priced snapshot and skip the inventory check.
func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateReservationRequest, id string) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	unlockReservation := s.locks.Lock(model.LockKey(id))
	defer unlockReservation()

	ctx = context.WithoutCancel(ctx)

	// Learn which rooms are involved before taking their locks; the row is
	// read again under FOR UPDATE below. The replica may not have it yet.
	current, err := s.repo.GetPrimary(ctx, shared.FilterByID(id, model.FieldID, model.TableName), model.FieldID, model.FieldRoomID)
	if err != nil {
		return res, fmt.Errorf("failed to get reservation: %w", err)
	}

	if current.ID == constant.Empty {
		return res, failure.NotFound("reservation not found")
	}

	roomIDs := []string{roomModel.LockKey(current.RoomID)}
	if req.RoomID != nil {
		roomIDs = append(roomIDs, roomModel.LockKey(*req.RoomID))
	}

	unlockRooms := s.locks.Lock(roomIDs...)
	defer unlockRooms()

	var updated model.Reservation

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.repo.GetForUpdateTx(ctx, tx, shared.FilterByID(id, model.FieldID, model.TableName))
		if err != nil {
			return fmt.Errorf("failed to lock reservation: %w", err)
		}

		if locked.ID == constant.Empty {
			return failure.NotFound("reservation not found")
		}

		merged, err := req.Merge(locked)
		if err != nil {
			return err
		}

		if sameStay(locked, merged) {
			if err := dto.GuestFields(merged); err != nil {
				return err
			}
		} else {
			if err := s.validate(merged); err != nil {
				return err
			}

			rooms, err := s.rooms.LockTx(ctx, tx, compactIDs(locked.RoomID, merged.RoomID)...)
			if err != nil {
				return fmt.Errorf("failed to lock room: %w", err)
			}

			idx := slices.IndexFunc(rooms, func(r roomModel.Room) bool { return r.ID == merged.RoomID })
			if idx == -1 {
				return failure.NotFound("room not found")
			}

			if err := s.reserve(ctx, tx, rooms[idx], &merged); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateTx(ctx, tx, dto.UpdatedFields(merged, user), shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}

		updated = merged

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to update reservation")

		return res, err
	}

	updated.ModifiedAt = timezone.Now()
	updated.ModifiedBy = user

	res.FromModel(updated)

	s.afterWrite(ctx, event.New(event.TypeUpdated, res, user))

	return res, nil
}

// SetStatus moves a PENDING reservation to APPROVED or REJECTED. Pending
// reservations already hold their unit, so approval does not re-check inventory.
func (s *serviceImpl) SetStatus(ctx context.Context, id string, status string) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.SetStatus")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if status != model.StatusApproved && status != model.StatusRejected {
		return res, failure.Validation("status must be APPROVED or REJECTED")
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	unlock := s.locks.Lock(model.LockKey(id))
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	var (
		updated  model.Reservation
		previous string
	)

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		filter := shared.FilterByID(id, model.FieldID, model.TableName)

		locked, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to lock reservation: %w", err)
		}

		if locked.ID == constant.Empty {
			return failure.NotFound("reservation not found")
		}

		if locked.Status != model.StatusPending {
			return failure.InvalidTransition(fmt.Sprintf("reservation is %s, only PENDING reservations can be approved or rejected", locked.Status))
		}

		now := timezone.Now()

		err = s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldStatus:        status,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}, filter)
		if err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}

		previous = locked.Status
		updated = locked
		updated.Status = status
		updated.ModifiedAt = now
		updated.ModifiedBy = user

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Str("status", status).Msg("failed to set reservation status")

		return res, err
	}

	res.FromModel(updated)

	evt := event.New(event.TypeStatusChanged, res, user)
	evt.PreviousStatus = previous

	s.afterWrite(ctx, evt)

	return res, nil
}

// Cancel removes the reservation whatever its status, releasing its unit.
func (s *serviceImpl) Cancel(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	unlock := s.locks.Lock(model.LockKey(id))
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	var cancelled model.Reservation

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		filter := shared.FilterByID(id, model.FieldID, model.TableName)

		locked, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to lock reservation: %w", err)
		}

		if locked.ID == constant.Empty {
			return failure.NotFound("reservation not found")
		}

		if err := s.repo.DeleteTx(ctx, tx, filter); err != nil {
			return fmt.Errorf("failed to cancel reservation: %w", err)
		}

		cancelled = locked

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to cancel reservation")

		return err
	}

	var res dto.ReservationResponse
	res.FromModel(cancelled)

	s.afterWrite(ctx, event.New(event.TypeCancelled, res, user))

	return nil
}

func (s *serviceImpl) Summary(ctx context.Context, filter gDto.FilterGroup) (res dto.SummaryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Summary")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheKeySummary, gDto.QueryParams{}, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation summary")

		return res, nil
	}

	rows, err := s.repo.Summarize(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to summarize reservations")

		return res, fmt.Errorf("failed to summarize reservations: %w", err)
	}

	res.FromModels(rows)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation summary to cache")
		}
	}()

	return res, nil
}

// validate checks what can be decided without touching inventory.
func (s *serviceImpl) validate(r model.Reservation) error {
	if err := dto.GuestFields(r); err != nil {
		return err
	}

	if r.CheckIn.Before(s.today()) {
		return failure.Validation("check_in must not be in the past")
	}

	if !r.CheckOut.After(r.CheckIn) {
		return failure.Validation("check_out must be after check_in")
	}

	return nil
}

// reserve claims a unit of room for r and prices the stay. The room must
// already be locked in tx.
func (s *serviceImpl) reserve(ctx context.Context, tx *sqlx.Tx, room roomModel.Room, r *model.Reservation) error {
	if availability.Blocks(r.Status) {
		active, err := s.repo.ListActiveTx(ctx, tx, room.ID)
		if err != nil {
			return fmt.Errorf("failed to list active reservations: %w", err)
		}

		stay := availability.Range{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
		if !availability.Bookable(room.TotalUnits, model.Bookings(active), stay, r.ID) {
			return failure.InventoryExhausted(fmt.Sprintf("no %s units left between %s and %s",
				room.RoomType, timezone.FormatDate(r.CheckIn), timezone.FormatDate(r.CheckOut)))
		}
	}

	stay, err := billing.ComputeStay(r.CheckIn, r.CheckOut, room.NightlyRateCents)
	if err != nil {
		return err
	}

	r.RoomType = room.RoomType
	r.Nights = stay.Nights
	r.NightlyRateCents = stay.NightlyRateCents
	r.TotalAmountCents = stay.TotalCents

	return nil
}

// afterWrite runs once the transaction has committed.
func (s *serviceImpl) afterWrite(ctx context.Context, evt event.Event) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(model.CacheKeyGet, evt.Reservation.ID)); err != nil {
			log.Error().Err(err).Msg("failed to delete reservation cache")
		}

		shared.InvalidateCaches(c, s.cache, model.CacheKeyGetAll)
		shared.InvalidateCaches(c, s.cache, model.CacheKeyCount)
		shared.InvalidateCaches(c, s.cache, model.CacheKeySummary)
		shared.InvalidateCaches(c, s.cache, roomModel.CacheKeyGet)
		shared.InvalidateCaches(c, s.cache, roomModel.CacheKeyGetAll)
	}()

	s.publisher.Publish(ctx, evt)
}

func sameStay(before, after model.Reservation) bool {
	return before.RoomID == after.RoomID &&
		before.CheckIn.Equal(after.CheckIn) &&
		before.CheckOut.Equal(after.CheckOut)
}

func compactIDs(ids ...string) []string {
	res := slices.Clone(ids)
	slices.Sort(res)

	return slices.Compact(res)
}
