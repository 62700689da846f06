package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"innkeeper/config"
	"innkeeper/infras/otel/mocks"
	"innkeeper/internal/domains/reservation/event"
	reservationMocks "innkeeper/internal/domains/reservation/mocks"
	"innkeeper/internal/domains/reservation/model"
	"innkeeper/internal/domains/reservation/model/dto"
	"innkeeper/internal/domains/reservation/service"
	roomMocks "innkeeper/internal/domains/room/mocks"
	roomModel "innkeeper/internal/domains/room/model"
	cacheMocks "innkeeper/shared/cache/mocks"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	"innkeeper/shared/failure"
	"innkeeper/shared/keylock"
	repoMocks "innkeeper/shared/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	singleRoomID = "3f1c9a52-6a7e-4c0e-9d7a-1b2c3d4e5f60"
	familyRoomID = "7b2d4c61-1e9f-4a3b-8c5d-6e7f80910a1b"
)

func today() time.Time {
	return time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
}

func singleRoom(units int) roomModel.Room {
	return roomModel.Room{
		ID:               singleRoomID,
		RoomType:         "Single",
		NightlyRateCents: 10000,
		TotalUnits:       units,
	}
}

func familyRoom(units int) roomModel.Room {
	return roomModel.Room{
		ID:               familyRoomID,
		RoomType:         "Family",
		NightlyRateCents: 25000,
		TotalUnits:       units,
	}
}

type harness struct {
	store     *memoryStore
	publisher *recordingPublisher
	svc       service.Reservation
}

func newHarness(t *testing.T, rooms ...roomModel.Room) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss")).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	h := &harness{
		store:     newMemoryStore(rooms...),
		publisher: &recordingPublisher{},
	}

	h.svc = service.New(
		fakeReservations{h.store},
		fakeRooms{h.store},
		passThroughTx{},
		keylock.New(),
		cfg,
		mockCache,
		mocks.NewOtel(),
		h.publisher,
	)
	service.SetToday(h.svc, today)

	return h
}

func guestCtx() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, "guest-1")
}

func request(roomID, checkIn, checkOut string) dto.CreateReservationRequest {
	return dto.CreateReservationRequest{
		GuestName:     "Ada Lovelace",
		Address:       "12 St James's Square",
		ContactNumber: "+44 20 7946 0000",
		RoomID:        roomID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestReservationService_Create_PricesTheStay(t *testing.T) {
	h := newHarness(t, singleRoom(2))

	res, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-05-01", "2024-05-04"))

	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 3, res.Nights)
	assert.InDelta(t, 100.0, res.NightlyRate, 0.001)
	assert.InDelta(t, 300.0, res.TotalAmount, 0.001)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, "Single", res.RoomType)
	assert.Equal(t, "2024-05-01", res.CheckIn)
	assert.Equal(t, "2024-05-04", res.CheckOut)
	assert.Equal(t, []string{event.TypeCreated}, h.publisher.types())
	assert.Equal(t, "guest-1", h.publisher.last().Actor)
}

func TestReservationService_Create_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		req      dto.CreateReservationRequest
		wantKind failure.Kind
	}{
		{
			name: "blank guest name",
			req: func() dto.CreateReservationRequest {
				r := request(singleRoomID, "2024-05-01", "2024-05-04")
				r.GuestName = "  "

				return r
			}(),
			wantKind: failure.KindValidation,
		},
		{
			name: "missing contact number",
			req: func() dto.CreateReservationRequest {
				r := request(singleRoomID, "2024-05-01", "2024-05-04")
				r.ContactNumber = ""

				return r
			}(),
			wantKind: failure.KindValidation,
		},
		{
			name:     "check in yesterday",
			req:      request(singleRoomID, "2024-03-31", "2024-04-02"),
			wantKind: failure.KindValidation,
		},
		{
			name:     "check out equals check in",
			req:      request(singleRoomID, "2024-05-01", "2024-05-01"),
			wantKind: failure.KindValidation,
		},
		{
			name:     "check out before check in",
			req:      request(singleRoomID, "2024-05-04", "2024-05-01"),
			wantKind: failure.KindValidation,
		},
		{
			name:     "malformed date",
			req:      request(singleRoomID, "05/01/2024", "2024-05-04"),
			wantKind: failure.KindValidation,
		},
		{
			name:     "unknown room",
			req:      request(familyRoomID, "2024-05-01", "2024-05-04"),
			wantKind: failure.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, singleRoom(1))

			_, err := h.svc.Create(guestCtx(), tt.req)

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, failure.KindOf(err))
			assert.Zero(t, h.store.activeCount(singleRoomID))
			assert.Empty(t, h.publisher.types())
		})
	}
}

func TestReservationService_Create_CheckInToday(t *testing.T) {
	h := newHarness(t, singleRoom(1))

	res, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-04-01", "2024-04-02"))

	require.NoError(t, err)
	assert.Equal(t, 1, res.Nights)
}

func TestReservationService_BoundaryDoesNotOverlap(t *testing.T) {
	h := newHarness(t, singleRoom(1))

	_, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-06-05", "2024-06-10"))
	require.NoError(t, err)

	_, err = h.svc.Create(guestCtx(), request(singleRoomID, "2024-06-10", "2024-06-12"))
	require.NoError(t, err)

	assert.Equal(t, 2, h.store.activeCount(singleRoomID))
}

func TestReservationService_OverlapIsRejected(t *testing.T) {
	h := newHarness(t, singleRoom(1))

	_, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-07-01", "2024-07-05"))
	require.NoError(t, err)

	_, err = h.svc.Create(guestCtx(), request(singleRoomID, "2024-07-03", "2024-07-06"))

	require.Error(t, err)
	assert.Equal(t, failure.KindInventoryExhausted, failure.KindOf(err))
	assert.Equal(t, 1, h.store.activeCount(singleRoomID))
}

func TestReservationService_ConcurrentCreatesNeverOversell(t *testing.T) {
	const (
		units    = 3
		attempts = 25
	)

	h := newHarness(t, singleRoom(units))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  int
		exhausted int
	)

	start := make(chan struct{})

	for range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			_, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-08-01", "2024-08-04"))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				accepted++
			case failure.IsKind(err, failure.KindInventoryExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, units, accepted)
	assert.Equal(t, attempts-units, exhausted)
	assert.Equal(t, units, h.store.activeCount(singleRoomID))
}

func TestReservationService_SetStatus(t *testing.T) {
	h := newHarness(t, singleRoom(1))

	created, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-05-01", "2024-05-04"))
	require.NoError(t, err)

	_, err = h.svc.SetStatus(guestCtx(), created.ID, model.StatusPending)
	require.Error(t, err)
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))

	approved, err := h.svc.SetStatus(guestCtx(), created.ID, model.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.Equal(t, created.TotalAmount, approved.TotalAmount)

	evt := h.publisher.last()
	assert.Equal(t, event.TypeStatusChanged, evt.Type)
	assert.Equal(t, model.StatusPending, evt.PreviousStatus)

	_, err = h.svc.SetStatus(guestCtx(), created.ID, model.StatusRejected)
	require.Error(t, err)
	assert.Equal(t, failure.KindInvalidTransition, failure.KindOf(err))

	stored, err := h.svc.Get(guestCtx(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)

	_, err = h.svc.SetStatus(guestCtx(), "missing", model.StatusApproved)
	require.Error(t, err)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}

func TestReservationService_RejectedReservationFreesUnit(t *testing.T) {
	h := newHarness(t, singleRoom(1))

	first, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-05-01", "2024-05-04"))
	require.NoError(t, err)

	_, err = h.svc.SetStatus(guestCtx(), first.ID, model.StatusRejected)
	require.NoError(t, err)

	_, err = h.svc.Create(guestCtx(), request(singleRoomID, "2024-05-02", "2024-05-03"))
	require.NoError(t, err)
}

func TestReservationService_Update(t *testing.T) {
	t.Run("moving dates does not collide with itself", func(t *testing.T) {
		h := newHarness(t, singleRoom(1))

		created, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-08-01", "2024-08-03"))
		require.NoError(t, err)

		updated, err := h.svc.Update(guestCtx(), dto.UpdateReservationRequest{
			CheckIn:  ptr("2024-08-02"),
			CheckOut: ptr("2024-08-05"),
		}, created.ID)

		require.NoError(t, err)
		assert.Equal(t, 3, updated.Nights)
		assert.InDelta(t, 300.0, updated.TotalAmount, 0.001)
		assert.Equal(t, model.StatusPending, updated.Status)
		assert.Equal(t, event.TypeUpdated, h.publisher.last().Type)
	})

	t.Run("moving into a full room is rejected and nothing changes", func(t *testing.T) {
		h := newHarness(t, singleRoom(1), familyRoom(1))

		_, err := h.svc.Create(guestCtx(), request(familyRoomID, "2024-08-01", "2024-08-05"))
		require.NoError(t, err)

		mine, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-08-01", "2024-08-05"))
		require.NoError(t, err)

		_, err = h.svc.Update(guestCtx(), dto.UpdateReservationRequest{RoomID: ptr(familyRoomID)}, mine.ID)

		require.Error(t, err)
		assert.Equal(t, failure.KindInventoryExhausted, failure.KindOf(err))

		stored, err := h.svc.Get(guestCtx(), mine.ID)
		require.NoError(t, err)
		assert.Equal(t, singleRoomID, stored.RoomID)
	})

	t.Run("moving to another room re-prices at its rate", func(t *testing.T) {
		h := newHarness(t, singleRoom(1), familyRoom(1))

		mine, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-08-01", "2024-08-05"))
		require.NoError(t, err)

		updated, err := h.svc.Update(guestCtx(), dto.UpdateReservationRequest{RoomID: ptr(familyRoomID)}, mine.ID)

		require.NoError(t, err)
		assert.Equal(t, "Family", updated.RoomType)
		assert.InDelta(t, 1000.0, updated.TotalAmount, 0.001)
		assert.Equal(t, 0, h.store.activeCount(singleRoomID))
		assert.Equal(t, 1, h.store.activeCount(familyRoomID))
	})

	t.Run("guest edits keep the priced snapshot", func(t *testing.T) {
		h := newHarness(t, singleRoom(1))

		created, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-08-01", "2024-08-03"))
		require.NoError(t, err)

		h.store.setRate(singleRoomID, 99900)

		updated, err := h.svc.Update(guestCtx(), dto.UpdateReservationRequest{GuestName: ptr("Ada King")}, created.ID)

		require.NoError(t, err)
		assert.Equal(t, "Ada King", updated.GuestName)
		assert.InDelta(t, created.TotalAmount, updated.TotalAmount, 0.001)
	})

	t.Run("validation failures", func(t *testing.T) {
		h := newHarness(t, singleRoom(1))

		created, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-08-01", "2024-08-03"))
		require.NoError(t, err)

		_, err = h.svc.Update(guestCtx(), dto.UpdateReservationRequest{CheckOut: ptr("2024-07-30")}, created.ID)
		assert.Equal(t, failure.KindValidation, failure.KindOf(err))

		_, err = h.svc.Update(guestCtx(), dto.UpdateReservationRequest{CheckIn: ptr("2024-03-01")}, created.ID)
		assert.Equal(t, failure.KindValidation, failure.KindOf(err))

		_, err = h.svc.Update(guestCtx(), dto.UpdateReservationRequest{Address: ptr(" ")}, created.ID)
		assert.Equal(t, failure.KindValidation, failure.KindOf(err))

		_, err = h.svc.Update(guestCtx(), dto.UpdateReservationRequest{RoomID: ptr("5d0b3c1e-0000-4000-8000-000000000000")}, created.ID)
		assert.Equal(t, failure.KindNotFound, failure.KindOf(err))

		_, err = h.svc.Update(guestCtx(), dto.UpdateReservationRequest{GuestName: ptr("x")}, "missing")
		assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
	})

	t.Run("edit right after create while the replica lags", func(t *testing.T) {
		h := newHarness(t, singleRoom(1), familyRoom(1))

		created, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-08-01", "2024-08-03"))
		require.NoError(t, err)

		h.store.mu.Lock()
		h.store.replicaLag = true
		h.store.mu.Unlock()

		updated, err := h.svc.Update(guestCtx(), dto.UpdateReservationRequest{RoomID: ptr(familyRoomID)}, created.ID)

		require.NoError(t, err)
		assert.Equal(t, familyRoomID, updated.RoomID)
		assert.Equal(t, 0, h.store.activeCount(singleRoomID))
	})
}

func TestReservationService_RoundTripIsIdempotent(t *testing.T) {
	h := newHarness(t, singleRoom(1))

	created, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-09-10", "2024-09-14"))
	require.NoError(t, err)

	read, err := h.svc.Get(guestCtx(), created.ID)
	require.NoError(t, err)

	updated, err := h.svc.Update(guestCtx(), dto.UpdateReservationRequest{
		GuestName:     ptr(read.GuestName),
		Address:       ptr(read.Address),
		ContactNumber: ptr(read.ContactNumber),
		RoomID:        ptr(read.RoomID),
		CheckIn:       ptr(read.CheckIn),
		CheckOut:      ptr(read.CheckOut),
	}, created.ID)

	require.NoError(t, err)
	assert.Equal(t, read.Nights, updated.Nights)
	assert.InDelta(t, read.TotalAmount, updated.TotalAmount, 0.001)
	assert.Equal(t, read.Status, updated.Status)
}

func TestReservationService_Cancel(t *testing.T) {
	h := newHarness(t, singleRoom(1))

	first, err := h.svc.Create(guestCtx(), request(singleRoomID, "2024-07-01", "2024-07-05"))
	require.NoError(t, err)

	_, err = h.svc.SetStatus(guestCtx(), first.ID, model.StatusApproved)
	require.NoError(t, err)

	_, err = h.svc.Create(guestCtx(), request(singleRoomID, "2024-07-03", "2024-07-06"))
	require.Equal(t, failure.KindInventoryExhausted, failure.KindOf(err))

	require.NoError(t, h.svc.Cancel(guestCtx(), first.ID))

	cancelled := h.publisher.last()
	assert.Equal(t, event.TypeCancelled, cancelled.Type)
	assert.Equal(t, first.ID, cancelled.Reservation.ID)
	assert.Equal(t, model.StatusApproved, cancelled.Reservation.Status)

	_, err = h.svc.Create(guestCtx(), request(singleRoomID, "2024-07-03", "2024-07-06"))
	require.NoError(t, err)

	_, err = h.svc.Get(guestCtx(), first.ID)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))

	err = h.svc.Cancel(guestCtx(), first.ID)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}

type mockFixture struct {
	repo  *reservationMocks.MockReservation
	rooms *roomMocks.MockRoom
	tx    *repoMocks.MockTransactor
	cache *cacheMocks.MockRedisCache
	pub   *reservationMocks.MockPublisher
	svc   service.Reservation
}

func newMockFixture(t *testing.T) *mockFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &mockFixture{
		repo:  reservationMocks.NewMockReservation(ctrl),
		rooms: roomMocks.NewMockRoom(ctrl),
		tx:    repoMocks.NewMockTransactor(ctrl),
		cache: cacheMocks.NewMockRedisCache(ctrl),
		pub:   reservationMocks.NewMockPublisher(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	f.svc = service.New(f.repo, f.rooms, f.tx, keylock.New(), cfg, f.cache, mocks.NewOtel(), f.pub)
	service.SetToday(f.svc, today)

	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return f
}

func TestReservationService_Create_TransactionError(t *testing.T) {
	f := newMockFixture(t)

	f.tx.EXPECT().WithTx(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := f.svc.Create(guestCtx(), request(singleRoomID, "2024-05-01", "2024-05-04"))

	require.Error(t, err)
	assert.Equal(t, failure.KindInternal, failure.KindOf(err))
}

func TestReservationService_Get(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(f *mockFixture)
		wantKind  failure.Kind
		wantErr   bool
	}{
		{
			name: "cache hit",
			setupMock: func(f *mockFixture) {
				f.cache.EXPECT().
					Get(gomock.Any(), "reservation:get:res-1", gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, value any) error {
						*value.(*dto.ReservationResponse) = dto.ReservationResponse{ID: "res-1"}

						return nil
					})
			},
		},
		{
			name: "from repository",
			setupMock: func(f *mockFixture) {
				f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss"))
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Reservation{ID: "res-1"}, nil)
			},
		},
		{
			name: "repository error",
			setupMock: func(f *mockFixture) {
				f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss"))
				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Reservation{}, errors.New("database error"))
			},
			wantErr:  true,
			wantKind: failure.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMockFixture(t)
			tt.setupMock(f)

			res, err := f.svc.Get(context.Background(), "res-1")

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, failure.KindOf(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "res-1", res.ID)
		})
	}
}

func TestReservationService_GetAll(t *testing.T) {
	f := newMockFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss")).Times(2)
	f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(11, nil)
	f.repo.EXPECT().
		GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]model.Reservation{{ID: "res-1", GuestName: "Ada"}}, nil)

	res, err := f.svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 10}, gDto.FilterGroup{})

	require.NoError(t, err)
	assert.Equal(t, 11, res.TotalData)
	assert.Equal(t, 2, res.TotalPage)
	require.Len(t, res.Reservations, 1)
	assert.Equal(t, "Ada", res.Reservations[0].GuestName)
}

func TestReservationService_Summary(t *testing.T) {
	f := newMockFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss"))
	f.repo.EXPECT().Summarize(gomock.Any(), gomock.Any()).Return([]model.Summary{
		{Status: model.StatusApproved, Reservations: 2, Nights: 5, RevenueCents: 50000},
		{Status: model.StatusPending, Reservations: 1, Nights: 3, RevenueCents: 30000},
	}, nil)

	res, err := f.svc.Summary(context.Background(), gDto.FilterGroup{})

	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalReservations)
	assert.Equal(t, int64(8), res.TotalNights)
	assert.InDelta(t, 800.0, res.TotalRevenue, 0.001)
	require.Len(t, res.ByStatus, 3)
	assert.Equal(t, model.StatusRejected, res.ByStatus[2].Status)
	assert.Zero(t, res.ByStatus[2].Reservations)
}

func TestReservationService_Summary_Error(t *testing.T) {
	f := newMockFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss"))
	f.repo.EXPECT().Summarize(gomock.Any(), gomock.Any()).Return(nil, errors.New("database error"))

	_, err := f.svc.Summary(context.Background(), gDto.FilterGroup{})

	require.Error(t, err)
}
