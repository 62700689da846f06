package service_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"innkeeper/internal/domains/availability"
	"innkeeper/internal/domains/reservation/event"
	"innkeeper/internal/domains/reservation/model"
	roomModel "innkeeper/internal/domains/room/model"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"

	"github.com/jmoiron/sqlx"
)

// memoryStore backs both repositories in tests. It only guards its maps;
// row locks are no-ops, so any serialization observed comes from the service.
type memoryStore struct {
	mu           sync.Mutex
	rooms        map[string]roomModel.Room
	reservations map[string]model.Reservation
	// replicaLag hides every reservation from replica reads.
	replicaLag bool
}

func newMemoryStore(rooms ...roomModel.Room) *memoryStore {
	s := &memoryStore{
		rooms:        make(map[string]roomModel.Room),
		reservations: make(map[string]model.Reservation),
	}

	for _, r := range rooms {
		s.rooms[r.ID] = r
	}

	return s
}

func (s *memoryStore) setRate(roomID string, cents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.rooms[roomID]
	room.NightlyRateCents = cents
	s.rooms[roomID] = room
}

func (s *memoryStore) activeCount(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, r := range s.reservations {
		if r.RoomID == roomID && availability.Blocks(r.Status) {
			n++
		}
	}

	return n
}

func idOf(filter gDto.FilterGroup) string {
	for _, f := range filter.Filters {
		if fl, ok := f.(gDto.Filter); ok && fl.Field == model.FieldID {
			id, _ := fl.Value.(string)

			return id
		}
	}

	return constant.Empty
}

type fakeRooms struct{ *memoryStore }

func (f fakeRooms) Insert(_ context.Context, room roomModel.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rooms[room.ID] = room

	return nil
}

func (f fakeRooms) Get(_ context.Context, filter gDto.FilterGroup, _ ...string) (roomModel.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rooms[idOf(filter)], nil
}

func (f fakeRooms) GetAll(_ context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]roomModel.Room, error) {
	return nil, errors.New("fake rooms: GetAll not supported")
}

func (f fakeRooms) Exist(_ context.Context, filter gDto.FilterGroup) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.rooms[idOf(filter)]

	return ok, nil
}

func (f fakeRooms) Count(_ context.Context, _ gDto.FilterGroup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.rooms), nil
}

func (f fakeRooms) UpdateTx(_ context.Context, _ *sqlx.Tx, _ map[string]any, _ gDto.FilterGroup) error {
	return errors.New("fake rooms: UpdateTx not supported")
}

func (f fakeRooms) Delete(_ context.Context, filter gDto.FilterGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.rooms, idOf(filter))

	return nil
}

func (f fakeRooms) DeleteTx(ctx context.Context, _ *sqlx.Tx, filter gDto.FilterGroup) error {
	return f.Delete(ctx, filter)
}

func (f fakeRooms) LockTx(_ context.Context, _ *sqlx.Tx, ids ...string) ([]roomModel.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res []roomModel.Room

	for _, id := range ids {
		if room, ok := f.rooms[id]; ok {
			res = append(res, room)
		}
	}

	slices.SortFunc(res, func(a, b roomModel.Room) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	return res, nil
}

type fakeReservations struct{ *memoryStore }

func (f fakeReservations) Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Reservation, error) {
	f.mu.Lock()
	lagging := f.replicaLag
	f.mu.Unlock()

	if lagging {
		return model.Reservation{}, nil
	}

	return f.GetPrimary(ctx, filter, columns...)
}

func (f fakeReservations) GetPrimary(_ context.Context, filter gDto.FilterGroup, _ ...string) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reservations[idOf(filter)], nil
}

func (f fakeReservations) GetAll(_ context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := make([]model.Reservation, 0, len(f.reservations))
	for _, r := range f.reservations {
		res = append(res, r)
	}

	return res, nil
}

func (f fakeReservations) Exist(_ context.Context, filter gDto.FilterGroup) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.reservations[idOf(filter)]

	return ok, nil
}

func (f fakeReservations) Count(_ context.Context, _ gDto.FilterGroup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.reservations), nil
}

func (f fakeReservations) GetForUpdateTx(ctx context.Context, _ *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Reservation, error) {
	return f.GetPrimary(ctx, filter, columns...)
}

func (f fakeReservations) InsertTx(_ context.Context, _ *sqlx.Tx, r model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reservations[r.ID] = r

	return nil
}

func (f fakeReservations) UpdateTx(_ context.Context, _ *sqlx.Tx, fields map[string]any, filter gDto.FilterGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := idOf(filter)

	r, ok := f.reservations[id]
	if !ok {
		return nil
	}

	for column, value := range fields {
		switch column {
		case model.FieldGuestName:
			r.GuestName, _ = value.(string)
		case model.FieldAddress:
			r.Address, _ = value.(string)
		case model.FieldContactNumber:
			r.ContactNumber, _ = value.(string)
		case model.FieldRoomID:
			r.RoomID, _ = value.(string)
		case model.FieldRoomType:
			r.RoomType, _ = value.(string)
		case model.FieldCheckIn:
			r.CheckIn, _ = value.(time.Time)
		case model.FieldCheckOut:
			r.CheckOut, _ = value.(time.Time)
		case model.FieldNights:
			r.Nights, _ = value.(int)
		case model.FieldNightlyRateCents:
			r.NightlyRateCents, _ = value.(int64)
		case model.FieldTotalAmountCents:
			r.TotalAmountCents, _ = value.(int64)
		case model.FieldStatus:
			r.Status, _ = value.(string)
		case constant.FieldModifiedAt:
			r.ModifiedAt, _ = value.(time.Time)
		case constant.FieldModifiedBy:
			r.ModifiedBy, _ = value.(string)
		}
	}

	f.reservations[id] = r

	return nil
}

func (f fakeReservations) DeleteTx(_ context.Context, _ *sqlx.Tx, filter gDto.FilterGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.reservations, idOf(filter))

	return nil
}

func (f fakeReservations) ListActive(_ context.Context, roomIDs ...string) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res []model.Reservation

	for _, r := range f.reservations {
		if availability.Blocks(r.Status) && (len(roomIDs) == 0 || slices.Contains(roomIDs, r.RoomID)) {
			res = append(res, r)
		}
	}

	return res, nil
}

func (f fakeReservations) ListActiveTx(ctx context.Context, _ *sqlx.Tx, roomID string) ([]model.Reservation, error) {
	return f.ListActive(ctx, roomID)
}

func (f fakeReservations) Summarize(_ context.Context, _ gDto.FilterGroup) ([]model.Summary, error) {
	return nil, errors.New("fake reservations: Summarize not supported")
}

// passThroughTx runs fn without isolation. The service writes only after all
// checks pass, so there is nothing to roll back.
type passThroughTx struct{}

func (passThroughTx) WithTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := make([]string, len(p.events))
	for i, evt := range p.events {
		res[i] = evt.Type
	}

	return res
}

func (p *recordingPublisher) last() event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.events[len(p.events)-1]
}
