package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"

	"innkeeper/infras/otel"
	"innkeeper/infras/postgres"
	"innkeeper/internal/domains/reservation/model"
	"innkeeper/shared/constant"
	gDto "innkeeper/shared/dto"
	gRepo "innkeeper/shared/repository"

	"github.com/jmoiron/sqlx"
)

// availabilityColumns is all the calculator needs from a reservation row.
var availabilityColumns = []string{
	model.FieldID,
	model.FieldRoomID,
	model.FieldStatus,
	model.FieldCheckIn,
	model.FieldCheckOut,
}

// Reservation reads are open to anyone; the Tx mutators are reserved for the
// reservation service, which owns the transaction and the room locks.
type Reservation interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Reservation, error)
	GetPrimary(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Reservation, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Reservation, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	GetForUpdateTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Reservation, error)
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Reservation) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	DeleteTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) error
	// ListActive returns the PENDING and APPROVED reservations of the given rooms,
	// or of every room when none is given.
	ListActive(ctx context.Context, roomIDs ...string) ([]model.Reservation, error)
	ListActiveTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) ([]model.Reservation, error)
	Summarize(ctx context.Context, filter gDto.FilterGroup) ([]model.Summary, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Reservation]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Reservation {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Reservation](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// ActiveFilter matches reservations that still hold a unit.
func ActiveFilter(roomIDs ...string) gDto.FilterGroup {
	filter := gDto.And(gDto.Filter{
		Field:    model.FieldStatus,
		Value:    []string{model.StatusPending, model.StatusApproved},
		Operator: gDto.FilterOperatorIn,
		Table:    model.TableName,
	})

	if len(roomIDs) > 0 {
		filter.Add(gDto.Filter{
			Field:    model.FieldRoomID,
			Value:    roomIDs,
			Operator: gDto.FilterOperatorIn,
			Table:    model.TableName,
		})
	}

	return filter
}

func (r *repositoryImpl) ListActive(ctx context.Context, roomIDs ...string) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.ListActive")
	defer scope.End()

	return r.GetAll(ctx, gDto.QueryParams{}, ActiveFilter(roomIDs...), availabilityColumns...) //nolint:wrapcheck
}

func (r *repositoryImpl) ListActiveTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.ListActiveTx")
	defer scope.End()

	return r.GetAllTx(ctx, sqltx, gDto.QueryParams{}, ActiveFilter(roomID), availabilityColumns...) //nolint:wrapcheck
}

func (r *repositoryImpl) Summarize(ctx context.Context, filter gDto.FilterGroup) ([]model.Summary, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.Summarize")
	defer scope.End()

	where, args := r.BuildWhereClause(ctx, filter)

	query := fmt.Sprintf(`SELECT %[1]s.status AS status,
		COUNT(%[1]s.id) AS reservations,
		COALESCE(SUM(%[1]s.nights), 0) AS nights,
		COALESCE(SUM(%[1]s.total_amount_cents), 0) AS revenue_cents
		FROM %[1]s %[2]s GROUP BY %[1]s.status`, model.TableName, where)

	var rows []model.Summary
	if err := r.Select(ctx, &rows, query, args); err != nil {
		return nil, err
	}

	return rows, nil
}
