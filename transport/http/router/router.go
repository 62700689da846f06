// Package router mounts the versioned API under /v1.
package router

import (
	"innkeeper/internal/handlers/reservation"
	"innkeeper/internal/handlers/room"

	"github.com/go-chi/chi/v5"
)

const apiVersion = "/v1"

// mounter is implemented by every domain handler.
type mounter interface {
	Router(r chi.Router)
}

type DomainHandlers struct {
	Room        room.Handler
	Reservation reservation.Handler
}

func (d DomainHandlers) all() []mounter {
	return []mounter{&d.Room, &d.Reservation}
}

type Router struct {
	DomainHandlers DomainHandlers
}

func New(domainHandlers DomainHandlers) Router {
	return Router{DomainHandlers: domainHandlers}
}

func (r *Router) SetupRoutes(mux chi.Router) {
	mux.Route(apiVersion, func(v1 chi.Router) {
		for _, handler := range r.DomainHandlers.all() {
			handler.Router(v1)
		}
	})
}
