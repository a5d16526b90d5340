package policy

import (
	"net/http"

	"github.com/diewo77/go-spinning/auth"
	"github.com/diewo77/go-spinning/internal/handlers"
	"github.com/diewo77/go-spinning/internal/services"
	"gorm.io/gorm"
)

// RouterConfig holds the wired services and handlers of the application.
type RouterConfig struct {
	// WriteGuard wraps every route that changes state.
	WriteGuard func(http.Handler) http.Handler

	// Handlers
	MachineHandler *handlers.MachineHandler
	EntryHandler   *handlers.EntryHandler
	StatsHandler   *handlers.StatsHandler

	// Services
	Machines   *services.MachineService
	History    *services.HistoryService
	Production *services.ProductionService
	Stats      *services.StatsService
}

// NewRouterConfig wires services and handlers on db. With requireAuth, write
// routes reject requests that carry no verified operator session; reads stay
// public either way.
func NewRouterConfig(db *gorm.DB, requireAuth bool) *RouterConfig {
	history := services.NewHistoryService(db)
	machines := services.NewMachineService(db, history)
	production := services.NewProductionService(db)
	stats := services.NewStatsService(db)

	return &RouterConfig{
		WriteGuard:     WriteGuard(requireAuth),
		MachineHandler: handlers.NewMachineHandler(machines, history),
		EntryHandler:   handlers.NewEntryHandler(production),
		StatsHandler:   handlers.NewStatsHandler(stats),
		Machines:       machines,
		History:        history,
		Production:     production,
		Stats:          stats,
	}
}

// WriteGuard returns auth.Require when requireAuth is set, otherwise a
// pass-through.
func WriteGuard(requireAuth bool) func(http.Handler) http.Handler {
	if requireAuth {
		return auth.Require
	}
	return func(next http.Handler) http.Handler { return next }
}

// Register mounts every API route on mux.
func (c *RouterConfig) Register(mux *http.ServeMux) {
	c.MachineHandler.Register(mux, c.WriteGuard)
	c.EntryHandler.Register(mux, c.WriteGuard)
	c.StatsHandler.Register(mux)
}
