package router

import (
	"github.com/gin-gonic/gin"

	"github.com/portal/backend/internal/interfaces/http/handler"
)

// Handlers bundles every handler the portal exposes
type Handlers struct {
	Invoices   *handler.InvoiceHandler
	Receptions *handler.ReceptionHandler
	Sync       *handler.SyncHandler
	Worker     *handler.WorkerHandler
	System     *handler.SystemHandler
}

// Guards are the per-group authentication chains. An empty chain leaves its
// group open, which only tests rely on.
type Guards struct {
	// Auth validates supplier and operator bearer tokens
	Auth []gin.HandlerFunc
	// SyncKey checks the shared secret of the purchase-order import
	SyncKey []gin.HandlerFunc
}

// RegisterPortal mounts the portal API. The worker endpoint authenticates
// its own shared secret and sits outside the JWT guard.
func RegisterPortal(r *Router, h Handlers, g Guards) *Router {
	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)
	system.Group("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)
	r.Register(system)

	invoices := NewDomainGroup("invoices", "/invoices").Use(g.Auth...)
	invoices.POST("", h.Invoices.Submit)
	invoices.GET("", h.Invoices.List)
	invoices.GET("/:id", h.Invoices.Get)
	invoices.POST("/:id/resync", h.Invoices.Resync)
	r.Register(invoices)

	receptions := NewDomainGroup("receptions", "/receptions").Use(g.Auth...)
	receptions.POST("", h.Receptions.Create)
	receptions.GET("/:id", h.Receptions.Get)
	r.Register(receptions)

	sync := NewDomainGroup("sync", "/sync").Use(g.SyncKey...)
	sync.POST("/purchase-orders", h.Sync.SyncPurchaseOrders)
	r.Register(sync)

	workers := NewDomainGroup("workers", "/workers")
	workers.POST("/reconcile", h.Worker.Reconcile)
	r.Register(workers)

	return r
}

// RegisterProbes mounts the liveness and readiness probes at the engine root
func RegisterProbes(engine *gin.Engine, system *handler.SystemHandler) {
	engine.GET("/health", system.Health)
	engine.GET("/ready", system.Ready)
}
