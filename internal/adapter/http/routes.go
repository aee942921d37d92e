package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/switchboard-hq/switchboard/internal/adapter/ws"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/health", Health)
	r.Get("/ws", hub.HandleWS)
	r.Get("/", Dashboard)

	r.Route("/api/v1", func(r chi.Router) {
		// Registry
		r.Post("/agents", h.RegisterAgent)
		r.Get("/agents", h.ListAgents)
		r.Delete("/agents/{name}", h.DeregisterAgent)
		r.Post("/agents/{name}/deactivate", h.DeactivateAgent)

		// Mailbox
		r.Post("/send", h.SendMessage)
		r.Get("/peek/{name}", h.PeekMailbox)
		r.Get("/read/{name}", h.ReadMailbox)
		r.Post("/clear/{name}", h.ClearMailbox)

		// Context store
		r.Post("/context", h.ShareContext)
		r.Get("/context/{owner}/{key}", h.GetContext)

		// Task board
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/agent/{agent}", h.ListAgentTasks)
		r.Get("/tasks/agent/{agent}/pending", h.ListPendingTasks)
		r.Get("/tasks/{id}", h.GetTask)
		r.Patch("/tasks/{id}", h.UpdateTask)

		// Observability
		r.Get("/activity", h.ListActivity)
		r.Get("/sessions", h.ListSessions)
	})
}
