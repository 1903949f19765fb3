package web

import "github.com/gofiber/fiber/v3"

// Register mounts every API route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Post("/definitions/compile", h.CompileDocument)

	org := router.Group("/orgs/:orgId")

	d := org.Group("/definitions")
	d.Put("/:id", h.withActor(h.SaveDefinition))
	d.Get("/:id", h.withActor(h.GetDefinition))
	d.Post("/:id/compile", h.withActor(h.CompileDefinition))
	d.Post("/:id/executions", h.withActor(h.StartExecution))

	t := org.Group("/tasks")
	t.Get("/:taskId", h.withActor(h.GetTask))
	t.Patch("/:taskId", h.withActor(h.PatchTask))
	t.Post("/:taskId/claim", h.withActor(h.ClaimTask))
	t.Put("/:taskId/status", h.withActor(h.SetTaskStatus))
	t.Post("/:taskId/approve", h.withActor(h.ApproveTask))
	t.Post("/:taskId/reject", h.withActor(h.RejectTask))

	org.Post("/recipients/resolve", h.withActor(h.ResolveRecipients))

	c := org.Group("/contacts")
	c.Get("/:contactId", h.withActor(h.GetContact))
	c.Patch("/:contactId", h.withActor(h.PatchContact))
}
