package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/latestcomment/educhat/internal/services"
	"github.com/latestcomment/educhat/internal/views"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp wires every route onto a fiber app. accessLog turns on fiber's
// request logger.
func NewApp(h *Handler, ws *WebSocketHandler, accessLog bool) *fiber.App {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	engine.AddFunc("preview", func(text string) string {
		return services.Preview(text, 400)
	})

	app := fiber.New(fiber.Config{
		Views:                 engine,
		AppName:               "EduChat",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if accessLog {
		app.Use(logger.New())
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/sessions/:id/transcript", h.TranscriptPage)

	api := app.Group("/api")
	api.Get("/models", h.Models)
	api.Post("/sessions", h.CreateSession)
	api.Get("/sessions/:id", h.GetSession)
	api.Post("/sessions/:id/reset", h.ResetSession)
	api.Post("/sessions/:id/ask", h.Ask)
	api.Post("/sessions/:id/vote", h.Vote)
	api.Get("/sessions/:id/export.json", h.ExportJSON)
	api.Get("/sessions/:id/export.txt", h.ExportText)

	api.Post("/sessions/:id/admin/login", h.AdminLogin)
	admin := api.Group("/sessions/:id/admin", h.RequireAdmin)
	admin.Get("/", h.AdminView)
	admin.Get("/sessions", h.AdminSessions)
	admin.Put("/default-model", h.SetDefaultModel)

	app.Get("/ws/:id", ws.WebSocketMiddleware, websocket.New(ws.HandleWebSocket))
	return app
}
