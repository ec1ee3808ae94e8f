package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/latestcomment/educhat/internal/services"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler streams the question lifecycle: the classification first,
// then each model answer as it arrives, then the vote prompt.
type WebSocketHandler struct {
	Manager *services.SessionManager
}

func NewWebSocketHandler(manager *services.SessionManager) *WebSocketHandler {
	return &WebSocketHandler{Manager: manager}
}

func (h *WebSocketHandler) WebSocketMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
	}()

	sess, err := h.Manager.Open(strings.Clone(c.Params("id")))
	if err != nil {
		_ = c.WriteJSON(models.Event{Type: models.EventError, Text: err.Error()})
		return
	}
	log.Debug().Str("session_id", sess.ID).Msg("websocket connected")
	defer h.Manager.Release(sess)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			break
		}

		var cmd models.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			_ = c.WriteJSON(models.Event{Type: models.EventError, Text: "invalid command"})
			continue
		}

		switch cmd.Type {
		case "ask":
			h.ask(c, sess, cmd)
		case "vote":
			h.vote(c, sess, cmd)
		default:
			_ = c.WriteJSON(models.Event{Type: models.EventError, Text: "unknown command " + cmd.Type})
		}
	}
	log.Debug().Str("session_id", sess.ID).Msg("websocket closed")
}

func (h *WebSocketHandler) ask(c *websocket.Conn, sess *models.Session, cmd models.Command) {
	obs := &services.Observer{
		OnClassified: func(level string) {
			_ = c.WriteJSON(models.Event{Type: models.EventClassified, SessionID: sess.ID, CognitiveLevel: level})
		},
		OnAnswer: func(model string, res services.Result) {
			_ = c.WriteJSON(models.Event{Type: models.EventAnswer, Model: model, Kind: string(res.Kind), Text: res.Text})
		},
	}

	out, err := h.Manager.Submit(context.Background(), sess, cmd.Question, cmd.Models, obs)
	if err != nil {
		_ = c.WriteJSON(models.Event{Type: models.EventError, Text: err.Error()})
		return
	}
	for _, w := range out.Warnings {
		_ = c.WriteJSON(models.Event{Type: models.EventWarning, Text: w})
	}
	if out.AwaitingVote {
		_ = c.WriteJSON(models.Event{Type: models.EventAwaitVote, Choices: out.Turn.Models()})
		return
	}
	writePersisted(c, out.Turn, out.Saved)
}

func (h *WebSocketHandler) vote(c *websocket.Conn, sess *models.Session, cmd models.Command) {
	turn, saved, err := h.Manager.Vote(sess, cmd.Model)
	if err != nil {
		_ = c.WriteJSON(models.Event{Type: models.EventError, Text: err.Error()})
		return
	}
	writePersisted(c, turn, saved)
}

func writePersisted(c *websocket.Conn, turn models.Turn, saved bool) {
	ev := models.Event{Type: models.EventPersisted, Turn: &turn, Saved: &saved}
	if !saved {
		ev.Text = services.SaveWarning
	}
	_ = c.WriteJSON(ev)
}
