package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/latestcomment/educhat/internal/models"
	"github.com/latestcomment/educhat/internal/services"
)

type Handler struct {
	Manager *services.SessionManager
	Gate    *services.AdminGate
}

func NewHandler(manager *services.SessionManager, gate *services.AdminGate) *Handler {
	return &Handler{Manager: manager, Gate: gate}
}

type askRequest struct {
	Question string   `json:"question"`
	Models   []string `json:"models"`
}

type voteRequest struct {
	Model string `json:"model"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type defaultModelRequest struct {
	Model string `json:"model"`
}

// resetResponse is the new session, plus a warning when the unvoted turn of
// the old one could not be saved.
type resetResponse struct {
	models.Snapshot
	Warning string `json:"warning,omitempty"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrEmptyQuestion),
		errors.Is(err, services.ErrUnknownModel),
		errors.Is(err, services.ErrInvalidChoice),
		errors.Is(err, services.ErrInvalidSessionID):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNoPendingVote):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAdminDenied):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrAdminRequired):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrAdminNotConfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

// session resolves the :id route parameter. Fiber reuses the parameter
// buffer after the handler returns, so the id is cloned before it can be
// kept as a map key.
func (h *Handler) session(c *fiber.Ctx) (*models.Session, error) {
	return h.Manager.Open(strings.Clone(c.Params("id")))
}

func (h *Handler) Models(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"models":  h.Manager.OfferedModels(),
		"default": h.Manager.DefaultModel(),
	})
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	sess := h.Manager.Create()
	return c.Status(fiber.StatusCreated).JSON(sess.Snapshot())
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sess.Snapshot())
}

// ResetSession discards the in-memory history and hands out a new id.
func (h *Handler) ResetSession(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	fresh, saved := h.Manager.Reset(sess)
	resp := resetResponse{Snapshot: fresh.Snapshot()}
	if !saved {
		resp.Warning = services.SaveWarning
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *Handler) Ask(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	out, err := h.Manager.Submit(c.UserContext(), sess, req.Question, req.Models, nil)
	if err != nil {
		return writeError(c, err)
	}
	resp := fiber.Map{
		"turn":         out.Turn,
		"results":      out.Results,
		"awaitingVote": out.AwaitingVote,
	}
	warnings := out.Warnings
	if !out.AwaitingVote {
		resp["saved"] = out.Saved
		if !out.Saved {
			warnings = append(warnings, services.SaveWarning)
		}
	}
	if len(warnings) > 0 {
		resp["warning"] = warnings[0]
		resp["warnings"] = warnings
	}
	return c.JSON(resp)
}

func (h *Handler) Vote(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	var req voteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	turn, saved, err := h.Manager.Vote(sess, req.Model)
	if err != nil {
		return writeError(c, err)
	}
	resp := fiber.Map{"turn": turn, "saved": saved}
	if !saved {
		resp["warning"] = services.SaveWarning
	}
	return c.JSON(resp)
}

func (h *Handler) ExportJSON(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	snap := sess.Snapshot()
	data, err := services.ExportJSON(snap.History)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="edu_chat_%s.json"`, snap.ID))
	return c.Send(data)
}

func (h *Handler) ExportText(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	snap := sess.Snapshot()
	var buf bytes.Buffer
	if err := services.WriteTranscript(&buf, snap.ID, snap.History); err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="edu_chat_%s.txt"`, snap.ID))
	return c.Send(buf.Bytes())
}

type transcriptAnswer struct {
	Model string
	Text  string
}

type transcriptTurn struct {
	Timestamp string
	Question  string
	Level     string
	Answers   []transcriptAnswer
	Best      string
}

func (h *Handler) TranscriptPage(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return c.Status(statusFor(err)).SendString(err.Error())
	}
	snap := sess.Snapshot()
	turns := make([]transcriptTurn, 0, len(snap.History))
	for _, t := range snap.History {
		tt := transcriptTurn{
			Timestamp: t.Timestamp,
			Question:  t.Question,
			Level:     t.CognitiveLevel,
			Best:      t.Best(),
		}
		if t.Answers != nil {
			for pair := t.Answers.Oldest(); pair != nil; pair = pair.Next() {
				tt.Answers = append(tt.Answers, transcriptAnswer{Model: pair.Key, Text: pair.Value})
			}
		}
		turns = append(turns, tt)
	}
	return c.Render("transcript", fiber.Map{
		"SessionID": snap.ID,
		"Turns":     turns,
	})
}
