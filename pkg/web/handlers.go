package web

import (
	"errors"
	"html/template"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-callbot/pkg/call"
	"github.com/teslashibe/go-callbot/pkg/hub"
)

var thankYouTmpl = template.Must(template.ParseFS(static, "static/thankyou.html"))

// EndResponse is returned by POST /api/end.
type EndResponse struct {
	Time     string `json:"time"`
	Redirect string `json:"redirect"`
}

// ThankYouURL is where the page goes after the call ends.
func ThankYouURL(timerText string) string {
	return "/thankyou?time=" + url.QueryEscape(timerText)
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(page)
}

func (s *Server) handleThankYou(c *fiber.Ctx) error {
	var b strings.Builder
	if err := thankYouTmpl.Execute(&b, struct{ Time string }{c.Query("time")}); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(b.String())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"clients": s.statusHub.ClientCount(),
	})
}

// handleStatus returns the current snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Snapshot())
}

func (s *Server) handleMic(c *fiber.Ctx) error {
	if err := s.ctrl.StartListening(); err != nil {
		return controlError(err)
	}
	return c.Status(fiber.StatusAccepted).JSON(s.ctrl.Snapshot())
}

func (s *Server) handleSpeaker(c *fiber.Ctx) error {
	if err := s.ctrl.ToggleSpeaker(); err != nil {
		return controlError(err)
	}
	return c.JSON(s.ctrl.Snapshot())
}

// handleEnd ends the call. The timer text is read before the counter
// resets and handed to the thank-you view.
func (s *Server) handleEnd(c *fiber.Ctx) error {
	text, err := s.ctrl.End()
	if err != nil {
		return controlError(err)
	}
	s.logger.Info("call ended from page", "time", text)
	return c.JSON(EndResponse{
		Time:     text,
		Redirect: ThankYouURL(text),
	})
}

// handleStatusWS streams snapshots until the page disconnects.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}

func controlError(err error) error {
	switch {
	case errors.Is(err, call.ErrAlreadyListening), errors.Is(err, call.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, call.ErrNotStarted):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, call.ErrSessionEnded):
		return fiber.NewError(fiber.StatusGone, err.Error())
	default:
		return err
	}
}
