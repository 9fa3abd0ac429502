package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"planetbot/internal/adapter/config"
	"planetbot/internal/app/auth"
	"planetbot/internal/app/bot"
	"planetbot/internal/app/history"
	"planetbot/internal/app/ports"
	"planetbot/internal/app/session"
	"planetbot/internal/app/status"
	"planetbot/internal/domain/rules"
	"planetbot/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Session is the control surface of the game session engine.
type Session interface {
	Login(ctx context.Context, username, password string) error
	Logout() error
	StartBot(tiles []world.Point, r rules.BotRules) error
	StopBot()
	Walk(path []world.Point) error
	WalkTo(dest world.Point) error
	GiveItem(item string, slot int) error
	RemoveItem(slot int) error
	Reorder(from, to int) error
	SetLocation(ctx context.Context, mapName string, at world.Point) error
	SendChat(target, text string) error
	Snapshot() status.Snapshot
}

type Handler struct {
	Session    Session
	RegisterUC auth.RegisterUseCase
	StatusUC   status.UseCase
	HistoryUC  history.UseCase
	// Rules apply when a bot start request carries none.
	Rules config.Rules
	KPI   kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	api := s.Group("/api")
	api.POST("/accounts/register", h.register)
	api.POST("/session/login", h.login)
	api.POST("/session/logout", h.logout)
	api.POST("/bot/start", h.startBot)
	api.POST("/bot/stop", h.stopBot)
	api.POST("/walk", h.walk)
	api.POST("/walk-to", h.walkTo)
	api.POST("/team/give-item", h.giveItem)
	api.POST("/team/remove-item", h.removeItem)
	api.POST("/team/reorder", h.reorder)
	api.POST("/location", h.location)
	api.POST("/chat", h.chat)
	api.GET("/status", h.status)
	api.GET("/history", h.history)

	s.GET("/ops/kpi", h.kpi)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type startBotRequest struct {
	Tiles []world.Point `json:"tiles"`
	Rules *config.Rules `json:"rules,omitempty"`
}

type walkRequest struct {
	Path []world.Point `json:"path"`
}

type walkToRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type giveItemRequest struct {
	Item string `json:"item"`
	Slot int    `json:"slot"`
}

type removeItemRequest struct {
	Slot int `json:"slot"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type locationRequest struct {
	Map string `json:"map"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
}

type chatRequest struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (h Handler) register(c context.Context, ctx *app.RequestContext) {
	var body auth.RegisterRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.RegisterUC.Execute(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) login(c context.Context, ctx *app.RequestContext) {
	var body loginRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if err := h.Session.Login(c, strings.TrimSpace(body.Username), body.Password); err != nil {
		writeError(ctx, err)
		return
	}
	h.writeStatus(c, ctx, consts.StatusAccepted)
}

func (h Handler) logout(c context.Context, ctx *app.RequestContext) {
	if err := h.Session.Logout(); err != nil {
		writeError(ctx, err)
		return
	}
	h.writeStatus(c, ctx, consts.StatusOK)
}

func (h Handler) startBot(c context.Context, ctx *app.RequestContext) {
	var body startBotRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	src := h.Rules
	if body.Rules != nil {
		src = *body.Rules
	}
	r, err := src.BotRules()
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_rules", err.Error())
		return
	}
	if err := h.Session.StartBot(body.Tiles, r); err != nil {
		writeError(ctx, err)
		return
	}
	h.writeStatus(c, ctx, consts.StatusOK)
}

func (h Handler) stopBot(c context.Context, ctx *app.RequestContext) {
	h.Session.StopBot()
	h.writeStatus(c, ctx, consts.StatusOK)
}

func (h Handler) walk(_ context.Context, ctx *app.RequestContext) {
	var body walkRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if len(body.Path) == 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "path is empty")
		return
	}
	h.reply(ctx, h.Session.Walk(body.Path))
}

func (h Handler) walkTo(_ context.Context, ctx *app.RequestContext) {
	var body walkToRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	h.reply(ctx, h.Session.WalkTo(world.Point{X: body.X, Y: body.Y}))
}

func (h Handler) giveItem(_ context.Context, ctx *app.RequestContext) {
	var body giveItemRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	h.reply(ctx, h.Session.GiveItem(body.Item, body.Slot))
}

func (h Handler) removeItem(_ context.Context, ctx *app.RequestContext) {
	var body removeItemRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	h.reply(ctx, h.Session.RemoveItem(body.Slot))
}

func (h Handler) reorder(_ context.Context, ctx *app.RequestContext) {
	var body reorderRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	h.reply(ctx, h.Session.Reorder(body.From, body.To))
}

func (h Handler) location(c context.Context, ctx *app.RequestContext) {
	var body locationRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if strings.TrimSpace(body.Map) == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "map is required")
		return
	}
	h.reply(ctx, h.Session.SetLocation(c, body.Map, world.Point{X: body.X, Y: body.Y}))
}

func (h Handler) chat(_ context.Context, ctx *app.RequestContext) {
	var body chatRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	h.reply(ctx, h.Session.SendChat(strings.TrimSpace(body.Target), body.Text))
}

func (h Handler) status(c context.Context, ctx *app.RequestContext) {
	h.writeStatus(c, ctx, consts.StatusOK)
}

func (h Handler) history(c context.Context, ctx *app.RequestContext) {
	account := strings.TrimSpace(string(ctx.Query("account")))
	if account == "" && h.Session != nil {
		account = h.Session.Snapshot().Account
	}
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	occurredFrom, _ := strconv.ParseInt(string(ctx.Query("occurred_from")), 10, 64)
	occurredTo, _ := strconv.ParseInt(string(ctx.Query("occurred_to")), 10, 64)
	resp, err := h.HistoryUC.Execute(c, history.Request{
		Account:      account,
		Limit:        limit,
		OccurredFrom: occurredFrom,
		OccurredTo:   occurredTo,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) reply(ctx *app.RequestContext, err error) {
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, okResponse{OK: true})
}

func (h Handler) writeStatus(c context.Context, ctx *app.RequestContext, code int) {
	resp, err := h.StatusUC.Execute(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(code, resp)
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeErrorBody(ctx, consts.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, session.ErrMissingCredentials):
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_credentials", err.Error())
	case errors.Is(err, session.ErrNotConnected):
		writeErrorBody(ctx, consts.StatusConflict, "not_connected", err.Error())
	case errors.Is(err, session.ErrAlreadyConnected):
		writeErrorBody(ctx, consts.StatusConflict, "already_connected", err.Error())
	case errors.Is(err, session.ErrBotRunning), errors.Is(err, bot.ErrAlreadyRunning):
		writeErrorBody(ctx, consts.StatusConflict, "bot_running", err.Error())
	case errors.Is(err, session.ErrMoving), errors.Is(err, bot.ErrWalkInProgress):
		writeErrorBody(ctx, consts.StatusConflict, "moving", err.Error())
	case errors.Is(err, session.ErrInBattle):
		writeErrorBody(ctx, consts.StatusConflict, "in_battle", err.Error())
	case errors.Is(err, session.ErrSlotHasItem):
		writeErrorBody(ctx, consts.StatusConflict, "slot_has_item", err.Error())
	case errors.Is(err, session.ErrSlotEmpty):
		writeErrorBody(ctx, consts.StatusConflict, "slot_empty", err.Error())
	case errors.Is(err, session.ErrTooFewTiles):
		writeErrorBody(ctx, consts.StatusBadRequest, "too_few_tiles", err.Error())
	case errors.Is(err, session.ErrInvalidRules):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_rules", err.Error())
	case errors.Is(err, session.ErrNoItem):
		writeErrorBody(ctx, consts.StatusBadRequest, "no_item", err.Error())
	case errors.Is(err, session.ErrBadSlot):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_slot", err.Error())
	case errors.Is(err, session.ErrEmptyMessage):
		writeErrorBody(ctx, consts.StatusBadRequest, "empty_message", err.Error())
	case errors.Is(err, session.ErrUnknownLocation):
		writeErrorBody(ctx, consts.StatusNotFound, "unknown_location", err.Error())
	case errors.Is(err, session.ErrNoPath):
		writeErrorBody(ctx, consts.StatusUnprocessableEntity, "no_path", err.Error())
	case errors.Is(err, auth.ErrInvalidRequest),
		errors.Is(err, history.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
