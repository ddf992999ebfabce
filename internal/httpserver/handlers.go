package httpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/MonsterRookie/ashalytics/internal/analysis"
	"github.com/MonsterRookie/ashalytics/internal/capture"
	"github.com/MonsterRookie/ashalytics/internal/identity"
	"github.com/MonsterRookie/ashalytics/internal/notify"
	"github.com/MonsterRookie/ashalytics/internal/session"
	"github.com/MonsterRookie/ashalytics/internal/store"
)

// Handlers bundles the session routes and their dependencies.
type Handlers struct {
	Analyzer  session.Analyzer
	Store     store.Store
	Escalator notify.Sender
	Options   session.Options

	registry *session.Manager

	mu     sync.Mutex
	active map[string]*activeSession
}

// activeSession pairs a conversation with its lifecycle controller and live
// feed hub.
type activeSession struct {
	ctrl *identity.Controller
	hub  *hub
}

// NewHandlers constructs the handler set.
func NewHandlers(analyzer session.Analyzer, st store.Store, escalator notify.Sender, opts session.Options) *Handlers {
	if escalator == nil {
		escalator = notify.Nop{}
	}
	return &Handlers{
		Analyzer:  analyzer,
		Store:     st,
		Escalator: escalator,
		Options:   opts,
		registry:  session.NewManager(),
		active:    make(map[string]*activeSession),
	}
}

// Register wires the routes.
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/login", h.login)
	e.GET("/sessions/:key", h.state)
	e.POST("/sessions/:key/turns", h.turn)
	e.POST("/sessions/:key/override", h.override)
	e.DELETE("/sessions/:key/override", h.clearOverride)
	e.POST("/sessions/:key/reset", h.reset)
	e.POST("/sessions/:key/logout", h.logout)
	e.GET("/sessions/:key/live", h.live)
}

type loginRequest struct {
	WorkerID     string `json:"worker_id"`
	DistrictCode string `json:"district_code"`
}

type loginResponse struct {
	Identity identity.Identity `json:"identity"`
	State    session.Snapshot  `json:"state"`
}

// loginKeyAttempts bounds key re-rolls when a generated session key is already
// live. The keyspace per district is only 3 hex digits; reusing a live key
// would hand one worker another worker's conversation.
const loginKeyAttempts = 16

var errNoFreeSessionKey = errors.New("no free session key for district")

// loginWithFreeKey logs in repeatedly until claim accepts the generated
// session key.
func loginWithFreeKey(ctx context.Context, st store.Store, workerID, district string, claim func(key string) bool) (*identity.Controller, identity.Identity, error) {
	for attempt := 0; attempt < loginKeyAttempts; attempt++ {
		ctrl := identity.NewController(st)
		id, err := ctrl.Login(ctx, workerID, district)
		if err != nil {
			return nil, identity.Identity{}, err
		}
		if claim(id.SessionKey) {
			return ctrl, id, nil
		}
	}
	return nil, identity.Identity{}, errNoFreeSessionKey
}

func (h *Handlers) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid login payload")
	}

	hb := newHub()
	sess := session.New(h.Analyzer, session.Options{
		Policy:      h.Options.Policy,
		MemoryLimit: h.Options.MemoryLimit,
		OnUpdate:    hb.broadcast,
	})

	ctrl, id, err := loginWithFreeKey(c.Request().Context(), h.Store, req.WorkerID, req.DistrictCode, func(key string) bool {
		return h.registry.PutIfAbsent(key, sess)
	})
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, errNoFreeSessionKey) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	h.mu.Lock()
	h.active[id.SessionKey] = &activeSession{ctrl: ctrl, hub: hb}
	h.mu.Unlock()

	return c.JSON(http.StatusOK, loginResponse{Identity: id, State: sess.Snapshot()})
}

func (h *Handlers) lookup(key string) (*session.Session, *activeSession, bool) {
	sess, ok := h.registry.Get(key)
	if !ok {
		return nil, nil, false
	}
	h.mu.Lock()
	act := h.active[key]
	h.mu.Unlock()
	if act == nil {
		return nil, nil, false
	}
	return sess, act, true
}

type stateResponse struct {
	Identity identity.Identity `json:"identity"`
	State    session.Snapshot  `json:"state"`
}

func (h *Handlers) state(c echo.Context) error {
	sess, act, ok := h.lookup(c.Param("key"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}
	id, _ := act.ctrl.Identity()
	return c.JSON(http.StatusOK, stateResponse{Identity: id, State: sess.Snapshot()})
}

type turnRequest struct {
	Audio string `json:"audio"` // base64-encoded payload
	Mime  string `json:"mime"`
}

type turnResponse struct {
	Result *analysis.TurnResult `json:"result"`
	State  session.Snapshot     `json:"state"`
}

func (h *Handlers) turn(c echo.Context) error {
	key := c.Param("key")
	sess, act, ok := h.lookup(key)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}

	var req turnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid turn payload")
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "audio is not valid base64")
	}

	result, err := h.completeTurn(c.Request().Context(), key, sess, act, capture.Segment{Data: audio, MimeType: req.Mime})
	if err != nil {
		return turnError(err)
	}
	return c.JSON(http.StatusOK, turnResponse{Result: result, State: sess.Snapshot()})
}

// completeTurn runs the full turn pipeline: analysis, state merge, identity
// record bookkeeping and RED escalation. Shared by the JSON and websocket
// capture paths.
func (h *Handlers) completeTurn(ctx context.Context, key string, sess *session.Session, act *activeSession, seg capture.Segment) (*analysis.TurnResult, error) {
	before := sess.Effective()
	result, err := sess.RunTurn(ctx, seg)
	if err != nil {
		return nil, err
	}

	if err := act.ctrl.CompleteTurn(ctx, result.Status); err != nil {
		// The turn itself succeeded; record persistence is best-effort.
		log.Printf("persist turn record: %v", err)
	}
	h.maybeEscalate(key, act, before, sess.Effective(), firstOf(result.Rationale))
	return result, nil
}

type overrideRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) override(c echo.Context) error {
	key := c.Param("key")
	sess, act, ok := h.lookup(key)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}
	var req overrideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid override payload")
	}

	before := sess.Effective()
	if err := sess.Override(analysis.Status(req.Status)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.maybeEscalate(key, act, before, sess.Effective(), "human override")
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handlers) clearOverride(c echo.Context) error {
	sess, _, ok := h.lookup(c.Param("key"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}
	sess.ClearOverride()
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handlers) reset(c echo.Context) error {
	sess, _, ok := h.lookup(c.Param("key"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}
	sess.Reset()
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handlers) logout(c echo.Context) error {
	key := c.Param("key")
	_, act, ok := h.lookup(key)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}
	act.ctrl.Logout()
	act.hub.closeAll()
	h.registry.Remove(key)
	h.mu.Lock()
	delete(h.active, key)
	h.mu.Unlock()
	return c.NoContent(http.StatusNoContent)
}

// maybeEscalate fires one alert per transition into RED.
func (h *Handlers) maybeEscalate(key string, act *activeSession, before, after analysis.Status, reason string) {
	if after != analysis.StatusRed || before == analysis.StatusRed {
		return
	}
	id, ok := act.ctrl.Identity()
	if !ok {
		return
	}
	go func() {
		if err := h.Escalator.EscalateRed(key, id.WorkerID, reason); err != nil {
			log.Printf("escalation failed: %v", err)
		}
	}()
}

// turnError maps a turn failure onto the HTTP surface. Every failure leaves
// the session untouched and retryable; only the status code varies.
func turnError(err error) error {
	switch {
	case errors.Is(err, analysis.ErrNoAudio):
		return echo.NewHTTPError(http.StatusBadRequest, "no audio data")
	case errors.Is(err, session.ErrTurnInFlight):
		return echo.NewHTTPError(http.StatusConflict, "a turn is already in flight")
	case errors.Is(err, session.ErrDiscarded):
		return echo.NewHTTPError(http.StatusConflict, "session was reset during analysis")
	case analysis.IsServiceFailure(err), analysis.IsMalformedResponse(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func firstOf(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
