// Package web serves the login and dashboard screens as HTML pages.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/innoguard/internal/middleware"
	"github.com/jwalitptl/innoguard/internal/model"
	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
	"github.com/jwalitptl/innoguard/internal/screen/login"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
	"github.com/jwalitptl/innoguard/pkg/httputil"
	"github.com/jwalitptl/innoguard/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the page templates for gin's HTML renderer.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

type Handler struct {
	registry *Registry
	logger   *logger.Logger
}

func NewHandler(registry *Registry, l *logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}
	return &Handler{registry: registry, logger: l}
}

// RouteOptions carries the middleware the host puts in front of specific
// routes. Nil entries are skipped.
type RouteOptions struct {
	// LoginLimit guards the token exchange.
	LoginLimit gin.HandlerFunc
	// Audit runs on every route that reads patient data.
	Audit gin.HandlerFunc
}

func chain(mw gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{mw, h}
}

// RegisterRoutes mounts the pages.
func (h *Handler) RegisterRoutes(r gin.IRouter, opts RouteOptions) {
	r.GET("/", h.LoginPage)
	r.POST("/role", h.SelectRole)
	r.POST("/login", chain(opts.LoginLimit, h.Login)...)

	patients := r.Group("/patients")
	if opts.Audit != nil {
		patients.Use(opts.Audit)
	}
	{
		patients.GET("", h.Dashboard)
		patients.POST("/next", h.Next)
		patients.POST("/previous", h.Previous)
		patients.GET("/download", h.Download)
	}
}

// RegisterAPIRoutes mounts the JSON view of the dashboard.
func (h *Handler) RegisterAPIRoutes(r gin.IRouter, opts RouteOptions) {
	r.GET("/dashboard", chain(opts.Audit, h.DashboardJSON)...)
}

func (h *Handler) screens(c *gin.Context) *Screens {
	return h.registry.Get(middleware.SessionID(c))
}

func (h *Handler) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, h.screens(c).Login)
}

func (h *Handler) SelectRole(c *gin.Context) {
	screen := h.screens(c).Login
	role, err := model.ParseRole(c.PostForm("role"))
	if err == nil {
		err = screen.SelectRole(role)
	}
	if err != nil {
		_ = c.Error(err)
		h.renderLogin(c, http.StatusBadRequest, screen)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

type navigationKey struct{}

type navigation struct {
	route string
}

// Navigate records where the screen wants to go; the handler turns it into
// a redirect once the screen returns.
func Navigate(ctx context.Context, route string) error {
	if n, ok := ctx.Value(navigationKey{}).(*navigation); ok {
		n.route = route
	}
	return nil
}

func (h *Handler) Login(c *gin.Context) {
	screen := h.screens(c).Login
	if role := c.PostForm("role"); role != "" {
		r, err := model.ParseRole(role)
		if err == nil {
			err = screen.SelectRole(r)
		}
		if err != nil {
			_ = c.Error(err)
			h.renderLogin(c, http.StatusBadRequest, screen)
			return
		}
	}

	nav := &navigation{}
	ctx := context.WithValue(c.Request.Context(), navigationKey{}, nav)
	if err := screen.Login(ctx); err != nil {
		_ = c.Error(err)
		status := httputil.StatusFor(err)
		if errors.Is(err, login.ErrLoginInProgress) {
			status = http.StatusConflict
		}
		h.renderLogin(c, status, screen)
		return
	}
	if nav.route == "" {
		nav.route = login.DashboardRoute
	}
	c.Redirect(http.StatusSeeOther, nav.route)
}

func (h *Handler) renderLogin(c *gin.Context, status int, screen *login.Screen) {
	c.HTML(status, "login.html", screen.View())
}

// pageParam reads ?page=; ok is false when it is absent.
func pageParam(c *gin.Context) (int, bool, error) {
	raw, ok := c.GetQuery("page")
	if !ok || raw == "" {
		return 0, false, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0, false, apperrors.BadRequest("page must be a non-negative integer", err)
	}
	return page, true, nil
}

// load mounts the dashboard, or moves it to the requested page.
func (h *Handler) load(c *gin.Context) (*dashboard.Screen, error) {
	screen := h.screens(c).Dashboard
	page, ok, err := pageParam(c)
	if err != nil {
		return screen, err
	}
	if ok {
		err = screen.SetPage(c.Request.Context(), page)
	} else {
		err = screen.Mount(c.Request.Context())
	}
	if errors.Is(err, dashboard.ErrSuperseded) {
		err = nil
	}
	return screen, err
}

func (h *Handler) Dashboard(c *gin.Context) {
	screen, err := h.load(c)
	if errors.Is(err, apperrors.ErrSessionMissing) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	status := http.StatusOK
	if err != nil {
		_ = c.Error(err)
		status = httputil.StatusFor(err)
	}
	c.HTML(status, "dashboard.html", screen.View())
}

func (h *Handler) DashboardJSON(c *gin.Context) {
	screen, err := h.load(c)
	if err != nil {
		_ = c.Error(err)
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, screen.View())
}

func (h *Handler) Next(c *gin.Context) {
	screen := h.screens(c).Dashboard
	page := screen.Page()
	if screen.CanNext() {
		page++
	}
	c.Redirect(http.StatusSeeOther, "/patients?page="+strconv.Itoa(page))
}

func (h *Handler) Previous(c *gin.Context) {
	screen := h.screens(c).Dashboard
	page := screen.Page()
	if screen.CanPrevious() {
		page--
	}
	c.Redirect(http.StatusSeeOther, "/patients?page="+strconv.Itoa(page))
}

// Download streams the export as an attachment. Headers are only written
// once the backend has answered 2xx; on failure the dashboard is rendered
// in place with the error in its alert banner.
func (h *Handler) Download(c *gin.Context) {
	screen := h.screens(c).Dashboard
	err := screen.DownloadCSV(c.Request.Context(), dashboard.SaverFunc(func(_ context.Context, filename string, r io.Reader) error {
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("Content-Type", "text/csv")
		c.Status(http.StatusOK)
		_, err := io.Copy(c.Writer, r)
		return err
	}))
	if err == nil {
		return
	}
	_ = c.Error(err)
	if c.Writer.Written() {
		// the body was cut short; nothing more can be sent
		return
	}
	c.Writer.Header().Del("Content-Disposition")
	if errors.Is(err, apperrors.ErrSessionMissing) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.Writer.Header().Del("Content-Type")
	c.HTML(httputil.StatusFor(err), "dashboard.html", screen.View())
}
