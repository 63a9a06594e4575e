package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spidr/estimate-form/pkg/models"
	"github.com/spidr/estimate-form/pkg/particles"
	"github.com/spidr/estimate-form/pkg/services"
)

// SessionCookie carries the visitor's form session id
const SessionCookie = "form_session"

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	store      *services.SessionStore
	background *particles.Engine
	logger     *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(store *services.SessionStore, background *particles.Engine, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		store:      store,
		background: background,
		logger:     logger,
	}
}

type changeRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
	// Seq orders a page's edits; zero means unsequenced
	Seq uint64 `json:"seq"`
}

type fieldView struct {
	models.FieldSpec
	Value string
}

type pageData struct {
	Fields  []fieldView
	Form    models.FormView
	Notice  string
	Message string
	Error   string
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Index renders the form page
func (h *Handlers) Index(c *gin.Context) {
	session := h.session(c)
	h.renderPage(c, http.StatusOK, session.Snapshot(), "")
}

// GetForm returns the session's current state
func (h *Handlers) GetForm(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).Snapshot())
}

// ChangeField applies one input event and returns the normalized state
func (h *Handlers) ChangeField(c *gin.Context) {
	var req changeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	session := h.session(c)
	var err error
	if req.Seq > 0 {
		err = session.ChangeAt(req.Seq, req.Field, req.Value)
	} else {
		err = session.Change(req.Field, req.Value)
	}
	switch {
	case errors.Is(err, services.ErrStaleChange):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "form": session.Snapshot()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// TogglePIN flips PIN visibility
func (h *Handlers) TogglePIN(c *gin.Context) {
	session := h.session(c)
	session.TogglePIN()
	c.JSON(http.StatusOK, session.Snapshot())
}

// Submit logs and resets the session's form
func (h *Handlers) Submit(c *gin.Context) {
	session := h.session(c)

	record, err := session.Submit(c.Request.Context())
	if err != nil {
		status := submitStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Error submitting form", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error(), "form": session.Snapshot()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": models.SuccessMessage,
		"record":  record,
		"form":    session.Snapshot(),
	})
}

// SubmitForm handles the plain HTML form post used when scripts are off
func (h *Handlers) SubmitForm(c *gin.Context) {
	var raw models.RawSubmission
	if err := c.ShouldBind(&raw); err != nil {
		c.String(http.StatusBadRequest, "Error reading form")
		return
	}

	session := h.session(c)
	if _, err := services.ProcessSubmission(c.Request.Context(), session, raw); err != nil {
		status := submitStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Error submitting form", zap.Error(err))
		}
		h.renderPage(c, status, session.Snapshot(), err.Error())
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// Particles serves the background configuration
func (h *Handlers) Particles(c *gin.Context) {
	if _, err := h.background.Init(); err != nil {
		h.logger.Warn("Using default particles config", zap.Error(err))
	}
	payload, err := h.background.JSON()
	if err != nil {
		h.logger.Error("Error serving particles config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Particles config unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *Handlers) session(c *gin.Context) *services.Session {
	cookie, _ := c.Cookie(SessionCookie)
	id, session := h.store.Get(cookie)
	if id != cookie {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
	}
	return session
}

func (h *Handlers) renderPage(c *gin.Context, status int, view models.FormView, errMsg string) {
	data := pageData{
		Form:   view,
		Notice: models.SuccessMessage,
		Error:  errMsg,
	}
	if view.Submitted {
		data.Message = models.SuccessMessage
	}

	for _, spec := range models.FormFields {
		fv := fieldView{FieldSpec: spec}
		switch spec.ID {
		case models.FieldFirstName:
			fv.Value = view.Record.FirstName
		case models.FieldLastName:
			fv.Value = view.Record.LastName
		case models.FieldContact:
			fv.Value = view.Record.Contact
		case models.FieldEmail:
			fv.Value = view.Record.Email
		case models.FieldEstimate:
			fv.Value = strconv.FormatFloat(view.Record.Estimate, 'f', -1, 64)
		case models.FieldSpidrPin:
			fv.Value = view.Record.SpidrPin
			fv.InputType = view.PinInputType
		}
		data.Fields = append(data.Fields, fv)
	}

	c.HTML(status, "index.html.tmpl", data)
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrPINRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnknownField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
