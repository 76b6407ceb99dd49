package pages

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/tendant/farmgate/internal/http/middleware"
	"github.com/tendant/farmgate/pkg/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page templates, each rendered inside layout.html.
const (
	pageRegister       = "register.html"
	pageLogin          = "login.html"
	pageForgotPassword = "forgot-password.html"
	pageResetConfirm   = "reset-password-confirm.html"
	pageDriverBadge    = "driver-badge.html"
)

// Handler handles portal page rendering.
type Handler struct {
	templates map[string]*template.Template
	guards    func(deviceID string) auth.AttemptGuard
	policy    *auth.PasswordPolicy
}

// NewHandler parses the embedded page templates. guards gives the login page
// the device's lock state; policy supplies the password hint.
func NewHandler(guards func(deviceID string) auth.AttemptGuard, policy *auth.PasswordPolicy) (*Handler, error) {
	pages := []string{pageRegister, pageLogin, pageForgotPassword, pageResetConfirm, pageDriverBadge}

	h := &Handler{
		templates: make(map[string]*template.Template, len(pages)),
		guards:    guards,
		policy:    policy,
	}
	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		h.templates[page] = tmpl
	}
	return h, nil
}

// PageData holds data for template rendering.
type PageData struct {
	Title                string
	PasswordRequirements string

	// Login page lock state.
	Locked       bool
	RetryAfter   int
	AttemptsLeft int
}

// Register renders the registration page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageRegister, PageData{Title: "Register", PasswordRequirements: h.requirements()})
}

// Login renders the login page. A locked device gets disabled inputs and a
// countdown seeded with the remaining seconds.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Login"}
	if h.guards != nil {
		id, _ := middleware.GetDeviceID(r.Context())
		status := h.guards(id).CheckLock(r.Context())
		data.Locked = status.Locked
		data.RetryAfter = status.Seconds()
		data.AttemptsLeft = status.AttemptsLeft
	}
	h.render(w, pageLogin, data)
}

// ForgotPassword renders the password reset request page.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageForgotPassword, PageData{Title: "Forgot Password"})
}

// ResetPasswordConfirm renders the page the recovery link lands on.
func (h *Handler) ResetPasswordConfirm(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageResetConfirm, PageData{Title: "Set New Password", PasswordRequirements: h.requirements()})
}

// DriverBadge renders the driver badge application form.
func (h *Handler) DriverBadge(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageDriverBadge, PageData{Title: "Driver Badge Application"})
}

func (h *Handler) requirements() string {
	if h.policy == nil {
		return ""
	}
	return h.policy.GetRequirements()
}

func (h *Handler) render(w http.ResponseWriter, page string, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates[page].ExecuteTemplate(w, "layout", data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
