package dashboard

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/config"
	"github.com/maanas1234/Celestia-Hackathon/handlers"
	"github.com/maanas1234/Celestia-Hackathon/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

type alertCard struct {
	AlertText  string
	Timestamp  string
	MenCount   int
	WomenCount int
	ImageURL   string
}

type pageData struct {
	Title          string
	RefreshSeconds int
	Username       string
	Error          string
	Success        string
	Signup         bool
	Alerts         []alertCard
	SocketURL      string
}

// Server renders the dashboard pages.
type Server struct {
	Cfg      config.DashboardConfig
	Users    *UserStore
	Sessions *SessionManager
	Backend  *BackendClient
	Log      *zap.SugaredLogger

	tmpl *template.Template
}

func NewServer(cfg config.DashboardConfig, users *UserStore, sessions *SessionManager, backend *BackendClient, log *zap.SugaredLogger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		Cfg:      cfg,
		Users:    users,
		Sessions: sessions,
		Backend:  backend,
		Log:      log,
		tmpl:     tmpl,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logging.StdLogger(s.Log), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.With(s.Sessions.Require).Get("/", s.Alerts)
	r.Get("/login", s.LoginPage)
	r.Post("/login", s.Login)
	r.Get("/signup", s.SignupPage)
	r.Post("/signup", s.Signup)
	r.Post("/logout", s.Logout)
	return r
}

// Alerts renders the latest alerts. A failed fetch is shown inline and the
// list is rendered empty.
func (s *Server) Alerts(w http.ResponseWriter, r *http.Request) {
	username, _ := handlers.UserFromContext(r.Context())
	data := pageData{
		Title:          "Women Safety Admin Dashboard",
		RefreshSeconds: int(s.Cfg.RefreshInterval / time.Second),
		Username:       username,
		SocketURL:      s.Backend.AlertsSocketURL(),
	}

	alerts, err := s.Backend.Latest(r.Context(), s.Cfg.AlertLimit)
	if err != nil {
		s.Log.Warnf("dashboard: %v", err)
		data.Error = "Cannot fetch alerts. Check backend URL. (" + err.Error() + ")"
	}
	for _, a := range alerts {
		data.Alerts = append(data.Alerts, alertCard{
			AlertText:  a.AlertText,
			Timestamp:  a.Timestamp,
			MenCount:   a.MenCount,
			WomenCount: a.WomenCount,
			ImageURL:   s.Backend.ImageURL(a.ImageURL),
		})
	}
	s.render(w, http.StatusOK, "alerts", data)
}

func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", pageData{Title: "Women Safety Admin Login"})
}

func (s *Server) SignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", pageData{Title: "Women Safety Admin Signup", Signup: true})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	username, password := strings.TrimSpace(r.PostFormValue("username")), r.PostFormValue("password")
	data := pageData{Title: "Women Safety Admin Login", Username: username}

	if err := s.Users.Authenticate(username, password); err != nil {
		data.Error = capitalize(err.Error())
		status := http.StatusUnauthorized
		if errors.Is(err, ErrMissingCredentials) {
			status = http.StatusBadRequest
		}
		s.render(w, status, "login", data)
		return
	}

	if err := s.Sessions.Issue(w, username); err != nil {
		s.Log.Errorf("dashboard: %v", err)
		data.Error = "Could not start a session, please retry."
		s.render(w, http.StatusInternalServerError, "login", data)
		return
	}
	s.Log.Infof("dashboard: %s logged in", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	username, password := strings.TrimSpace(r.PostFormValue("username")), r.PostFormValue("password")

	if err := s.Users.SignUp(username, password); err != nil {
		data := pageData{Title: "Women Safety Admin Signup", Signup: true, Username: username}
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrUserExists):
			status = http.StatusConflict
			data.Error = "Username already exists"
		case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrPasswordTooLong):
			data.Error = capitalize(err.Error())
		default:
			s.Log.Errorf("dashboard: signup failed: %v", err)
			status = http.StatusInternalServerError
			data.Error = "Signup failed, please retry."
		}
		s.render(w, status, "login", data)
		return
	}

	s.render(w, http.StatusOK, "login", pageData{
		Title:    "Women Safety Admin Login",
		Success:  "Signup successful! Please login.",
		Username: username,
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.Log.Errorf("dashboard: failed to render %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.Log.Debugf("dashboard: write %s: %v", name, err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
