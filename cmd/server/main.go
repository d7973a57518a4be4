package main

import (
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"conteudo_app_echo/internal/handlers"
	appMiddleware "conteudo_app_echo/internal/middleware"
	"conteudo_app_echo/internal/services"
)

const (
	pollInterval  = 15 * time.Second
	settlingDelay = 2 * time.Second
	sessionTTL    = 24 * time.Hour * 5
)

// TemplateRenderer is a custom html/template renderer for Echo.
// Uses per-page template cloning to allow each page to define its own blocks.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer creates a template renderer with per-page cloning.
func NewTemplateRenderer() *TemplateRenderer {
	templates := make(map[string]*template.Template)

	// Parse base layout as the foundation for page templates.
	baseTemplate := template.Must(template.ParseGlob("web/templates/layouts/*.html"))

	pages, err := filepath.Glob("web/templates/pages/*.html")
	if err != nil {
		log.Fatal(err)
	}

	for _, page := range pages {
		pageName := filepath.Base(page)
		pageTemplate := template.Must(baseTemplate.Clone())
		template.Must(pageTemplate.ParseFiles(page))
		templates[pageName] = pageTemplate
	}

	// Standalone templates (sign-in, sign-up, error) skip the base layout.
	standalonePages, _ := filepath.Glob("web/templates/*.html")
	for _, page := range standalonePages {
		pageName := filepath.Base(page)
		if _, exists := templates[pageName]; !exists {
			templates[pageName] = template.Must(template.ParseFiles(page))
		}
	}

	return &TemplateRenderer{templates: templates}
}

// Render renders a template document.
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}
	if tmpl.Lookup("base") != nil {
		return tmpl.ExecuteTemplate(w, "base", data)
	}
	return tmpl.Execute(w, data)
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Content API base URL
	backendURL := os.Getenv("CONTENT_API_URL")
	if backendURL == "" {
		backendURL = "http://localhost:3000/api"
		log.Printf("CONTENT_API_URL not set, using %s", backendURL)
	}
	backend := services.NewBackendClient(backendURL)

	// Initialize Database (optional; holds checkout audit records)
	var db *gorm.DB
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL != "" {
		var err error
		db, err = services.InitDB(databaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := services.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
	} else {
		log.Println("Warning: DATABASE_URL not set, checkout audit records disabled")
	}

	// Initialize Redis (optional; sessions fall back to memory)
	var cache *services.RedisCache
	var sessions services.SessionStore
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		var err error
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		sessions = services.NewRedisSessionStore(cache, sessionTTL)
	} else {
		log.Println("Warning: REDIS_URL not set, sessions held in memory only")
		sessions = services.NewMemorySessionStore()
	}

	// Stripe verification of checkout success signals (optional)
	verifier := services.NewStripeVerifier(os.Getenv("STRIPE_SECRET_KEY"))
	if !verifier.Enabled() {
		log.Println("Warning: STRIPE_SECRET_KEY not set, checkout success signals are not verified")
	}

	contents := services.NewContentManager(backend, cache, pollInterval)
	checkouts := services.NewCheckoutService(db, verifier, contents, settlingDelay)
	generator := services.NewGenerationService(backend, contents, checkouts, settlingDelay)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Template renderer with per-page cloning
	e.Renderer = NewTemplateRenderer()

	// Static file serving
	e.Static("/static", "web/static")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(backend, sessions, contents, checkouts)
	dashboardHandler := handlers.NewDashboardHandler(os.Getenv("STRIPE_PUBLISHABLE_KEY"))
	contentHandler := handlers.NewContentHandler(contents, generator)
	checkoutHandler := handlers.NewCheckoutHandler(checkouts)

	// When a session dies outside logout, release its resources too.
	teardown := func(sessionID string) {
		contents.Close(sessionID)
		checkouts.CloseSession(sessionID)
	}

	// Public routes
	e.GET("/signin", authHandler.SignInPage)
	e.GET("/signup", authHandler.SignUpPage)
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/cadastro", authHandler.HandleRegister)
	e.POST("/auth/logout", authHandler.HandleLogout)

	// Protected routes
	protected := e.Group("", appMiddleware.RequireSession(sessions, teardown))
	protected.GET("/dashboard", dashboardHandler.Dashboard)
	protected.GET("/conteudo/:id/export.csv", contentHandler.ExportCSV)

	protected.GET("/api/conteudo", contentHandler.List)
	protected.POST("/api/conteudo/gerar", contentHandler.Generate)
	protected.POST("/api/pagamentos/:id/montar", checkoutHandler.Mount)
	protected.POST("/api/pagamentos/:id/concluir", checkoutHandler.Complete)
	protected.POST("/api/pagamentos/:id/fechar", checkoutHandler.Close)

	// Redirect root to dashboard (or sign-in if not authenticated)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/dashboard")
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
