package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/SaltyJahmale/week5/internal/handlers"
	appmw "github.com/SaltyJahmale/week5/internal/middleware"
)

// New mounts both variants side by side. The /safe tree runs the bound
// strategy behind JWT auth; the /unsafe tree runs the interpolated strategy
// with no auth at all.
func New(safe, unsafe *handlers.Handler, secret []byte) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Works Fine!"))
	})

	r.Route("/safe", func(sr chi.Router) {
		sr.Post("/signup", safe.Signup)
		sr.Post("/login", safe.Login)

		sr.Group(func(pr chi.Router) {
			pr.Use(appmw.Authenticated(secret))
			pr.Get("/dashboard", safe.Dashboard)
			pr.Post("/profile", safe.Upload)
			pr.Post("/buy", safe.Buy)
			pr.Get("/account", safe.Account)
			pr.Post("/add_gold", safe.AddGold)
			pr.Post("/create_item", safe.CreateItem)
		})
	})

	r.Route("/unsafe", func(ur chi.Router) {
		ur.Post("/signup", unsafe.Signup)
		ur.Post("/login", unsafe.Login)
		ur.Get("/dashboard", unsafe.Dashboard)
		ur.Post("/profile", unsafe.Upload)
		ur.Post("/buy", unsafe.Buy)
		ur.Get("/account", unsafe.Account)
		ur.Post("/add_gold", unsafe.AddGold)
		ur.Post("/create_item", unsafe.CreateItem)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
