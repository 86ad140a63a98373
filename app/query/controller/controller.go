package controller

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lunavault/saleflow/app/query/types"
	"github.com/lunavault/saleflow/pkg/utils"
)

type Controller struct {
	App        *types.App
	AdminToken string
	Users      map[string]types.User
	JWTSecret  []byte
	feed       *liveFeed
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	adminToken := utils.Env("ADMIN_TOKEN", "devtoken")
	adminUser := utils.Env("ADMIN_USER", "admin")
	adminUsersJSON := utils.Env("ADMIN_USERS", "")
	adminPass := utils.Env("ADMIN_PASSWORD", "admin")
	jwtSecret := []byte(utils.Env("SESSION_SECRET", "change-me-please"))

	phash, _ := utils.HashOrRead(adminPass)
	users := map[string]types.User{}
	users[adminUser] = types.User{Username: adminUser, Hash: phash, Role: "admin"}
	if adminUsersJSON != "" {
		_ = json.Unmarshal([]byte(adminUsersJSON), &users)
	}

	return &Controller{
		App:        app,
		AdminToken: adminToken,
		Users:      users,
		JWTSecret:  jwtSecret,
		feed:       newLiveFeed(app),
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")

	r.HandleFunc("/campaign/stats", c.HandleCampaignStats).Methods("GET")
	r.HandleFunc("/ws", c.HandleWebSocket).Methods("GET")

	r.HandleFunc("/auth/login", c.HandleAdminLogin).Methods("POST")
	r.HandleFunc("/auth/logout", c.HandleAdminLogout).Methods("POST")

	r.Handle("/campaign/settings", c.RequireAuth(http.HandlerFunc(c.HandleGetSettings))).Methods("GET")
	r.Handle("/campaign/settings", c.RequireAuth(http.HandlerFunc(c.HandleSaveSettings))).Methods("PUT")

	r.Handle("/investors", c.RequireAuth(http.HandlerFunc(c.HandleRegisterInvestor))).Methods("POST")
	r.Handle("/investors/{email}", c.RequireAuth(http.HandlerFunc(c.HandleGetInvestor))).Methods("GET")
	r.Handle("/investors/{email}/transactions", c.RequireAuth(http.HandlerFunc(c.HandleListTransactions))).Methods("GET")

	r.Handle("/refunds", c.RequireAuth(http.HandlerFunc(c.HandleListRefunds))).Methods("GET")

	return r, nil
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodPut+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
