package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SaltyJahmale/week5/internal/httputil"
	"github.com/SaltyJahmale/week5/internal/ledger"
	"github.com/SaltyJahmale/week5/internal/middleware"
)

const maxUploadBytes = 10 << 20

// Handler is one variant's HTTP surface. A trusted handler takes the acting
// user from the verified token context; an untrusted one believes whatever
// user_id the request carries, modeling the attacker-controlled identity
// boundary of the unsafe variant.
type Handler struct {
	engine  *ledger.Engine
	secret  []byte
	log     *zap.Logger
	trusted bool
}

func New(engine *ledger.Engine, secret []byte, log *zap.Logger, trusted bool) *Handler {
	return &Handler{engine: engine, secret: secret, log: log, trusted: trusted}
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) actingUser(r *http.Request) (uint, bool) {
	if h.trusted {
		id, ok := r.Context().Value(middleware.UserIDContextKey).(uint)
		return id, ok
	}
	id, err := strconv.ParseUint(r.FormValue("user_id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrItemNotFound), errors.Is(err, ledger.ErrUserNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrDuplicateUsername):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ledger.ErrInvalidImageType), errors.Is(err, ledger.ErrInvalidInput):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.engine.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]uint{"user_id": id})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident, err := h.engine.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	if !h.trusted {
		// No session on the unsafe side; the caller just learns who the
		// lookup resolved to.
		httputil.WriteJSON(w, http.StatusOK, ident)
		return
	}

	claims := jwt.MapClaims{
		"sub": ident.UserID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		h.log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	rows, err := h.engine.ListPage(r.Context(), page)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid form")
		return
	}
	price, err := decimal.NewFromString(r.FormValue("value"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid value")
		return
	}

	file, header, err := r.FormFile("upload")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "image required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	id, err := h.engine.CreateListing(r.Context(), r.FormValue("name"), price, header.Filename, data, userID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]uint{"item_id": id})
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := strconv.ParseUint(r.FormValue("ItemId"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.engine.Buy(r.Context(), uint(itemID), userID); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Nice buy"})
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.engine.Account(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"username": u.Username,
		"gold":     u.Gold,
	})
}

func (h *Handler) AddGold(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	balance, err := h.engine.GrantGold(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"gold": balance})
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.engine.GenerateItem(r.Context(), userID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]uint{"item_id": id})
}
