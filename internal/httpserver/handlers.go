package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"lv-marginfx/internal/apperr"
	"lv-marginfx/internal/httputil"
	"lv-marginfx/internal/instruments"
	"lv-marginfx/internal/trading"
	"lv-marginfx/internal/types"
	"lv-marginfx/internal/wallets"

	"github.com/shopspring/decimal"
)

type Handler struct {
	trading    *trading.Service
	wallets    *wallets.Service
	production bool
	log        *slog.Logger
}

func NewHandler(tradingSvc *trading.Service, walletSvc *wallets.Service, production bool, log *slog.Logger) *Handler {
	return &Handler{trading: tradingSvc, wallets: walletSvc, production: production, log: log}
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if httputil.StatusOf(err) >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	httputil.WriteError(w, err, h.production)
}

type executeOrderRequest struct {
	WalletID   string          `json:"walletId"`
	Instrument string          `json:"symbol"`
	Type       int             `json:"type"`
	Volume     decimal.Decimal `json:"volume"`
	Price      decimal.Decimal `json:"price"`
	SL         decimal.Decimal `json:"sl"`
	TP         decimal.Decimal `json:"tp"`
	OneClick   bool            `json:"oneClick"`
}

func (h *Handler) ExecuteOrder(w http.ResponseWriter, r *http.Request, userID string) {
	var req executeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, apperr.New(apperr.KindInvalid, "invalid request body"))
		return
	}
	if req.WalletID == "" {
		h.writeErr(w, r, apperr.New(apperr.KindInvalid, "walletId is required"))
		return
	}
	res, err := h.trading.ExecuteOrder(r.Context(), userID, req.WalletID, trading.OrderRequest{
		Instrument: req.Instrument,
		Type:       req.Type,
		Volume:     req.Volume,
		Price:      req.Price,
		SL:         req.SL,
		TP:         req.TP,
		OneClick:   req.OneClick,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

type closePositionRequest struct {
	WalletID string          `json:"walletId"`
	Volume   decimal.Decimal `json:"volume"`
}

func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request, userID, positionID string) {
	var req closePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, apperr.New(apperr.KindInvalid, "invalid request body"))
		return
	}
	if req.WalletID == "" {
		h.writeErr(w, r, apperr.New(apperr.KindInvalid, "walletId is required"))
		return
	}
	res, err := h.trading.ClosePosition(r.Context(), userID, req.WalletID, positionID, trading.CloseRequest{
		Volume: req.Volume,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) OpenPositions(w http.ResponseWriter, r *http.Request, userID string) {
	views, err := h.trading.OpenPositions(r.Context(), userID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"positions": views})
}

// History accepts an optional window as epoch milliseconds; the default
// is the last 30 days.
func (h *Handler) History(w http.ResponseWriter, r *http.Request, userID string) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if raw := r.URL.Query().Get("from"); raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeErr(w, r, apperr.New(apperr.KindInvalid, "invalid from"))
			return
		}
		from = time.UnixMilli(millis).UTC()
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeErr(w, r, apperr.New(apperr.KindInvalid, "invalid to"))
			return
		}
		to = time.UnixMilli(millis).UTC()
	}
	rows, err := h.trading.History(r.Context(), userID, from, to)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"deals": rows})
}

type createWalletRequest struct {
	Type types.WalletType `json:"type"`
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request, userID string) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, apperr.New(apperr.KindInvalid, "invalid request body"))
		return
	}
	wallet, err := h.wallets.Create(r.Context(), userID, req.Type)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, wallet)
}

func (h *Handler) WalletByType(w http.ResponseWriter, r *http.Request, userID, walletType string) {
	wallet, err := h.wallets.ByType(r.Context(), userID, types.WalletType(walletType))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wallet)
}

func (h *Handler) Instruments(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"symbols": instruments.Symbols()})
}
