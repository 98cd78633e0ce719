// Package api is the HTTP boundary of the mini-app: a thin JSON adapter
// over the deposit service. It owns no business rules beyond payment
// reference screening and admin gating.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mstclabs/mstc-miniapp/internal/auth"
	"github.com/mstclabs/mstc-miniapp/internal/config"
	"github.com/mstclabs/mstc-miniapp/internal/metrics"
	"github.com/mstclabs/mstc-miniapp/internal/middleware"
	"github.com/mstclabs/mstc-miniapp/internal/models"
	"github.com/mstclabs/mstc-miniapp/internal/service"
	"github.com/mstclabs/mstc-miniapp/internal/storage"
)

// simulatedRefPrefix marks payment references accepted without an on-chain
// lookup. Real payment verification replaces this screen.
const simulatedRefPrefix = "SIMTX-"

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	svc      *service.DepositService
	verifier *auth.InitDataVerifier
	jwt      *auth.JWTManager
	cfg      *config.Config
}

// NewHandler creates a Handler with its dependencies.
func NewHandler(svc *service.DepositService, verifier *auth.InitDataVerifier, jwt *auth.JWTManager, cfg *config.Config) *Handler {
	return &Handler{svc: svc, verifier: verifier, jwt: jwt, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// handleAuth verifies Telegram WebApp init data and issues a session token.
func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitData string `json:"init_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InitData == "" {
		writeError(w, http.StatusBadRequest, "init_data required")
		return
	}

	user, err := h.verifier.Verify(req.InitData)
	if err != nil {
		slog.Warn("init data rejected", "error", err)
		writeError(w, http.StatusForbidden, "invalid init data")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		slog.Error("token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	acct, err := h.svc.AccountSnapshot(r.Context(), user.ID, user.Username, user.FirstName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token, "account": acct})
}

// handleMe returns the authenticated account, creating it on first contact.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.AccountSnapshot(r.Context(),
		middleware.GetTelegramID(r.Context()), middleware.GetUsername(r.Context()), "")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "account": acct})
}

// handleDeposit screens the payment reference and runs the deposit contract.
func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    decimal.Decimal `json:"amount"`
		TxHash    string          `json:"tx_hash"`
		SponsorID int64           `json:"sponsor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if !strings.HasPrefix(req.TxHash, simulatedRefPrefix) {
		metrics.DepositsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "payment_not_verified")
		return
	}

	report, err := h.svc.ProcessDeposit(r.Context(), service.DepositInput{
		AccountID:   middleware.GetTelegramID(r.Context()),
		Username:    middleware.GetUsername(r.Context()),
		Amount:      req.Amount,
		ExternalRef: req.TxHash,
		SponsorHint: req.SponsorID,
	})
	if err != nil {
		metrics.DepositsTotal.WithLabelValues("failed").Inc()
		h.writeServiceError(w, err)
		return
	}

	if report.Duplicate {
		metrics.DepositsTotal.WithLabelValues("duplicate").Inc()
	} else {
		metrics.DepositsTotal.WithLabelValues("ok").Inc()
		amount, _ := report.Amount.Float64()
		metrics.DepositAmount.Add(amount)
		if report.BecameActive {
			metrics.ActivationsTotal.Inc()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": report})
}

// handleResetAccount clears an account's ledger state. Admin only.
func (h *Handler) handleResetAccount(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.IsAdmin(middleware.GetTelegramID(r.Context())) {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}

	var req struct {
		AccountID int64 `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "account_id required")
		return
	}

	if err := h.svc.ResetAccount(r.Context(), req.AccountID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"company": models.CompanyAccountID,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		msg := err.Error()
		if i := strings.LastIndex(msg, ": "); i >= 0 {
			msg = msg[i+2:]
		}
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, storage.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "busy, retry")
	case errors.Is(err, service.ErrDataIntegrity):
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		slog.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
