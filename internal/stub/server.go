package stub

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type ctxKey struct{}

// Server serves the banking API endpoints the CLI consumes.
type Server struct {
	bank   *Bank
	tokens *TokenIssuer
	judge  Judge
	logger *slog.Logger
	// UnsafeRatio is the share of the sender balance above which the
	// safety check flags a transfer.
	UnsafeRatio decimal.Decimal
}

// NewServer wires a bank, token issuer and scam judge.
func NewServer(bank *Bank, tokens *TokenIssuer, judge Judge, logger *slog.Logger) *Server {
	if judge == nil {
		judge = NewKeywordJudge()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		bank:        bank,
		tokens:      tokens,
		judge:       judge,
		logger:      logger,
		UnsafeRatio: decimal.NewFromFloat(0.5),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/bank-accounts/lookup/{number}", s.handleLookup).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id:[0-9]+}", s.handleGetAccount).Methods(http.MethodGet)
	api.HandleFunc("/safety-check", s.handleSafetyCheck).Methods(http.MethodPost)
	api.HandleFunc("/scam-check", s.handleScamCheck).Methods(http.MethodPost)
	api.HandleFunc("/transfers", s.handleTransfer).Methods(http.MethodPost)
	api.HandleFunc("/transfer/internal", s.handleInternalTransfer).Methods(http.MethodPost)

	return r
}

// Serve runs the API on addr until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := s.httpServer(addr)
	return s.run(ctx, srv, "http", srv.ListenAndServe)
}

// ServeTLS is Serve over HTTPS with cert.
func (s *Server) ServeTLS(ctx context.Context, addr string, cert tls.Certificate) error {
	srv := s.httpServer(addr)
	srv.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return s.run(ctx, srv, "https", func() error { return srv.ListenAndServeTLS("", "") })
}

func (s *Server) httpServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) run(ctx context.Context, srv *http.Server, scheme string, listen func() error) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stub bank API listening", "addr", srv.Addr, "scheme", scheme)
		errCh <- listen()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, err := s.tokens.Authenticate(token)
		if err != nil || !s.bank.HasUser(userID) {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func userFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := s.bank.Authenticate(req.Username, req.Password)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	s.issue(w, user.ID)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	access, refresh, err := s.tokens.Refresh(req.RefreshToken)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

func (s *Server) issue(w http.ResponseWriter, userID int64) {
	access, refresh, err := s.tokens.Issue(userID)
	if err != nil {
		s.logger.Error("failed to issue tokens", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Could not issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

func toAPIAccount(a Account) bankapi.Account {
	return bankapi.Account{
		ID:            a.ID,
		UserID:        a.UserID,
		AccountNumber: a.AccountNumber,
		AccountType:   a.AccountType,
		Balance:       a.Balance,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := s.bank.Accounts(userFrom(r))
	out := make([]bankapi.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAPIAccount(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid account id")
		return
	}
	account, err := s.bank.OwnedAccount(userFrom(r), id)
	if err != nil {
		s.writeBankError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIAccount(account))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	account, user, err := s.bank.Lookup(mux.Vars(r)["number"])
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Account not found. Please check the account number.")
		return
	}
	writeJSON(w, http.StatusOK, bankapi.AccountLookup{
		Exists:            true,
		AccountNumber:     account.AccountNumber,
		AccountHolderName: user.FullName,
		AccountType:       account.AccountType,
	})
}

func (s *Server) handleSafetyCheck(w http.ResponseWriter, r *http.Request) {
	var req bankapi.SafetyCheckRequest
	if !decode(w, r, &req) {
		return
	}
	amount := req.DecimalAmount()
	if !amount.IsPositive() {
		writeDetail(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	sender, err := s.bank.OwnedAccount(userFrom(r), req.SenderAccountID)
	if err != nil {
		writeDetail(w, http.StatusForbidden, "Invalid sender account")
		return
	}

	flagged := req.ReceiverAccountNumber != nil && s.bank.ReceiverFlagged(*req.ReceiverAccountNumber)
	writeJSON(w, http.StatusOK, s.assess(amount, sender.Balance, flagged))
}

// assess scores a transfer by the share of the balance it moves. The
// confidence is reported the way the production model phrases it.
func (s *Server) assess(amount, balance decimal.Decimal, flagged bool) model.MLVerdict {
	ratio := decimal.NewFromInt(1)
	if balance.IsPositive() {
		ratio = decimal.Min(amount.Div(balance), decimal.NewFromInt(1))
	}

	safe := !flagged && ratio.LessThanOrEqual(s.UnsafeRatio)
	var probability decimal.Decimal
	switch {
	case flagged:
		probability = decimal.NewFromFloat(0.97)
	case safe:
		probability = decimal.NewFromInt(1).Sub(ratio.Div(decimal.NewFromInt(2)))
	default:
		probability = decimal.NewFromFloat(0.5).Add(ratio.Div(decimal.NewFromInt(2)))
	}

	outcome := "is safe"
	if !safe {
		outcome = "may be fraudulent"
	}
	message := fmt.Sprintf("Transaction %s (confidence: %s%%)", outcome, probability.Mul(decimal.NewFromInt(100)).StringFixed(2))
	if flagged {
		message += " (Destination account flagged for fraud checking)"
	}
	return model.MLVerdict{IsSafe: safe, Message: message}
}

func (s *Server) handleScamCheck(w http.ResponseWriter, r *http.Request) {
	var req bankapi.ScamCheckRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeDetail(w, http.StatusBadRequest, "Input is required")
		return
	}

	success := true
	verdict, err := s.judge.Judge(r.Context(), req.Input)
	if err != nil {
		s.logger.Warn("scam judge failed", "error", err)
		success = false
		writeJSON(w, http.StatusOK, bankapi.ScamCheckResponse{Success: &success, Error: "Could not determine a verdict"})
		return
	}
	writeJSON(w, http.StatusOK, bankapi.ScamCheckResponse{Success: &success, Verdict: verdict})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req bankapi.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.EqualFold(req.ReceiverBank, InternalBank) {
		writeDetail(w, http.StatusBadRequest, "Use /api/transfer/internal for VigiPay accounts")
		return
	}

	rec := TransferRecord{
		ReceiverAccountNumber: req.ReceiverAccountNumber,
		ReceiverBank:          req.ReceiverBank,
		ReceiverName:          req.ReceiverName,
		FeePayer:              string(req.FeePayer),
		Amount:                decimal.NewFromFloat(req.Amount),
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}

	done, sender, err := s.bank.SendExternal(userFrom(r), req.SenderAccountID, rec)
	if err != nil {
		s.writeBankError(w, err)
		return
	}

	name, desc := done.ReceiverName, done.Description
	transfer := bankapi.Transfer{
		ID:                    done.ID,
		SenderAccountID:       done.SenderAccountID,
		SenderAccountNumber:   sender.AccountNumber,
		ReceiverAccountNumber: done.ReceiverAccountNumber,
		ReceiverBank:          done.ReceiverBank,
		ReceiverName:          &name,
		Amount:                done.Amount,
		Fee:                   done.Fee,
		FeePayer:              bankapi.FeePayer(done.FeePayer),
		Status:                "completed",
		CreatedAt:             done.CreatedAt,
	}
	if desc != "" {
		transfer.Description = &desc
	}
	writeJSON(w, http.StatusCreated, transfer)
}

func (s *Server) handleInternalTransfer(w http.ResponseWriter, r *http.Request) {
	var req bankapi.InternalTransferRequest
	if !decode(w, r, &req) {
		return
	}

	amount := decimal.NewFromFloat(req.Amount)
	done, sender, receiver, err := s.bank.SendInternal(userFrom(r), req.SenderAccountID,
		req.ReceiverAccountNumber, amount, req.Description, string(req.FeePayer))
	if err != nil {
		s.writeBankError(w, err)
		return
	}

	received := done.Amount
	if done.FeePayer == string(bankapi.FeePayerReceiver) {
		received = received.Sub(done.Fee)
	}
	writeJSON(w, http.StatusCreated, bankapi.InternalTransferResult{
		Success:            true,
		Message:            "Transfer completed successfully",
		TransferID:         done.ID,
		ReceiverName:       done.ReceiverName,
		AmountSent:         done.Amount,
		AmountReceived:     received,
		Fee:                done.Fee,
		SenderNewBalance:   sender.Balance,
		ReceiverNewBalance: receiver.Balance,
	})
}

func (s *Server) writeBankError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Sender account not found or unauthorized")
	case errors.Is(err, ErrAccountNotFound):
		writeDetail(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, ErrInsufficientFunds):
		writeDetail(w, http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, ErrInvalidTransfer):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("unexpected bank error", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
