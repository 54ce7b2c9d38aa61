package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"jarvault/config"
	"jarvault/crypto"
	"jarvault/native/jar"
)

type depositParams struct {
	Caller    string       `json:"caller"`
	ProductID string       `json:"productId"`
	Amount    string       `json:"amount"`
	Ticket    *ticketParam `json:"ticket,omitempty"`
	Signature string       `json:"signature,omitempty"`
}

type claimTotalParams struct {
	Caller   string `json:"caller"`
	Detailed bool   `json:"detailed,omitempty"`
}

type withdrawParams struct {
	Caller    string `json:"caller"`
	ProductID string `json:"productId"`
}

type withdrawAllParams struct {
	Caller     string   `json:"caller"`
	ProductIDs []string `json:"productIds,omitempty"`
}

type restakeParams struct {
	Caller        string       `json:"caller"`
	FromProductID string       `json:"fromProductId,omitempty"`
	Amount        string       `json:"amount"`
	Ticket        *ticketParam `json:"ticket"`
	Signature     string       `json:"signature,omitempty"`
}

type resolveTransferParams struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
}

type addressParams struct {
	Address string `json:"address"`
}

type recordScoreParams struct {
	Address               string            `json:"address"`
	TimezoneOffsetMinutes int64             `json:"timezoneOffsetMinutes"`
	Entries               []scoreEntryParam `json:"entries"`
}

type scoreEntryParam struct {
	Score     uint64 `json:"score"`
	Timestamp int64  `json:"timestamp"`
}

type setPenaltyParams struct {
	Address string `json:"address"`
	Applied bool   `json:"applied"`
}

type registerProductParams struct {
	Product config.GenesisProduct `json:"product"`
}

type setEnabledParams struct {
	ProductID string `json:"productId"`
	Enabled   bool   `json:"enabled"`
}

type setPublicKeyParams struct {
	ProductID string `json:"productId"`
	PublicKey string `json:"publicKey"`
}

// ticketParam is the wire form of a deposit authorization.
type ticketParam struct {
	Receiver   string `json:"receiver"`
	ProductID  string `json:"productId"`
	Amount     string `json:"amount"`
	Nonce      uint32 `json:"nonce"`
	ValidUntil int64  `json:"validUntil"`
}

func (p *ticketParam) build() (*jar.DepositTicket, error) {
	if p == nil {
		return nil, nil
	}
	receiver, err := decodeBech32(p.Receiver)
	if err != nil {
		return nil, fmt.Errorf("ticket receiver: %w", err)
	}
	ticket := &jar.DepositTicket{
		Receiver:   receiver,
		ProductID:  jar.ProductID(strings.TrimSpace(p.ProductID)),
		Nonce:      p.Nonce,
		ValidUntil: p.ValidUntil,
	}
	if trimmed := strings.TrimSpace(p.Amount); trimmed != "" {
		amount, ok := new(big.Int).SetString(trimmed, 10)
		if !ok || amount.Sign() < 0 {
			return nil, fmt.Errorf("ticket amount: invalid amount %q", p.Amount)
		}
		ticket.Amount = amount
	}
	return ticket, nil
}

func decodeBech32(addr string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("address is required")
	}
	return crypto.DecodeAddress(trimmed)
}

func parseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

// parseRestakeAmount treats a missing amount as "everything mature": the
// engine sees nil and restakes the full matured total.
func parseRestakeAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

func parseSignature(sig string) ([]byte, error) {
	trimmed := strings.TrimSpace(sig)
	if trimmed == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	return raw, nil
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object: %s", err)
	}
	return nil
}

// writeEngineError maps module sentinel errors onto JSON-RPC error codes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusInternalServerError
	code := codeServerError
	switch {
	case errors.Is(err, jar.ErrAccountNotFound),
		errors.Is(err, jar.ErrProductNotFound),
		errors.Is(err, jar.ErrJarNotFound),
		errors.Is(err, jar.ErrPendingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, jar.ErrJarBusy):
		status = http.StatusConflict
	case errors.Is(err, jar.ErrInvalidAmount),
		errors.Is(err, jar.ErrAmountOutOfCap),
		errors.Is(err, jar.ErrProductDisabled),
		errors.Is(err, jar.ErrProductExists),
		errors.Is(err, jar.ErrInvalidProduct),
		errors.Is(err, jar.ErrTicketRequired),
		errors.Is(err, jar.ErrTicketExpired),
		errors.Is(err, jar.ErrSignatureRequired),
		errors.Is(err, jar.ErrSignatureMismatch),
		errors.Is(err, jar.ErrNonceMismatch),
		errors.Is(err, jar.ErrNothingToRestake),
		errors.Is(err, jar.ErrNotEnoughToRestake),
		errors.Is(err, jar.ErrScoreFromFuture):
		status = http.StatusBadRequest
		code = codeInvalidParams
	}
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) handleDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ticket, err := params.Ticket.build()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	signature, err := parseSignature(params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Deposit(caller, jar.ProductID(strings.TrimSpace(params.ProductID)), amount, ticket, signature); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, depositResult{ProductID: strings.TrimSpace(params.ProductID), Amount: amount.String()})
}

func (s *Server) handleClaimTotal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params claimTotalParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	outcome, err := s.engine.ClaimTotal(caller, params.Detailed)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, outcomeResultFrom(outcome))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params withdrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	outcome, err := s.engine.Withdraw(caller, jar.ProductID(strings.TrimSpace(params.ProductID)))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, outcomeResultFrom(outcome))
}

func (s *Server) handleWithdrawAll(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params withdrawAllParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	ids := make([]jar.ProductID, 0, len(params.ProductIDs))
	for _, id := range params.ProductIDs {
		ids = append(ids, jar.ProductID(strings.TrimSpace(id)))
	}
	outcome, err := s.engine.WithdrawAll(caller, ids)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, outcomeResultFrom(outcome))
}

func (s *Server) handleRestake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params restakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, amount, ticket, signature, ok := s.restakeArgs(w, req, &params)
	if !ok {
		return
	}
	outcome, err := s.engine.Restake(caller, jar.ProductID(strings.TrimSpace(params.FromProductID)), ticket, signature, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, outcomeResultFrom(outcome))
}

func (s *Server) handleRestakeAll(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params restakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, amount, ticket, signature, ok := s.restakeArgs(w, req, &params)
	if !ok {
		return
	}
	outcome, err := s.engine.RestakeAll(caller, ticket, signature, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, outcomeResultFrom(outcome))
}

func (s *Server) restakeArgs(w http.ResponseWriter, req *RPCRequest, params *restakeParams) (crypto.Address, *big.Int, *jar.DepositTicket, []byte, bool) {
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return crypto.Address{}, nil, nil, nil, false
	}
	amount, err := parseRestakeAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return crypto.Address{}, nil, nil, nil, false
	}
	ticket, err := params.Ticket.build()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return crypto.Address{}, nil, nil, nil, false
	}
	signature, err := parseSignature(params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return crypto.Address{}, nil, nil, nil, false
	}
	return caller, amount, ticket, signature, true
}

func (s *Server) handleResolveTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params resolveTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	requestID := strings.TrimSpace(params.RequestID)
	if requestID == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "requestId is required", nil)
		return
	}
	// The vault intent is in-memory only; a missing one after a restart is
	// not a reason to refuse settlement of the persisted transfer.
	if s.vault != nil {
		if _, err := s.vault.Take(requestID); err != nil {
			s.log.Warn("no vault intent for transfer", "requestId", requestID)
		}
	}
	resolution, err := s.engine.ResolveTransfer(requestID, params.Success)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, resolutionResultFrom(resolution))
}

func (s *Server) handleGetJars(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	views, err := s.engine.GetJars(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	out := make([]jarEntryResult, 0, len(views))
	for _, v := range views {
		out = append(out, jarEntryResult{
			ProductID:       string(v.ProductID),
			Principal:       bigString(v.Principal),
			DepositCount:    v.DepositCount,
			PendingWithdraw: v.PendingWithdraw,
			Claimed:         bigString(v.Claimed),
			CachedInterest:  bigString(v.CachedInterest),
		})
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleGetTotalInterest(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	view, err := s.engine.GetTotalInterest(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	result := interestResult{Total: bigString(view.Total), ByProduct: make(map[string]string, len(view.ByProduct))}
	for id, amount := range view.ByProduct {
		result.ByProduct[string(id)] = bigString(amount)
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	products, err := s.registry.List()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	out := make([]productResult, 0, len(products))
	for _, p := range products {
		out = append(out, productResultFrom(p))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleRecordScore(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params recordScoreParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	batch := make([]jar.ScoreEntry, 0, len(params.Entries))
	for _, entry := range params.Entries {
		batch = append(batch, jar.ScoreEntry{Score: entry.Score, Timestamp: entry.Timestamp})
	}
	if err := s.engine.RecordScore(addr, params.TimezoneOffsetMinutes, batch); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, recordScoreResult{Submitted: len(batch)})
}

func (s *Server) handleSetPenalty(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setPenaltyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeBech32(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	if err := s.engine.SetPenalty(addr, params.Applied); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusResult{Status: "ok"})
}

func (s *Server) handleRegisterProduct(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerProductParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	product, err := params.Product.Build()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.registry.Register(product); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, productResultFrom(product))
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setEnabledParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.registry.SetEnabled(jar.ProductID(strings.TrimSpace(params.ProductID)), params.Enabled); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusResult{Status: "ok"})
}

func (s *Server) handleSetPublicKey(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setPublicKeyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(params.PublicKey), "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid public key encoding", err.Error())
		return
	}
	if err := s.registry.SetPublicKey(jar.ProductID(strings.TrimSpace(params.ProductID)), raw); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, statusResult{Status: "ok"})
}
