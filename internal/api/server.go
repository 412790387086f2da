// Package api exposes the engine over HTTP: read-only views plus a signed
// transaction endpoint.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"presence_dao/contract"
	"presence_dao/internal/notify"
	"presence_dao/sdk"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

type Server struct {
	engine    *contract.Engine
	publisher notify.Publisher
	logger    *zap.Logger
	now       func() time.Time
	verifier  *verifier
}

type Option func(*Server)

func WithPublisher(p notify.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces the wall clock used for tx timestamps and token checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithMaxTokenAge(d time.Duration) Option {
	return func(s *Server) { s.verifier.maxAge = d }
}

func NewServer(engine *contract.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		publisher: notify.Nop{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	s.verifier = newVerifier(5*time.Minute, func() time.Time { return s.now() })
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRouter returns the router with every route registered.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.HandleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/state", s.HandleState).Methods(http.MethodGet)
	r.HandleFunc("/api/members", s.HandleMembers).Methods(http.MethodGet)
	r.HandleFunc("/api/members/{address}", s.HandleMember).Methods(http.MethodGet)
	r.HandleFunc("/api/members/{address}/power", s.HandleMemberPower).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.HandleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{id}", s.HandleEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{id}/registrations", s.HandleRegistrations).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{id}/registrations/{address}", s.HandleRegistration).Methods(http.MethodGet)
	r.HandleFunc("/api/proposals", s.HandleProposals).Methods(http.MethodGet)
	r.HandleFunc("/api/proposals/{id}", s.HandleProposal).Methods(http.MethodGet)
	r.HandleFunc("/api/proposals/{id}/votes/{address}", s.HandleVote).Methods(http.MethodGet)
	r.HandleFunc("/api/accounts/{kind}", s.HandleAccount).Methods(http.MethodGet)

	r.HandleFunc("/api/tx", s.HandleTx).Methods(http.MethodPost)
	return r
}

// -----------------------------------------------------------------------------
// Responses
// -----------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a contract error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case "NotFound":
		return http.StatusNotFound
	case "Unauthorized", "UnauthorizedMembership":
		return http.StatusForbidden
	case "InvalidInput":
		return http.StatusBadRequest
	case "ArithmeticOverflow":
		return http.StatusUnprocessableEntity
	case "Internal":
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := contract.Code(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func pathID(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Join(contract.ErrInvalidInput, err)
	}
	return id, nil
}

func pathAddress(r *http.Request) (sdk.Address, error) {
	addr, err := sdk.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		return "", errors.Join(contract.ErrInvalidInput, err)
	}
	return addr, nil
}

// -----------------------------------------------------------------------------
// Views
// -----------------------------------------------------------------------------

func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "program_id": s.engine.ProgramID()})
}

func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.State(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) HandleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.engine.Members(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) HandleMember(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, err := s.engine.Member(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) HandleMemberPower(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	power, err := s.engine.MemberVotingPower(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr.String(), "voting_power": power.String()})
}

func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.engine.Events(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ev, err := s.engine.Event(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) HandleRegistrations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	regs, err := s.engine.Registrations(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (s *Server) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	reg, err := s.engine.Registration(r.Context(), id, addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) HandleProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.engine.Proposals(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (s *Server) HandleProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	prpsl, err := s.engine.Proposal(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prpsl)
}

func (s *Server) HandleVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	addr, err := pathAddress(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.engine.Vote(r.Context(), id, addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleAccount derives a record address. Query: id, owner.
func (s *Server) HandleAccount(w http.ResponseWriter, r *http.Request) {
	kind := contract.AccountKind(mux.Vars(r)["kind"])
	var id uint64
	if raw := r.URL.Query().Get("id"); raw != "" {
		var err error
		if id, err = strconv.ParseUint(raw, 10, 64); err != nil {
			s.writeError(w, errors.Join(contract.ErrInvalidInput, err))
			return
		}
	}
	owner := sdk.Address(r.URL.Query().Get("owner"))
	addr, err := s.engine.DeriveAddress(kind, id, owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kind": string(kind), "address": addr.String()})
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

// HandleTx executes one signed instruction. The bearer token's subject is
// the sender and its jti the transaction id. The ledger time is the server
// clock at receipt.
func (s *Server) HandleTx(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token", Code: "Unauthorized"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "read body: " + err.Error(), Code: "InvalidInput"})
		return
	}
	if len(body) > maxBodyBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "body too large", Code: "InvalidInput"})
		return
	}

	claims, err := s.verifier.verify(strings.TrimPrefix(header, "Bearer "), body)
	if err != nil {
		s.logger.Info("token rejected", zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "Unauthorized"})
		return
	}

	var ix contract.Instruction
	if err := json.Unmarshal(body, &ix); err != nil {
		s.writeError(w, errors.Join(contract.ErrInvalidInput, err))
		return
	}

	ts := s.now().Unix()
	sender := sdk.Address(claims.Subject)
	res, err := s.engine.Execute(r.Context(), sdk.NewEnv(sender, ts, claims.ID), ix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publisher.Publish(r.Context(), notify.NewMessage(res, sender.String(), ts))
	writeJSON(w, http.StatusOK, res)
}
