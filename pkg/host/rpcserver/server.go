package rpcserver

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/lambadex/lambadex/pkg/dispatch"
	"github.com/lambadex/lambadex/pkg/exchange"
	"github.com/lambadex/lambadex/pkg/host"
	"github.com/lambadex/lambadex/pkg/wire"
)

// Server is the JSON-RPC/HTTP + WebSocket host backend: a mux router and
// CORS policy in front of the advance/inspect dispatcher, plus a
// broadcast hub for live notice streaming.
type Server struct {
	dispatcher *dispatch.Dispatcher
	router     *mux.Router
	hub        *Hub
	log        *zap.SugaredLogger
}

func NewServer(d *dispatch.Dispatcher, log *zap.SugaredLogger) *Server {
	s := &Server{
		dispatcher: d,
		router:     mux.NewRouter(),
		hub:        NewHub(log),
		log:        log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/book/{symbol:.+}", s.handleBookDepth).Methods("GET") // symbols contain '/'
	api.HandleFunc("/wallet/{address}", s.handleWalletSnapshot).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the WebSocket hub and serves HTTP on addr. It blocks until
// the listener returns an error (normally on process shutdown).
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	if s.log != nil {
		s.log.Infow("rpcserver starting", "addr", addr)
	}
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// httpPort accumulates one advance's notices and vouchers for the HTTP
// response, implementing host.Port so host.EmitAdvanceResult can drive
// it identically to the emulator/device backends.
type httpPort struct {
	notices  [][]byte
	vouchers []host.Voucher
}

func (p *httpPort) EmitNotice(payload []byte) error {
	p.notices = append(p.notices, payload)
	return nil
}
func (p *httpPort) EmitVoucher(destination common.Address, payload []byte) error {
	p.vouchers = append(p.vouchers, host.Voucher{Destination: destination, Payload: payload})
	return nil
}
func (p *httpPort) EmitReport(payload []byte) error { return nil } // unused on the advance path

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Sender) {
		respondError(w, http.StatusBadRequest, "invalid sender address", req.Sender)
		return
	}
	blob, err := hex.DecodeString(trimHexPrefix(req.Blob))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid blob hex", err.Error())
		return
	}

	meta := wire.InputMetadata{
		Sender:      common.HexToAddress(req.Sender),
		BlockNumber: req.BlockNumber,
		Timestamp:   req.Timestamp,
		EpochIndex:  req.EpochIndex,
		InputIndex:  req.InputIndex,
	}

	res, err := s.dispatcher.Advance(meta, blob)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "advance rejected", err.Error())
		return
	}

	port := &httpPort{}
	if err := host.EmitAdvanceResult(port, res); err != nil {
		respondError(w, http.StatusInternalServerError, "emit failed", err.Error())
		return
	}

	resp := AdvanceResponse{}
	for _, n := range port.notices {
		nj, err := decodeNoticeJSON(n)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "decode notice failed", err.Error())
			return
		}
		resp.Notices = append(resp.Notices, nj)
	}
	for _, v := range port.vouchers {
		resp.Vouchers = append(resp.Vouchers, VoucherJSON{
			Destination: v.Destination.Hex(),
			Payload:     hex.EncodeToString(v.Payload),
		})
	}

	s.hub.BroadcastToChannel("notices", resp)
	respondJSON(w, resp)
}

func decodeNoticeJSON(payload []byte) (NoticeJSON, error) {
	if len(payload) == 0 {
		return NoticeJSON{}, fmt.Errorf("empty notice payload")
	}
	switch payload[0] {
	case wire.NoticeExecution:
		v, err := wire.DecodeExecutionNotice(payload)
		if err != nil {
			return NoticeJSON{}, err
		}
		return NoticeJSON{Execution: &ExecutionNoticeJSON{
			Event:    eventName(v.Event),
			Trader:   v.Trader.Hex(),
			ID:       v.ID,
			Symbol:   v.Symbol,
			Side:     sideName(v.Side),
			Quantity: v.Quantity,
			Price:    v.Price,
		}}, nil
	case wire.NoticeDeposit, wire.NoticeWithdraw:
		v, err := wire.DecodeWalletNotice(payload)
		if err != nil {
			return NoticeJSON{}, err
		}
		kind := "deposit"
		if v.Withdraw {
			kind = "withdraw"
		}
		return NoticeJSON{Wallet: &WalletNoticeJSON{
			Kind:     kind,
			Trader:   v.Trader.Hex(),
			Token:    v.Token.Hex(),
			Quantity: v.Quantity,
		}}, nil
	default:
		return NoticeJSON{}, fmt.Errorf("unknown notice tag %q", payload[0])
	}
}

func eventName(e byte) string {
	switch exchange.Event(e) {
	case exchange.EventNewOrder:
		return "new_order"
	case exchange.EventExecution:
		return "execution"
	case exchange.EventRejectionInvalidSymbol:
		return "rejection_invalid_symbol"
	case exchange.EventRejectionInsufficientFunds:
		return "rejection_insufficient_funds"
	case exchange.EventRejectionInsufficientWithdraw:
		return "rejection_insufficient_withdrawal"
	default:
		return fmt.Sprintf("unknown(%q)", e)
	}
}

func sideName(side byte) string {
	if side == wire.SideSell {
		return "sell"
	}
	return "buy"
}

func (s *Server) handleBookDepth(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	depth := uint32(wire.MaxBookEntry)
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid depth", err.Error())
			return
		}
		depth = uint32(n)
	}

	query, err := wire.EncodeBookQuery(symbol, depth)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid symbol", err.Error())
		return
	}
	report, err := s.dispatcher.Inspect(query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "inspect failed", err.Error())
		return
	}
	gotSymbol, entries, err := wire.DecodeBookReport(report)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "decode report failed", err.Error())
		return
	}

	resp := BookDepthResponse{Symbol: gotSymbol}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, BookLevelJSON{
			ID: e.ID, Side: sideName(e.Side), Price: e.Price, Quantity: e.Quantity,
		})
	}
	s.hub.BroadcastToChannel("book:"+gotSymbol, resp)
	respondJSON(w, resp)
}

func (s *Server) handleWalletSnapshot(w http.ResponseWriter, r *http.Request) {
	addressStr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", addressStr)
		return
	}
	query := wire.EncodeWalletQuery(common.HexToAddress(addressStr))
	report, err := s.dispatcher.Inspect(query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "inspect failed", err.Error())
		return
	}
	entries, err := wire.DecodeWalletReport(report)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "decode report failed", err.Error())
		return
	}
	resp := WalletResponse{Trader: addressStr}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, WalletEntryJSON{Token: e.Token.Hex(), Balance: e.Balance})
	}
	respondJSON(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
