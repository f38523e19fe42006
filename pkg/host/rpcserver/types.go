// Package rpcserver implements the JSON-RPC/HTTP + WebSocket rollup host
// backend: one of three interchangeable transports (the others are the
// file-replay emulator, pkg/host/emulator, and the Cartesi kernel device,
// pkg/host/device). It exposes the advance dispatcher over a single POST
// endpoint and the inspect dispatcher over two read-only GET endpoints,
// and mirrors every advance's notices onto a WebSocket feed so a browser
// client can watch the book update live, built on gorilla/mux, rs/cors,
// and gorilla/websocket around LambadeX's own request/response shapes.
package rpcserver

// AdvanceRequest is the POST /api/v1/advance request body: the input
// metadata the rollup host would normally attach, plus the raw input
// blob, both hex-encoded since JSON has no native byte-string type.
type AdvanceRequest struct {
	Sender      string `json:"sender"`      // 20-byte hex address, "0x"-prefixed
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   uint64 `json:"timestamp"`
	EpochIndex  uint64 `json:"epochIndex"`
	InputIndex  uint64 `json:"inputIndex"`
	Blob        string `json:"blob"` // hex-encoded raw input blob
}

// NoticeJSON is the decoded, JSON-friendly form of one emitted notice.
// Exactly one of the two nested pointers is set, mirroring the wire
// notice's own tagged-union shape (execution-shaped vs wallet-shaped).
type NoticeJSON struct {
	Execution *ExecutionNoticeJSON `json:"execution,omitempty"`
	Wallet    *WalletNoticeJSON    `json:"wallet,omitempty"`
}

// ExecutionNoticeJSON is an acknowledgement, fill, or rejection notice.
type ExecutionNoticeJSON struct {
	Event    string `json:"event"` // "new_order" | "execution" | "rejection_invalid_symbol" | ...
	Trader   string `json:"trader"`
	ID       uint64 `json:"id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity uint64 `json:"quantity"`
	Price    uint64 `json:"price"`
}

// WalletNoticeJSON is a deposit or withdrawal notice.
type WalletNoticeJSON struct {
	Kind     string `json:"kind"` // "deposit" | "withdraw"
	Trader   string `json:"trader"`
	Token    string `json:"token"`
	Quantity uint64 `json:"quantity"`
}

// VoucherJSON is the decoded form of one emitted voucher.
type VoucherJSON struct {
	Destination string `json:"destination"`
	Payload     string `json:"payload"` // hex-encoded ERC-20 transfer calldata
}

// AdvanceResponse is the POST /api/v1/advance response body.
type AdvanceResponse struct {
	Notices  []NoticeJSON  `json:"notices"`
	Vouchers []VoucherJSON `json:"vouchers"`
}

// BookLevelJSON is one resting order in a book-depth response.
type BookLevelJSON struct {
	ID       uint64 `json:"id"`
	Side     string `json:"side"`
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

// BookDepthResponse is the GET /api/v1/book/{symbol} response body.
type BookDepthResponse struct {
	Symbol  string          `json:"symbol"`
	Entries []BookLevelJSON `json:"entries"`
}

// WalletEntryJSON is one (token, balance) pair.
type WalletEntryJSON struct {
	Token   string `json:"token"`
	Balance uint64 `json:"balance"`
}

// WalletResponse is the GET /api/v1/wallet/{address} response body.
type WalletResponse struct {
	Trader  string            `json:"trader"`
	Entries []WalletEntryJSON `json:"entries"`
}

// ErrorResponse is returned for all 4xx/5xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WSSubscribeRequest is sent by a client to subscribe/unsubscribe from
// broadcast channels ("notices", or "book:<symbol>").
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}
