package exchange

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet is one trader's token -> balance mapping, lazily populated.
type Wallet struct {
	balances map[common.Address]uint64
}

func newWallet() *Wallet {
	return &Wallet{balances: make(map[common.Address]uint64)}
}

// WalletStore is the wallet store (component C): trader -> Wallet,
// lazily created on first credit. Spot token balances are the entire
// story here — no margin, position, or PnL accounting.
type WalletStore struct {
	wallets map[common.Address]*Wallet
}

func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[common.Address]*Wallet)}
}

// Credit adds amount to (trader, token), creating the wallet and entry
// if absent. Never fails.
func (s *WalletStore) Credit(trader, token common.Address, amount uint64) {
	w, ok := s.wallets[trader]
	if !ok {
		w = newWallet()
		s.wallets[trader] = w
	}
	w.balances[token] += amount
}

// Debit subtracts amount from (trader, token). Callers MUST have already
// verified balance(trader, token) >= amount; debiting past zero would be
// a bug upstream, not a condition this method recovers from.
func (s *WalletStore) Debit(trader, token common.Address, amount uint64) {
	s.wallets[trader].balances[token] -= amount
}

// Balance returns the current balance, or 0 if the wallet or token entry
// is absent.
func (s *WalletStore) Balance(trader, token common.Address) uint64 {
	w, ok := s.wallets[trader]
	if !ok {
		return 0
	}
	return w.balances[token]
}

// WalletEntry is one (token, balance) pair in a wallet snapshot.
type WalletEntry struct {
	Token   common.Address
	Balance uint64
}

// Snapshot returns the trader's balances in token-address sorted order,
// capped at limit entries. An unknown trader yields an empty, successful
// snapshot.
func (s *WalletStore) Snapshot(trader common.Address, limit int) []WalletEntry {
	w, ok := s.wallets[trader]
	if !ok {
		return nil
	}
	entries := make([]WalletEntry, 0, len(w.balances))
	for tok, bal := range w.balances {
		entries = append(entries, WalletEntry{Token: tok, Balance: bal})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Token.Cmp(entries[j].Token) < 0
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
