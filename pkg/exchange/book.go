package exchange

import (
	"container/heap"
	"sort"
)

// bookSide is an ordered multiset of resting orders for one side of one
// symbol's book: a heap of active price levels for O(1) best-price
// lookup, backed by a FIFO queue of orders per level.
type bookSide struct {
	bid    bool
	maxH   maxPriceHeap
	minH   minPriceHeap
	levels map[uint64][]*Order
}

func newBidSide() *bookSide {
	h := maxPriceHeap{}
	heap.Init(&h)
	return &bookSide{bid: true, maxH: h, levels: make(map[uint64][]*Order)}
}

func newAskSide() *bookSide {
	h := minPriceHeap{}
	heap.Init(&h)
	return &bookSide{bid: false, minH: h, levels: make(map[uint64][]*Order)}
}

func (s *bookSide) bestPrice() (uint64, bool) {
	if s.bid {
		return s.maxH.Peek()
	}
	return s.minH.Peek()
}

func (s *bookSide) insert(o *Order) {
	if len(s.levels[o.Price]) == 0 {
		if s.bid {
			heap.Push(&s.maxH, o.Price)
		} else {
			heap.Push(&s.minH, o.Price)
		}
	}
	s.levels[o.Price] = append(s.levels[o.Price], o)
}

// front returns the resting order at the best price, FIFO-first.
func (s *bookSide) front() (*Order, bool) {
	p, ok := s.bestPrice()
	if !ok {
		return nil, false
	}
	level := s.levels[p]
	if len(level) == 0 {
		s.removeLevel(p)
		return s.front()
	}
	return level[0], true
}

// popFront removes the order currently at the front of the best level,
// dropping the level (and its heap entry) if it becomes empty.
func (s *bookSide) popFront() {
	p, ok := s.bestPrice()
	if !ok {
		return
	}
	level := s.levels[p]
	if len(level) == 0 {
		s.removeLevel(p)
		return
	}
	level = level[1:]
	if len(level) == 0 {
		s.removeLevel(p)
	} else {
		s.levels[p] = level
	}
}

func (s *bookSide) removeLevel(price uint64) {
	delete(s.levels, price)
	if s.bid {
		removeFromMaxHeap(&s.maxH, price)
	} else {
		removeFromMinHeap(&s.minH, price)
	}
}

func removeFromMaxHeap(h *maxPriceHeap, price uint64) {
	for i := 0; i < h.Len(); i++ {
		if (*h)[i] == price {
			heap.Remove(h, i)
			return
		}
	}
}

func removeFromMinHeap(h *minPriceHeap, price uint64) {
	for i := 0; i < h.Len(); i++ {
		if (*h)[i] == price {
			heap.Remove(h, i)
			return
		}
	}
}

// cancel removes the order with the given id from this side, wherever
// it rests. O(resting orders) in the worst case; cancellation is rare relative
// to matching.
func (s *bookSide) cancel(id uint64) bool {
	for price, level := range s.levels {
		for i, o := range level {
			if o.ID == id {
				level = append(level[:i], level[i+1:]...)
				if len(level) == 0 {
					s.removeLevel(price)
				} else {
					s.levels[price] = level
				}
				return true
			}
		}
	}
	return false
}

// entries returns every resting order on this side in the side's
// ordering discipline: price-descending FIFO for bids, price-ascending
// FIFO for asks.
func (s *bookSide) entries() []*Order {
	prices := make([]uint64, 0, len(s.levels))
	for p := range s.levels {
		prices = append(prices, p)
	}
	if s.bid {
		sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })
	} else {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	}
	var out []*Order
	for _, p := range prices {
		out = append(out, s.levels[p]...)
	}
	return out
}

// Book is one symbol's pair of sides.
type Book struct {
	Symbol string
	Bids   *bookSide
	Asks   *bookSide
}

func newBook(symbol string) *Book {
	return &Book{Symbol: symbol, Bids: newBidSide(), Asks: newAskSide()}
}

// BookStore maps symbol -> Book, lazily created on first order.
type BookStore struct {
	books map[string]*Book
}

func NewBookStore() *BookStore {
	return &BookStore{books: make(map[string]*Book)}
}

// GetOrCreate returns the book for symbol, creating it on first use.
func (s *BookStore) GetOrCreate(symbol string) *Book {
	b, ok := s.books[symbol]
	if !ok {
		b = newBook(symbol)
		s.books[symbol] = b
	}
	return b
}

// Get returns the book for symbol without creating it, for inspects.
func (s *BookStore) Get(symbol string) (*Book, bool) {
	b, ok := s.books[symbol]
	return b, ok
}

// BookEntry is one resting order as reported by a depth query.
type BookEntry struct {
	ID       uint64
	Side     Side
	Price    uint64
	Quantity uint64
}

// DepthQuery interleaves one bid and one ask per step, starting from the
// best on each side, until depth entries have been produced or both
// sides are exhausted.
func (b *Book) DepthQuery(depth int) []BookEntry {
	bids := b.Bids.entries()
	asks := b.Asks.entries()
	var out []BookEntry
	bi, ai := 0, 0
	for len(out) < depth && (bi < len(bids) || ai < len(asks)) {
		if bi < len(bids) {
			out = append(out, BookEntry{ID: bids[bi].ID, Side: Buy, Price: bids[bi].Price, Quantity: bids[bi].Quantity})
			bi++
			if len(out) >= depth {
				break
			}
		}
		if ai < len(asks) {
			out = append(out, BookEntry{ID: asks[ai].ID, Side: Sell, Price: asks[ai].Price, Quantity: asks[ai].Quantity})
			ai++
		}
	}
	return out
}
