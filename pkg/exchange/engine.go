package exchange

// NewOrderInput is what the advance dispatcher constructs from a decoded
// new_order user input before handing it to the matching engine. It
// carries no id; the engine assigns one at admission (§9 Q1).
type NewOrderInput struct {
	Trader   [20]byte
	Symbol   string
	Side     Side
	Quantity uint64
	Price    uint64
}

// NewOrder is the matching engine's public operation: validate, reserve
// funds, match against the opposite side, settle each fill, and insert
// any residual. Returns the accumulated notices in emission order.
//
// Crossing fills settle at the integer mid-price between the incoming
// order and the resting order it matches against, not at the resting
// order's price; the buyer's original reservation at its own limit is
// unlocked and re-debited at the mid-price, so both wallets move exactly
// once per fill.
func (st *State) NewOrder(in NewOrderInput) []Notice {
	trader := addressFromBytes(in.Trader)

	instrument, ok := st.Registry.Lookup(in.Symbol)
	if !ok {
		return []Notice{ExecutionNotice{
			Trader: trader, Event: EventRejectionInvalidSymbol,
			ID: 0, Symbol: in.Symbol, Side: in.Side,
			Quantity: in.Quantity, Price: in.Price,
		}}
	}

	var source = instrument.Quote
	var required uint64
	if in.Side == Buy {
		required = (in.Quantity * in.Price) / Scale
	} else {
		required = in.Quantity
		source = instrument.Base
	}

	if st.Wallets.Balance(trader, source) < required {
		return []Notice{ExecutionNotice{
			Trader: trader, Event: EventRejectionInsufficientFunds,
			ID: 0, Symbol: in.Symbol, Side: in.Side,
			Quantity: in.Quantity, Price: in.Price,
		}}
	}
	st.Wallets.Debit(trader, source, required)

	id := st.nextID()
	o := &Order{ID: id, Trader: trader, Symbol: in.Symbol, Side: in.Side, Price: in.Price, Quantity: in.Quantity}

	notices := []Notice{ExecutionNotice{
		Trader: trader, Event: EventNewOrder,
		ID: id, Symbol: in.Symbol, Side: in.Side,
		Quantity: o.Quantity, Price: o.Price,
	}}

	book := st.Books.GetOrCreate(in.Symbol)
	var mySide, oppSide *bookSide
	if in.Side == Buy {
		mySide, oppSide = book.Bids, book.Asks
	} else {
		mySide, oppSide = book.Asks, book.Bids
	}

	for o.Quantity > 0 {
		best, ok := oppSide.front()
		if !ok {
			break
		}
		if in.Side == Buy && o.Price < best.Price {
			break
		}
		if in.Side == Sell && o.Price > best.Price {
			break
		}

		execQty := min64(o.Quantity, best.Quantity)
		execPrice := (o.Price + best.Price) / 2

		var buyer, seller *Order
		if in.Side == Buy {
			buyer, seller = o, best
		} else {
			buyer, seller = best, o
		}

		// 1. unlock buyer's original reservation at the buyer's own limit.
		st.Wallets.Credit(buyer.Trader, instrument.Quote, (execQty*buyer.Price)/Scale)
		// 2. buyer actually pays at the execution price.
		st.Wallets.Debit(buyer.Trader, instrument.Quote, (execQty*execPrice)/Scale)
		// 3. buyer receives the base token.
		st.Wallets.Credit(buyer.Trader, instrument.Base, execQty)
		// 4. seller's base token was already reserved (debited) at admission;
		// it receives quote at exec price.
		st.Wallets.Credit(seller.Trader, instrument.Quote, (execQty*execPrice)/Scale)

		o.Quantity -= execQty
		best.Quantity -= execQty

		notices = append(notices,
			ExecutionNotice{Trader: buyer.Trader, Event: EventExecution, ID: buyer.ID, Symbol: in.Symbol, Side: Buy, Quantity: execQty, Price: execPrice},
			ExecutionNotice{Trader: seller.Trader, Event: EventExecution, ID: seller.ID, Symbol: in.Symbol, Side: Sell, Quantity: execQty, Price: execPrice},
		)

		if best.Quantity == 0 {
			oppSide.popFront()
		}
	}

	if o.Quantity > 0 {
		mySide.insert(o)
	}

	return notices
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
