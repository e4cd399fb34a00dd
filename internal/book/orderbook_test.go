package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/xchange-engine/internal/wire"
)

func mustAdd(t *testing.T, ob *OrderBook, userID, price, qty uint32, side wire.Side, orderID uint32) []wire.Message {
	t.Helper()
	o, err := ob.NewRestingOrder(userID, price, qty, side, orderID, 0, 0)
	require.NoError(t, err)
	return ob.Add(o)
}

func kinds(msgs []wire.Message) []wire.Kind {
	out := make([]wire.Kind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind()
	}
	return out
}

func TestAddRestsWhenNonCrossing(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	out := mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)

	require.Equal(t, []wire.Kind{wire.KindAck, wire.KindTopOfBook}, kinds(out))
	price, qty, ok := ob.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint32(100), price)
	assert.Equal(t, uint64(10), qty)
}

func TestAddMatchesAtRestingPrice(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Sell, 1)

	out := mustAdd(t, ob, 2, 105, 10, wire.Buy, 2)
	require.Equal(t, []wire.Kind{wire.KindAck, wire.KindTrade, wire.KindTopOfBook}, kinds(out))

	trade := out[1].(*wire.Trade)
	assert.Equal(t, uint32(100), trade.Price, "trade executes at the resting order's price, not the aggressor's")
	assert.Equal(t, uint32(2), trade.BuyUser)
	assert.Equal(t, uint32(1), trade.SellUser)

	tob := out[2].(*wire.TopOfBook)
	assert.Equal(t, wire.Sell, tob.Side)
	assert.True(t, tob.Eliminated())

	_, _, ok := ob.BestAsk()
	assert.False(t, ok)
}

func TestAddPartialFillLeavesRemainderResting(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Sell, 1)

	out := mustAdd(t, ob, 2, 100, 15, wire.Buy, 2)
	require.Len(t, out, 4)
	trade := out[1].(*wire.Trade)
	assert.Equal(t, uint32(10), trade.Quantity)

	price, qty, ok := ob.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint32(100), price)
	assert.Equal(t, uint64(5), qty)
}

func TestAddWalksMultipleLevelsInPriceOrder(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 5, wire.Sell, 1)
	mustAdd(t, ob, 2, 101, 5, wire.Sell, 2)

	out := mustAdd(t, ob, 3, 102, 10, wire.Buy, 3)
	var trades []*wire.Trade
	for _, m := range out {
		if tr, ok := m.(*wire.Trade); ok {
			trades = append(trades, tr)
		}
	}
	require.Len(t, trades, 2)
	assert.Equal(t, uint32(100), trades[0].Price, "best (lowest) ask fills first")
	assert.Equal(t, uint32(101), trades[1].Price)
}

func TestAddFIFOWithinSamePriceLevel(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 5, wire.Sell, 1)
	mustAdd(t, ob, 2, 100, 5, wire.Sell, 2)

	out := mustAdd(t, ob, 3, 100, 5, wire.Buy, 3)
	var trade *wire.Trade
	for _, m := range out {
		if tr, ok := m.(*wire.Trade); ok {
			trade = tr
		}
	}
	require.NotNil(t, trade)
	assert.Equal(t, uint32(1), trade.SellUser, "earlier resting order at the same price fills first")
}

func TestLevelTotalQuantityExcludesFullyFilledHead(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 5, wire.Sell, 1)
	mustAdd(t, ob, 2, 100, 5, wire.Sell, 2)

	mustAdd(t, ob, 3, 100, 5, wire.Buy, 3)

	_, qty, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(5), qty, "only the second resting order's quantity should remain at the level")
}

func TestCancelUnknownOrderIsSilent(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	out := ob.Cancel(1, 999)
	assert.Nil(t, out)
}

func TestCancelByWrongUserIsSilent(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)

	out := ob.Cancel(2, 1)
	assert.Nil(t, out)

	price, _, ok := ob.BestBid()
	assert.True(t, ok)
	assert.Equal(t, uint32(100), price)
}

func TestCancelRemovesOrderAndEliminatesLevel(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)

	out := ob.Cancel(1, 1)
	require.Equal(t, []wire.Kind{wire.KindCancelAck, wire.KindTopOfBook}, kinds(out))
	tob := out[1].(*wire.TopOfBook)
	assert.True(t, tob.Eliminated())

	_, _, ok := ob.BestBid()
	assert.False(t, ok)
	assert.Equal(t, 0, ob.TotalOrders())
}

func TestCancelLeavesLevelIntactWhenOthersRemain(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)
	mustAdd(t, ob, 1, 100, 5, wire.Buy, 2)

	out := ob.Cancel(1, 1)
	require.Len(t, out, 2)
	tob := out[1].(*wire.TopOfBook)
	assert.False(t, tob.Eliminated())
	assert.Equal(t, uint32(5), tob.Quantity)
}

func TestDifferentUsersMayReuseSameOrderID(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)
	mustAdd(t, ob, 2, 100, 10, wire.Buy, 1)
	assert.Equal(t, 2, ob.TotalOrders())

	out := ob.Cancel(1, 1)
	require.Len(t, out, 2, "the level still holds user 2's order, so the TopOfBook update reports its remaining quantity")
	assert.Equal(t, 1, ob.TotalOrders())
}

func TestFlushRemovesEverythingAndEmitsCancelAcksThenEliminatedTops(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)
	mustAdd(t, ob, 2, 99, 5, wire.Buy, 2)
	mustAdd(t, ob, 3, 105, 7, wire.Sell, 3)

	out := ob.Flush()
	require.Len(t, out, 5)
	for _, m := range out[:3] {
		assert.Equal(t, wire.KindCancelAck, m.Kind())
	}
	assert.Equal(t, wire.KindTopOfBook, out[3].Kind())
	assert.Equal(t, wire.KindTopOfBook, out[4].Kind())
	assert.True(t, out[3].(*wire.TopOfBook).Eliminated())
	assert.True(t, out[4].(*wire.TopOfBook).Eliminated())

	assert.Equal(t, 0, ob.TotalOrders())
	_, _, ok := ob.BestBid()
	assert.False(t, ok)
}

func TestFlushOnEmptyBookEmitsNothing(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	out := ob.Flush()
	assert.Empty(t, out)
}

func TestAddRejectsInvalidSideOrZeroQuantity(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	o, err := ob.NewRestingOrder(1, 100, 0, wire.Buy, 1, 0, 0)
	require.NoError(t, err)
	out := ob.Add(o)
	assert.Nil(t, out)

	o, err = ob.NewRestingOrder(1, 100, 10, wire.Side('X'), 2, 0, 0)
	require.NoError(t, err)
	out = ob.Add(o)
	assert.Nil(t, out)
}

func TestAddRejectsDuplicateOrderID(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)

	o, err := ob.NewRestingOrder(1, 101, 5, wire.Buy, 1, 0, 0)
	require.NoError(t, err)
	out := ob.Add(o)
	assert.Nil(t, out)
}

func TestArenaExhaustionSurfacesAsError(t *testing.T) {
	ob := NewOrderBookWithCapacity(wire.SymbolFrom("IBM"), 1)
	_, err := ob.NewRestingOrder(1, 100, 1, wire.Buy, 1, 0, 0)
	require.NoError(t, err)

	_, err = ob.NewRestingOrder(2, 100, 1, wire.Buy, 2, 0, 0)
	assert.ErrorIs(t, err, ErrArenaFull)
}

func TestTopOfBookOnlyEmittedOnChange(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 10, wire.Buy, 1)

	out := mustAdd(t, ob, 2, 99, 5, wire.Buy, 2)
	require.Equal(t, []wire.Kind{wire.KindAck}, kinds(out), "resting behind the existing best bid changes no top-of-book")
}

func TestMatchExhaustsIncomingWithoutCrossingFurther(t *testing.T) {
	ob := NewOrderBook(wire.SymbolFrom("IBM"))
	mustAdd(t, ob, 1, 100, 5, wire.Sell, 1)
	mustAdd(t, ob, 2, 110, 5, wire.Sell, 2)

	out := mustAdd(t, ob, 3, 100, 5, wire.Buy, 3)
	var trades int
	for _, m := range out {
		if _, ok := m.(*wire.Trade); ok {
			trades++
		}
	}
	assert.Equal(t, 1, trades, "buy at 100 must not cross the resting ask at 110")

	price, _, ok := ob.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, uint32(110), price)
}
