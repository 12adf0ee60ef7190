package orderbook

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func levelOrder(id OrderID, price Price, qty Quantity, seq SeqNum) *Order {
	return &Order{ID: id, Price: price, Quantity: qty, LeavesQty: qty, Sequence: seq, Status: StatusNew}
}

func TestPriceLevelFIFO(t *testing.T) {
	l := &PriceLevel{Price: 100}
	a := levelOrder(1, 100, 10, 1)
	b := levelOrder(2, 100, 20, 2)
	c := levelOrder(3, 100, 30, 3)

	l.Enqueue(a)
	l.Enqueue(b)
	l.Enqueue(c)

	require.Equal(t, uint32(3), l.OrderCount)
	require.Equal(t, Quantity(60), l.TotalQty)
	require.Same(t, a, l.Front())

	require.Same(t, a, l.PopFront())
	require.Same(t, b, l.Front())
	require.Equal(t, Quantity(50), l.TotalQty)
}

func TestPriceLevelRemoveMiddle(t *testing.T) {
	l := &PriceLevel{Price: 100}
	a := levelOrder(1, 100, 10, 1)
	b := levelOrder(2, 100, 20, 2)
	c := levelOrder(3, 100, 30, 3)
	l.Enqueue(a)
	l.Enqueue(b)
	l.Enqueue(c)

	l.Remove(b)

	require.Equal(t, uint32(2), l.OrderCount)
	require.Equal(t, Quantity(40), l.TotalQty)
	require.Same(t, a, l.Front())
	require.Same(t, c, a.next)
	require.Same(t, a, c.prev)
	require.Nil(t, b.prev)
	require.Nil(t, b.next)
}

func TestPriceLevelRemoveHeadAndTail(t *testing.T) {
	l := &PriceLevel{Price: 100}
	a := levelOrder(1, 100, 10, 1)
	b := levelOrder(2, 100, 20, 2)
	l.Enqueue(a)
	l.Enqueue(b)

	l.Remove(a)
	require.Same(t, b, l.Front())

	l.Remove(b)
	require.True(t, l.Empty())
	require.Nil(t, l.Front())
	require.Equal(t, Quantity(0), l.TotalQty)
}

func TestPriceLevelReduceClampsAtZero(t *testing.T) {
	l := &PriceLevel{Price: 100}
	l.Enqueue(levelOrder(1, 100, 10, 1))

	l.ReduceQuantity(25)
	require.Equal(t, Quantity(0), l.TotalQty)
}

func TestPriceLevelEnqueueWrongPricePanics(t *testing.T) {
	l := &PriceLevel{Price: 100}
	require.Panics(t, func() { l.Enqueue(levelOrder(1, 101, 10, 1)) })
}
