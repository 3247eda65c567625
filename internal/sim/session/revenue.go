package session

import (
	"math"

	"overburnt.game/internal/sim/clients"
	"overburnt.game/internal/sim/tuning"
)

// FulfillmentRevenue is what a completed order earns: its base revenue scaled by the tier for
// the patience left, floored. Tip is the amount above base.
func FulfillmentRevenue(base int, timeLeftPercent float64, t tuning.Tuning) (delta, tip int) {
	delta = int(math.Floor(float64(base) * t.Multiplier(timeLeftPercent)))
	return delta, delta - base
}

func (c *Controller) baseRevenue(items []string) int {
	total := 0
	for _, id := range items {
		total += c.cat.MustItem(id).BaseRevenue
	}
	return total
}

func (c *Controller) addRevenue(delta int) int {
	before := c.revenue
	c.revenue += delta
	if c.revenue < 0 {
		c.revenue = 0
	}
	if c.revenue != before {
		c.publish(EarningsChanged{Total: c.revenue})
	}
	return c.revenue - before
}

type clientListener struct{ c *Controller }

func (l clientListener) RequestFulfilled(done clients.Completion) {
	c := l.c
	base := c.baseRevenue(done.Request.Items)
	delta, tip := FulfillmentRevenue(base, clients.TimeLeftPercent(done.Elapsed, done.Request.Timeout), c.tun)
	applied := c.addRevenue(delta)
	c.publish(ClientRevenueDelta{Slot: done.Slot.ID(), Delta: applied, Tip: tip})
	c.drainStalled(done.Slot)
}

// RequestFailed charges the unscaled base revenue. Revenue never drops below zero.
func (l clientListener) RequestFailed(done clients.Completion) {
	c := l.c
	applied := c.addRevenue(-c.baseRevenue(done.Request.Items))
	c.publish(ClientRevenueDelta{Slot: done.Slot.ID(), Delta: applied})
	c.drainStalled(done.Slot)
}
