package session

import (
	"math/rand"
	"sort"

	"overburnt.game/internal/sim/clients"
	"overburnt.game/internal/sim/levels"
)

// buildSchedule spreads NumClients spawn times evenly over the level, each nudged by up to
// DistributionNoise seconds either way and clamped to the level.
func buildSchedule(rng *rand.Rand, lv levels.Level) []float64 {
	n := lv.NumClients
	if n <= 0 {
		return nil
	}
	times := make([]float64, n)
	step := lv.Duration / float64(n)
	for i := range times {
		at := float64(i)*step + (rng.Float64()*2-1)*lv.DistributionNoise
		if at < 0 {
			at = 0
		}
		if at > lv.Duration {
			at = lv.Duration
		}
		times[i] = at
	}
	sort.Float64s(times)
	return times
}

func (c *Controller) spawnDue() {
	for c.cursor < len(c.schedule) && c.schedule[c.cursor] <= c.elapsed {
		at := c.schedule[c.cursor]
		c.cursor++
		c.assign(c.newRequest(at))
	}
}

func (c *Controller) newRequest(at float64) clients.Request {
	lv := c.level
	c.nextTicket++

	first := lv.PoolItem1[c.rng.Intn(len(lv.PoolItem1))]
	items := []string{first}
	if len(lv.PoolItem2) > 0 && c.rng.Float64() < lv.SecondItemChance {
		if second := lv.PoolItem2[c.rng.Intn(len(lv.PoolItem2))]; second != first {
			items = append(items, second)
		}
	}
	patience := lv.PatienceMin + c.rng.Float64()*(lv.PatienceMax-lv.PatienceMin)
	return clients.Request{Ticket: c.nextTicket, Items: items, Timeout: patience, SpawnAt: at}
}

// assign binds r to the first free client slot, or queues it.
func (c *Controller) assign(r clients.Request) {
	for _, s := range c.clientSlots {
		if s.Free() {
			c.bind(s, r)
			return
		}
	}
	c.stalled.Push(r)
	c.publish(RequestStalled{Ticket: r.Ticket, Items: r.Items, Queued: c.stalled.Len()})
}

func (c *Controller) bind(s *clients.Slot, r clients.Request) {
	s.Activate(r)
	c.publish(RequestAssigned{Slot: s.ID(), Ticket: r.Ticket, Items: r.Items, Timeout: r.Timeout})
}

// drainStalled hands the oldest queued request to a slot that just freed up.
func (c *Controller) drainStalled(s *clients.Slot) {
	if !s.Free() {
		return
	}
	if r, ok := c.stalled.Pop(); ok {
		c.bind(s, r)
	}
}
