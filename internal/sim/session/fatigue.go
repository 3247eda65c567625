package session

// updateFatigue applies this tick's drag cost or idle recovery and reports exhaustion.
func (c *Controller) updateFatigue(dt float64) bool {
	if c.level.IgnoreFatigue {
		return false
	}
	f := c.tun.Fatigue
	prev := c.fatigue
	exhausted := false

	if c.drag != nil {
		c.idle = 0
		c.fatigue += f.DragDepletionRate * dt
		if c.fatigue+1e-9 >= f.Max {
			c.fatigue = f.Max
			exhausted = true
		}
	} else {
		c.idle += dt
		if c.idle >= f.IdleGrace && c.fatigue > 0 {
			c.fatigue -= f.RecoveryRate * dt
			if c.fatigue < 0 {
				c.fatigue = 0
			}
		}
	}

	if c.fatigue != prev {
		c.publish(FatigueChanged{Percent: c.FatiguePercent(), Fatigue: c.fatigue})
	}
	return exhausted
}

// carriedFatigue is the baseline for the level after a win. A level that ignores fatigue
// leaves the baseline it was entered with untouched.
func (c *Controller) carriedFatigue() float64 {
	if c.level.IgnoreFatigue {
		return c.baseFatigue
	}
	recovered := c.tun.Fatigue.RecoveredPercent(c.FatiguePercent())
	left := c.fatigue * float64(100-recovered) / 100
	if left < 0 {
		return 0
	}
	return left
}
