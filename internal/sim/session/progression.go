package session

// Continue moves on from a finished attempt: a win advances (or beats the game after the last
// level), a loss restarts the same level. Returns false while running or once beaten.
func (c *Controller) Continue() bool {
	if !c.started || c.result == Running || c.beaten {
		return false
	}
	if !c.result.Won() {
		c.publish(LevelReset{})
		c.loadLevel(c.levelIndex)
		return true
	}

	if _, ok := c.set.Level(c.levelIndex + 1); !ok {
		c.beaten = true
		c.logger.Printf("game beaten: last level %s result=%s", c.level.ID, c.result)
		c.publish(GameBeaten{Delay: c.tun.GameBeatenDelay})
		return true
	}
	c.baseFatigue = c.carriedFatigue()
	c.loadLevel(c.levelIndex + 1)
	return true
}
