package match

import (
	"context"
	"time"
)

// runCountdown emits CountdownFrom..0 one tick apart, then startGame and the
// first round on the following tick.
func (c *Coordinator) runCountdown(ctx context.Context, s *Session) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.CountdownTick)
	defer ticker.Stop()

	n := c.cfg.CountdownFrom
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if ctx.Err() != nil || s.phase != PhaseCountdown {
			s.mu.Unlock()
			return
		}
		if n < 0 {
			c.emit.EmitGroup(s.id, EventStartGame)
			c.startRound(s)
			s.mu.Unlock()
			return
		}
		c.emit.EmitGroup(s.id, EventCountdown, n)
		s.mu.Unlock()
		n--
	}
}

// sweepFinished evicts finished sessions once they are older than
// SessionTTL.
func (c *Coordinator) sweepFinished() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.evictFinished(c.now())
		}
	}
}

func (c *Coordinator) evictFinished(now time.Time) int {
	c.mu.Lock()
	var evicted []*Session
	for id, s := range c.sessions {
		s.mu.Lock()
		stale := s.phase == PhaseFinished && now.Sub(s.finishedAt) > c.cfg.SessionTTL
		s.mu.Unlock()
		if !stale {
			continue
		}
		delete(c.sessions, id)
		evicted = append(evicted, s)
	}
	for conn, id := range c.connToMatch {
		if _, ok := c.sessions[id]; ok {
			continue
		}
		for _, s := range evicted {
			if s.id == id {
				delete(c.connToMatch, conn)
			}
		}
	}
	c.mu.Unlock()

	for _, s := range evicted {
		s.abandon()
		for _, p := range s.players {
			c.emit.LeaveGroup(p.ConnID, s.id)
		}
		c.metrics.SessionRemoved()
	}
	if len(evicted) > 0 {
		c.logger.Debug("evicted finished sessions", "count", len(evicted))
	}
	return len(evicted)
}
