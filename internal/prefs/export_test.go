package prefs

// WaitIdle blocks until every load started so far has resolved, including
// loads whose result was discarded.
func (c *Cell[T]) WaitIdle() {
	c.inflight.Wait()
}
