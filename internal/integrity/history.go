package integrity

// addToHistory keeps the most recent maxHistory reports in memory.
func (a *Auditor) addToHistory(r Report) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, r)
	if len(a.history) > a.maxHistory {
		a.history = a.history[1:]
	}
}

// History returns recent reports, newest first. When a report log is
// attached it is the source of truth; otherwise the in-memory ring is used.
func (a *Auditor) History(limit int) ([]Report, error) {
	if a.log != nil {
		return a.log.Recent(limit)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 || limit > len(a.history) {
		limit = len(a.history)
	}
	out := make([]Report, 0, limit)
	for i := len(a.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.history[i])
	}
	return out, nil
}

// Last returns the most recent report, if any.
func (a *Auditor) Last() (Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.history) == 0 {
		return Report{}, false
	}
	return a.history[len(a.history)-1], true
}
