package economy

// selfSpends pairs the mirror's own settled spends with the ledger inserts
// they produce. The push can arrive before or after the RPC response.
type selfSpends struct {
	// settled counts spends applied from an RPC response whose push has not
	// been seen yet, by amount.
	settled map[int]int
	// early counts pushes applied while a spend was still in flight, by amount.
	early map[int]int
}

func newSelfSpends() selfSpends {
	return selfSpends{settled: make(map[int]int), early: make(map[int]int)}
}

// commit records a spend settled from its RPC response.
func (s *selfSpends) commit(amount int) {
	if s.early[amount] > 0 {
		s.early[amount]--
		return
	}
	s.settled[amount]++
}

// abort forgets an early push for a spend that failed after all.
func (s *selfSpends) abort(amount int) {
	if s.early[amount] > 0 {
		s.early[amount]--
	}
}

// observe reports whether a pushed spend of amount should change the balance.
func (s *selfSpends) observe(amount int, inFlight bool) bool {
	if s.settled[amount] > 0 {
		s.settled[amount]--
		return false
	}
	if inFlight {
		s.early[amount]++
	}
	return true
}
