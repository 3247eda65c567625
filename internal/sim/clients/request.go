package clients

// Request is a customer order. Item order is for display only; matching ignores it.
type Request struct {
	Ticket  int      `json:"ticket"`
	Items   []string `json:"items"`
	Timeout float64  `json:"timeout"`
	SpawnAt float64  `json:"spawn_at"`
}

// StallQueue holds requests that found no free slot, oldest first.
type StallQueue struct {
	items []Request
}

func (q *StallQueue) Push(r Request) { q.items = append(q.items, r) }

func (q *StallQueue) Pop() (Request, bool) {
	if len(q.items) == 0 {
		return Request{}, false
	}
	r := q.items[0]
	q.items[0] = Request{}
	q.items = q.items[1:]
	return r, true
}

func (q *StallQueue) Len() int { return len(q.items) }

// Tickets lists the queued tickets in arrival order.
func (q *StallQueue) Tickets() []int {
	out := make([]int, 0, len(q.items))
	for _, r := range q.items {
		out = append(out, r.Ticket)
	}
	return out
}

func (q *StallQueue) Clear() { q.items = nil }
