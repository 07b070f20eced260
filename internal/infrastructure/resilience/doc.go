/*
Package resilience provides a circuit breaker for calls to a remote host.

# States

  - Closed: calls pass through; counts reset every Interval
  - Open: calls fail with ErrCircuitOpen until Timeout elapses
  - Half-Open: up to MaxRequests probes; MaxRequests consecutive successes
    close the breaker, any failure reopens it

Transitions:

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[successes]-> Closed
	                          ^                     |
	                          +------[failure]------+

# Usage

	breaker := resilience.New("devtools", resilience.Settings{
		Timeout: 5 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(func() error {
		return call()
	})

Outcomes of calls admitted in an earlier generation are discarded.
*/
package resilience
