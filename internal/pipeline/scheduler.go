package pipeline

import "time"

// Scheduler decide cuándo toca el siguiente ciclo. Con mensajes pendientes en la
// cola MT (MTQ > 0) el intervalo se reduce a la mitad.
type Scheduler struct {
	base     time.Duration
	interval time.Duration
	last     time.Time
	next     time.Time
}

// NewScheduler programa el primer ciclo para now.
func NewScheduler(interval time.Duration, now time.Time) *Scheduler {
	return &Scheduler{base: interval, interval: interval, last: now, next: now}
}

// Tick devuelve true si now >= next y entonces reprograma desde now.
func (s *Scheduler) Tick(now time.Time) bool {
	if now.Before(s.next) {
		return false
	}
	s.last = now
	s.next = now.Add(s.interval)
	return true
}

// SetQueueDepth recalcula el intervalo y next = last + interval.
func (s *Scheduler) SetQueueDepth(mtq int) {
	s.interval = s.base
	if mtq > 0 {
		s.interval = s.base / 2
	}
	s.next = s.last.Add(s.interval)
}

func (s *Scheduler) Interval() time.Duration { return s.interval }
func (s *Scheduler) Last() time.Time         { return s.last }
func (s *Scheduler) Next() time.Time         { return s.next }
