package scheduler

import "github.com/Taragi14/smart-resource-scheduler/internal/model"

// selectNextLocked dispatches on the active algorithm. Callers must
// hold s.mu. A real-time process, if any is registered and present,
// is always selected ahead of the algorithmic choice (§4.4).
func (s *Scheduler) selectNextLocked() (int, bool) {
	if pid, ok := s.selectRealTimeLocked(); ok {
		return pid, true
	}
	if len(s.table) == 0 {
		return 0, false
	}
	switch s.algorithm {
	case model.AlgorithmRoundRobin:
		return s.selectRoundRobinLocked()
	case model.AlgorithmMultilevelFeedback:
		return s.selectMultilevelLocked()
	case model.AlgorithmFair:
		return s.selectFairLocked()
	default:
		return s.selectPriorityLocked()
	}
}

func (s *Scheduler) selectRealTimeLocked() (int, bool) {
	best := -1
	bestPriority := 0
	for _, pid := range s.realtimeOrder {
		sp, ok := s.table[pid]
		if !ok || !sp.RealTime {
			continue
		}
		if best == -1 || sp.RealTimePriority < bestPriority || (sp.RealTimePriority == bestPriority && pid < best) {
			best = pid
			bestPriority = sp.RealTimePriority
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// selectPriorityLocked argmaxes over dynamic_priority, ties broken by
// smallest pid.
func (s *Scheduler) selectPriorityLocked() (int, bool) {
	best := -1
	bestPriority := 0
	for pid, sp := range s.table {
		if best == -1 || sp.DynamicPriority > bestPriority || (sp.DynamicPriority == bestPriority && pid < best) {
			best = pid
			bestPriority = sp.DynamicPriority
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// selectRoundRobinLocked pops the front of the FIFO queue and pushes it
// to the back, skipping entries whose pid has disappeared.
func (s *Scheduler) selectRoundRobinLocked() (int, bool) {
	for e := s.rrQueue.Front(); e != nil; {
		next := e.Next()
		pid := e.Value.(int)
		if _, ok := s.table[pid]; !ok {
			s.rrQueue.Remove(e)
			e = next
			continue
		}
		s.rrQueue.MoveToBack(e)
		return pid, true
	}
	return 0, false
}

// selectMultilevelLocked picks from the lowest-index non-empty queue;
// after more than (level+1)*3 schedules, demotes to level+1 (capped at
// the last level).
func (s *Scheduler) selectMultilevelLocked() (int, bool) {
	for level, q := range s.mlQueues {
		for e := q.Front(); e != nil; {
			next := e.Next()
			pid := e.Value.(int)
			sp, ok := s.table[pid]
			if !ok {
				q.Remove(e)
				e = next
				continue
			}
			q.Remove(e)
			newLevel := level
			if sp.ScheduleCount > (level+1)*3 {
				newLevel = level + 1
				if newLevel >= multilevelQueueCount {
					newLevel = multilevelQueueCount - 1
				}
			}
			sp.QueueLevel = newLevel
			s.mlQueues[newLevel].PushBack(pid)
			return pid, true
		}
	}
	return 0, false
}

// selectFairLocked argmins over virtual_runtime directly, ties broken
// by smallest pid. The nice weighting lives in how much virtual_runtime
// grows per selection: a favorable (lower) nice yields a smaller
// weight, so that process's virtual_runtime advances more slowly and
// it keeps winning the argmin more often, the same direction CFS uses
// its per-task weight.
func (s *Scheduler) selectFairLocked() (int, bool) {
	best := -1
	var bestVR float64
	for pid, sp := range s.table {
		if best == -1 || sp.VirtualRuntime < bestVR || (sp.VirtualRuntime == bestVR && pid < best) {
			best = pid
			bestVR = sp.VirtualRuntime
		}
	}
	if best == -1 {
		return 0, false
	}
	sp := s.table[best]
	sp.VirtualRuntime += sp.LatestCPUPct() * 0.1 * niceWeight(sp.BaseNice)
	return best, true
}

// niceWeight maps a nice value to the multiplier applied to a
// process's virtual_runtime increment: negative nice (more favorable)
// gives a multiplier below 1, positive nice gives one above 1. The
// divisor is tuned, not the raw nice range, so that nice -10 vs +10 —
// spec.md §8 scenario 3's literal test — converges to a ≈2:1
// selection ratio rather than the 3:1 a straight nice/20 scale gives.
func niceWeight(nice int) float64 {
	w := 1 + float64(nice)/30
	if w <= 0 {
		w = 0.01
	}
	return w
}
