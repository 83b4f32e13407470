package observer

import (
	"fmt"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// clockTicksPerSecond approximates the host's CLK_TCK for reporting
// cpu_user_ticks/cpu_system_ticks; the ratio used for cpu_pct is
// dimensionless, so this only affects the reported tick counters.
const clockTicksPerSecond = 100

// collect performs one poll: enumerate pids, read per-process state,
// read global CPU/mem/load, and compute delta-based CPU%, following
// the same prev-tick bookkeeping the teacher's sampler used for its
// flat display sample.
func (o *Observer) collect() ([]model.ProcessSnapshot, model.SystemSnapshot, error) {
	now := time.Now()

	globalTimes, err := cpu.Times(false)
	if err != nil || len(globalTimes) == 0 {
		return nil, model.SystemSnapshot{}, fmt.Errorf("read global cpu times: %w", err)
	}
	gt := globalTimes[0]
	curTotal := gt.Total()
	curIdle := gt.Idle + gt.Iowait

	var cpuTotalPct float64
	var deltaGlobal float64
	if o.prevGlobalTotal > 0 {
		deltaGlobal = curTotal - o.prevGlobalTotal
		deltaIdle := curIdle - o.prevGlobalIdle
		if deltaGlobal > 0 {
			cpuTotalPct = 100 * (1 - deltaIdle/deltaGlobal)
			if cpuTotalPct < 0 {
				cpuTotalPct = 0
			}
		}
	}
	if deltaGlobal <= 0 {
		deltaGlobal = 1
	}

	procs, err := process.Processes()
	if err != nil {
		return nil, model.SystemSnapshot{}, fmt.Errorf("enumerate processes: %w", err)
	}

	newPrevSeconds := make(map[int]float64, len(procs))
	snapshots := make([]model.ProcessSnapshot, 0, len(procs))
	haveBaseline := o.prevGlobalTotal > 0

	for _, p := range procs {
		pid := int(p.Pid)
		name, nerr := p.Name()
		if nerr != nil || name == "" {
			continue // pid vanished or unreadable: skip this pid only
		}

		cmd, _ := p.Cmdline()
		if cmd == "" {
			cmd = name
		}
		statuses, _ := p.Status()
		state := model.StateSleep
		if len(statuses) > 0 && len(statuses[0]) > 0 {
			state = model.ProcessState(statuses[0][0])
		}
		ppid, _ := p.Ppid()
		threads, _ := p.NumThreads()
		nice, _ := p.Nice()
		memInfo, _ := p.MemoryInfo()
		var vsizeKB, rssKB uint64
		if memInfo != nil {
			vsizeKB = memInfo.VMS / 1024
			rssKB = memInfo.RSS / 1024
		}

		times, terr := p.Times()
		var userSeconds, systemSeconds float64
		if terr == nil && times != nil {
			userSeconds, systemSeconds = times.User, times.System
		}
		activeSeconds := userSeconds + systemSeconds
		newPrevSeconds[pid] = activeSeconds

		var cpuPct float64
		if haveBaseline {
			if prev, ok := o.prevProcSeconds[pid]; ok {
				deltaPid := activeSeconds - prev
				if deltaPid < 0 {
					deltaPid = 0
				}
				cpuPct = 100 * deltaPid / deltaGlobal
				maxPct := 100.0 * float64(o.coreCount)
				if maxPct > 0 && cpuPct > maxPct {
					cpuPct = maxPct
				}
			}
			// else: first observation of this pid, cpu_pct stays 0
		}

		snapshots = append(snapshots, model.ProcessSnapshot{
			PID:            pid,
			Name:           name,
			Command:        cmd,
			State:          state,
			ParentPID:      int(ppid),
			ThreadCount:    int(threads),
			Nice:           int(nice),
			VSizeKB:        vsizeKB,
			RSSKB:          rssKB,
			CPUUserTicks:   uint64(userSeconds * clockTicksPerSecond),
			CPUSystemTicks: uint64(systemSeconds * clockTicksPerSecond),
			LastObservedAt: now,
			CPUPct:         cpuPct,
		})
	}

	coreTimes, _ := cpu.Times(true)
	if len(coreTimes) > 0 {
		o.coreCount = len(coreTimes)
	} else if o.coreCount == 0 {
		o.coreCount = 1
	}

	o.prevProcSeconds = newPrevSeconds
	o.prevGlobalTotal = curTotal
	o.prevGlobalIdle = curIdle

	sys, err := o.collectSystem(now, gt, cpuTotalPct)
	if err != nil {
		return nil, model.SystemSnapshot{}, err
	}
	return snapshots, sys, nil
}

func (o *Observer) collectSystem(now time.Time, gt cpu.TimesStat, cpuTotalPct float64) (model.SystemSnapshot, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return model.SystemSnapshot{}, fmt.Errorf("read meminfo: %w", err)
	}
	swap, _ := mem.SwapMemory()
	avg, _ := load.Avg()

	sys := model.SystemSnapshot{
		CPUTotalPct:   cpuTotalPct,
		CPUUser:       uint64(gt.User),
		CPUNice:       uint64(gt.Nice),
		CPUSystem:     uint64(gt.System),
		CPUIdle:       uint64(gt.Idle),
		CPUIowait:     uint64(gt.Iowait),
		CPUIrq:        uint64(gt.Irq),
		CPUSoftirq:    uint64(gt.Softirq),
		CPUSteal:      uint64(gt.Steal),
		MemTotalKB:    vm.Total / 1024,
		MemAvailKB:    vm.Available / 1024,
		MemCachedKB:   vm.Cached / 1024,
		MemBufferedKB: vm.Buffers / 1024,
		SwapTotalKB:   swap.Total / 1024,
		SwapFreeKB:    (swap.Total - swap.Used) / 1024,
		CoreCount:     o.coreCount,
		Timestamp:     now,
	}
	if avg != nil {
		sys.Load1, sys.Load5, sys.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	return sys, nil
}
