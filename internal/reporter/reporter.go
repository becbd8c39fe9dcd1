package reporter

import "sync"

// Reporter defines the interface for progress reporting across the
// pipeline: source inspection, split decision, chunk queue build,
// target-quality probing, per-chunk encode progress, and assembly.
type Reporter interface {
	Source(summary SourceSummary)
	StageProgress(update StageProgress)
	SplitDecided(summary SplitSummary)
	QueueBuilt(summary QueueSummary)
	Probe(result ProbeResult)
	ChunkStarted(started ChunkStarted)
	ChunkProgress(progress ChunkProgress)
	ChunkComplete(complete ChunkComplete)
	ChunkFailed(failed ChunkFailed)
	Assembled(summary AssemblySummary)
	Complete(summary EncodingOutcome)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	Verbose(message string)
}

// Advancer implements scheduler.Progress by forwarding per-chunk frame
// deltas as ChunkProgress updates. The scheduler only knows the delta,
// so totals come from the last Announce call for that chunk name.
// Workers call Advance concurrently, one goroutine per chunk, so the
// per-chunk state map is guarded by a mutex.
type Advancer struct {
	r       Reporter
	mu      sync.Mutex
	started map[string]ChunkStarted
	current map[string]int
}

// NewAdvancer wraps r so it can be handed to scheduler.Options.Progress.
func NewAdvancer(r Reporter) *Advancer {
	return &Advancer{
		r:       r,
		started: make(map[string]ChunkStarted),
		current: make(map[string]int),
	}
}

// Announce records a chunk's frame total ahead of its first Advance call.
func (a *Advancer) Announce(started ChunkStarted) {
	a.mu.Lock()
	a.started[started.ChunkName] = started
	a.current[started.ChunkName] = 0
	a.mu.Unlock()
	a.r.ChunkStarted(started)
}

// Advance publishes a monotonic-per-chunk frame delta as progress.
func (a *Advancer) Advance(chunkName string, delta int) {
	a.mu.Lock()
	a.current[chunkName] += delta
	current := a.current[chunkName]
	started := a.started[chunkName]
	a.mu.Unlock()

	total := started.Frames
	var percent float32
	if total > 0 {
		percent = float32(current) / float32(total) * 100
	}
	a.r.ChunkProgress(ChunkProgress{
		ChunkName:    chunkName,
		TotalPasses:  started.Passes,
		CurrentFrame: current,
		TotalFrames:  total,
		Percent:      percent,
	})
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Source(SourceSummary)        {}
func (NullReporter) StageProgress(StageProgress) {}
func (NullReporter) SplitDecided(SplitSummary)   {}
func (NullReporter) QueueBuilt(QueueSummary)      {}
func (NullReporter) Probe(ProbeResult)            {}
func (NullReporter) ChunkStarted(ChunkStarted)    {}
func (NullReporter) ChunkProgress(ChunkProgress)  {}
func (NullReporter) ChunkComplete(ChunkComplete)  {}
func (NullReporter) ChunkFailed(ChunkFailed)      {}
func (NullReporter) Assembled(AssemblySummary)    {}
func (NullReporter) Complete(EncodingOutcome)     {}
func (NullReporter) Warning(string)               {}
func (NullReporter) Error(ReporterError)           {}
func (NullReporter) OperationComplete(string)      {}
func (NullReporter) Verbose(string)                {}
