package reporter

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) Source(summary SourceSummary) {
	for _, r := range c.reporters {
		r.Source(summary)
	}
}

func (c *CompositeReporter) StageProgress(update StageProgress) {
	for _, r := range c.reporters {
		r.StageProgress(update)
	}
}

func (c *CompositeReporter) SplitDecided(summary SplitSummary) {
	for _, r := range c.reporters {
		r.SplitDecided(summary)
	}
}

func (c *CompositeReporter) QueueBuilt(summary QueueSummary) {
	for _, r := range c.reporters {
		r.QueueBuilt(summary)
	}
}

func (c *CompositeReporter) Probe(result ProbeResult) {
	for _, r := range c.reporters {
		r.Probe(result)
	}
}

func (c *CompositeReporter) ChunkStarted(started ChunkStarted) {
	for _, r := range c.reporters {
		r.ChunkStarted(started)
	}
}

func (c *CompositeReporter) ChunkProgress(progress ChunkProgress) {
	for _, r := range c.reporters {
		r.ChunkProgress(progress)
	}
}

func (c *CompositeReporter) ChunkComplete(complete ChunkComplete) {
	for _, r := range c.reporters {
		r.ChunkComplete(complete)
	}
}

func (c *CompositeReporter) ChunkFailed(failed ChunkFailed) {
	for _, r := range c.reporters {
		r.ChunkFailed(failed)
	}
}

func (c *CompositeReporter) Assembled(summary AssemblySummary) {
	for _, r := range c.reporters {
		r.Assembled(summary)
	}
}

func (c *CompositeReporter) Complete(summary EncodingOutcome) {
	for _, r := range c.reporters {
		r.Complete(summary)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) OperationComplete(message string) {
	for _, r := range c.reporters {
		r.OperationComplete(message)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
