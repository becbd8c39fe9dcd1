package reporter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/splitreel/splitreel/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal, with one
// progress bar per in-flight chunk.
type TerminalReporter struct {
	mu        sync.Mutex
	bars      map[string]*progressbar.ProgressBar
	cyan      *color.Color
	green     *color.Color
	yellow    *color.Color
	red       *color.Color
	magenta   *color.Color
	bold      *color.Color
	lastStage string
}

var _ Reporter = (*TerminalReporter)(nil)

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter() *TerminalReporter {
	return &TerminalReporter{
		bars:    make(map[string]*progressbar.ProgressBar),
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
	}
}

// barWidth picks a progress bar width that fits the terminal, falling
// back to a fixed width when stderr isn't a real terminal.
func barWidth() int {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return 40
	}
	w, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || w <= 0 {
		return 40
	}
	if w > 100 {
		w = 100
	}
	return w / 2
}

func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Source(summary SourceSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("SOURCE")
	r.printLabel(12, "File:", summary.InputFile)
	r.printLabel(12, "Output:", summary.OutputFile)
	r.printLabel(12, "Duration:", summary.Duration)
	r.printLabel(12, "Resolution:", summary.Resolution)
	r.printLabel(12, "Dynamic:", summary.DynamicRange)
	r.printLabel(12, "Frames:", fmt.Sprintf("%d", summary.FrameCount))
	r.printLabel(12, "Audio:", fmt.Sprintf("%d track(s)", summary.AudioTracks))
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	if r.lastStage != update.Stage {
		r.mu.Unlock()
		fmt.Println()
		_, _ = r.cyan.Println(strings.ToUpper(update.Stage))
		r.mu.Lock()
		r.lastStage = update.Stage
	}
	r.mu.Unlock()
	fmt.Printf("  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) SplitDecided(summary SplitSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("SPLIT")
	r.printLabel(14, "Strategy:", summary.Strategy)
	r.printLabel(14, "Scenes:", fmt.Sprintf("%d", summary.SceneCount))
	r.printLabel(14, "After merge:", fmt.Sprintf("%d (min %d frames)", summary.AfterMerge, summary.MinSceneLen))
	r.printLabel(14, "After extra:", fmt.Sprintf("%d", summary.AfterExtra))
}

func (r *TerminalReporter) QueueBuilt(summary QueueSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("QUEUE")
	r.printLabel(10, "Method:", summary.Method)
	r.printLabel(10, "Chunks:", fmt.Sprintf("%d", summary.ChunkCount))
	if summary.Resumed > 0 {
		r.printLabel(10, "Resumed:", fmt.Sprintf("%d already done", summary.Resumed))
	}
}

func (r *TerminalReporter) Probe(result ProbeResult) {
	fmt.Printf("  %s chunk %s: q=%d score=%.2f target=%.2f\n",
		r.magenta.Sprint("probe"), result.ChunkName, result.Quality, result.Score, result.Target)
}

func (r *TerminalReporter) ChunkStarted(started ChunkStarted) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bar := progressbar.NewOptions(
		started.Frames,
		progressbar.OptionSetDescription(fmt.Sprintf("chunk %s", started.ChunkName)),
		progressbar.OptionSetWidth(barWidth()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	r.bars[started.ChunkName] = bar
}

func (r *TerminalReporter) ChunkProgress(progress ChunkProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bar, ok := r.bars[progress.ChunkName]
	if !ok {
		return
	}
	_ = bar.Set(progress.CurrentFrame)
	bar.Describe(fmt.Sprintf("chunk %s pass %d/%d, %.1f fps",
		progress.ChunkName, progress.Pass, progress.TotalPasses, progress.FPS))
}

func (r *TerminalReporter) ChunkComplete(complete ChunkComplete) {
	r.mu.Lock()
	if bar, ok := r.bars[complete.ChunkName]; ok {
		_ = bar.Finish()
		delete(r.bars, complete.ChunkName)
	}
	r.mu.Unlock()

	fmt.Printf("  %s chunk %s done (q=%d, %d frames, %s)\n",
		r.green.Sprint("✓"), complete.ChunkName, complete.Quality, complete.Frames,
		util.FormatDurationFromSecs(int64(complete.Elapsed.Seconds())))
}

func (r *TerminalReporter) ChunkFailed(failed ChunkFailed) {
	r.mu.Lock()
	if bar, ok := r.bars[failed.ChunkName]; ok {
		_ = bar.Exit()
		delete(r.bars, failed.ChunkName)
	}
	r.mu.Unlock()

	fmt.Printf("  %s chunk %s failed after %d attempt(s): %s\n",
		r.red.Sprint("✗"), failed.ChunkName, failed.Attempts, failed.Reason)
}

func (r *TerminalReporter) Assembled(summary AssemblySummary) {
	fmt.Println()
	_, _ = r.cyan.Println("ASSEMBLY")
	r.printLabel(10, "Strategy:", summary.Strategy)
	r.printLabel(10, "Chunks:", fmt.Sprintf("%d", summary.ChunkCount))
	audio := "no"
	if summary.HasAudio {
		audio = "yes"
	}
	r.printLabel(10, "Audio:", audio)
	r.printLabel(10, "Output:", summary.OutputPath)
}

func (r *TerminalReporter) Complete(summary EncodingOutcome) {
	reduction := util.CalculateSizeReduction(summary.OriginalSize, summary.EncodedSize)

	fmt.Println()
	_, _ = r.cyan.Println("RESULTS")
	fmt.Printf("  %s %s\n", r.bold.Sprint("Output:"), r.bold.Sprint(summary.OutputFile))
	fmt.Printf("  %s %s -> %s\n",
		r.bold.Sprint("Size:"),
		util.FormatBytesReadable(summary.OriginalSize),
		util.FormatBytesReadable(summary.EncodedSize))
	fmt.Printf("  %s %s\n", r.bold.Sprint("Reduction:"), r.bold.Sprintf("%.1f%%", reduction))
	fmt.Printf("  %s %d\n", r.bold.Sprint("Chunks:"), summary.ChunksTotal)
	fmt.Printf("  %s %s (avg speed %.1fx)\n",
		r.bold.Sprint("Time:"),
		util.FormatDurationFromSecs(int64(summary.TotalTime.Seconds())),
		summary.AverageSpeed)
	fmt.Printf("  %s %s\n", r.bold.Sprint("Saved to"), r.green.Sprint(summary.OutputPath))
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	fmt.Println()
	fmt.Printf("%s %s\n", r.green.Add(color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) Verbose(message string) {
	fmt.Printf("  %s %s\n", color.New(color.Faint).Sprint("·"), message)
}
