package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowsketch/pkg/observability"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps that writes to w
// at the given level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// enableVerbose switches to debug output and routes the inference, render and
// cache hooks to the CLI logger. The hooks are process-wide.
func (c *CLI) enableVerbose() {
	c.SetLogLevel(LogDebug)
	observability.NewLogHooks(c.Logger).Register()
}

// progress times one step of a command (a model request, a render) and logs
// the duration at debug level.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. `rendered diagram took=1.234s`.
func (p *progress) done(msg string) {
	p.logger.Debug(msg, "took", time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches the CLI logger so command helpers log through it.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
