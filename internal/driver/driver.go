// Package driver implements C4: running exactly one backtest of a
// generated program against one WindowSpec and producing one
// domain.WindowOutcome, in either a local subprocess mode or a cloud
// mode polling a remote API, with rate-limit/timeout retry and orphan
// cleanup wrapped in a circuit breaker and a pacing limiter.
package driver

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	cb "github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/errs"
)

// Runner executes one prepared program against one window and returns
// raw combined output, an exit code, and whether the attempt hit the
// driver's own timeout. Local and cloud execution modes each provide one.
type Runner interface {
	Run(ctx context.Context, program string, w domain.WindowSpec, timeout time.Duration) (output string, exitCode int, timedOut bool, err error)
}

// QuotaCounter tracks the cloud mode's per-day remote project-creation
// quota; RedisQuotaCounter backs it with Redis, and an in-process
// fallback is used when no Redis is configured.
type QuotaCounter interface {
	Increment(ctx context.Context) (count int64, err error)
}

// OrphanCleaner is implemented by execution backends that can free
// remote capacity by canceling old orphaned backtests (CloudRunner);
// local execution has no such concept and simply doesn't implement it.
type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context) (freed int, err error)
}

// Driver is C4's entry point: Run executes one window, retrying up to
// three times on rate-limit signals. A retry only happens when a
// cleanup pass of other orphaned remote backtests actually freed
// capacity; each retry is separated by a 30-60s backoff.
type Driver struct {
	runner  Runner
	breaker *cb.CircuitBreaker
	pacer   *rate.Limiter
	quota   QuotaCounter
	timeout time.Duration
	sleep   func(time.Duration)
	rng     *rand.Rand
}

// New builds a Driver. quota may be nil for local-only execution, which
// never consumes the cloud per-day quota.
func New(runner Runner, quota QuotaCounter, timeout time.Duration) *Driver {
	st := cb.Settings{Name: "backtest-driver"}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return &Driver{
		runner:  runner,
		breaker: cb.NewCircuitBreaker(st),
		pacer:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		quota:   quota,
		timeout: timeout,
		sleep:   time.Sleep,
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Run drives exactly one window to a WindowOutcome. program must already
// have had C4's date-rewriter applied by the caller (the walk-forward
// aggregator owns sequencing across windows; the driver only executes).
func (d *Driver) Run(ctx context.Context, program string, w domain.WindowSpec) (domain.WindowOutcome, error) {
	const maxAttempts = 4 // the first run plus up to three retries
	var last classification
	var lastOutput string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := d.pacer.Wait(ctx); err != nil {
			return domain.WindowOutcome{}, err
		}

		result, err := d.breaker.Execute(func() (any, error) {
			return d.attempt(ctx, program, w)
		})
		if err != nil {
			return domain.WindowOutcome{}, errs.Wrap(errs.ErrEngineCrash, fmt.Sprintf("breaker open or attempt failed: %v", err))
		}
		attemptResult := result.(attemptOutcome)
		last = attemptResult.classification
		lastOutput = attemptResult.output

		if !last.rateLimited {
			break
		}
		if attempt == maxAttempts {
			break
		}
		if freed := d.cleanupOrphans(ctx); freed == 0 {
			break
		}
		d.sleep(d.backoff())
	}

	return toOutcome(w.ID, last, lastOutput), nil
}

// cleanupOrphans runs a cleanup pass if the underlying runner supports
// one, reporting how much capacity it freed. Local execution's Runner
// never implements OrphanCleaner, so this is always a no-op there.
func (d *Driver) cleanupOrphans(ctx context.Context) int {
	cleaner, ok := d.runner.(OrphanCleaner)
	if !ok {
		return 0
	}
	freed, err := cleaner.CleanupOrphans(ctx)
	if err != nil {
		return 0
	}
	return freed
}

type attemptOutcome struct {
	classification classification
	output         string
}

func (d *Driver) attempt(ctx context.Context, program string, w domain.WindowSpec) (attemptOutcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	output, exitCode, timedOut, err := d.runner.Run(runCtx, program, w, d.timeout)
	if err != nil && !timedOut {
		return attemptOutcome{}, err
	}
	if timedOut {
		return attemptOutcome{classification: classification{rateLimited: true, reason: "timed out, treated as rate limit"}, output: output}, nil
	}
	return attemptOutcome{classification: classify(output, exitCode), output: output}, nil
}

func (d *Driver) backoff() time.Duration {
	return 30*time.Second + time.Duration(d.rng.Intn(30))*time.Second
}

func toOutcome(windowID int, c classification, rawOutput string) domain.WindowOutcome {
	out := domain.WindowOutcome{
		WindowID:    windowID,
		Success:     c.success,
		Error:       c.reason,
		RawOutput:   rawOutput,
		RateLimited: c.rateLimited,
		EngineCrash: c.engineCrash,
	}
	if c.stats != nil {
		if v, ok := c.stats["Sharpe Ratio"]; ok {
			out.Sharpe = &v
		}
		if v, ok := c.stats["Compounding Annual Return"]; ok {
			cagr := v / 100.0
			out.CAGR = &cagr
		}
		if v, ok := c.stats["Drawdown"]; ok {
			dd := v / 100.0
			out.MaxDrawdown = &dd
		}
		if v, ok := c.stats["Alpha"]; ok {
			out.Alpha = &v
		}
		if v, ok := c.stats["Net Profit"]; ok {
			tr := v / 100.0
			out.TotalReturn = &tr
		}
		if v, ok := c.stats["Win Rate"]; ok {
			wr := v / 100.0
			out.WinRate = &wr
		}
		if v, ok := c.stats["Total Orders"]; ok {
			n := int(v)
			out.TotalTrades = &n
		}
	}
	return out
}
