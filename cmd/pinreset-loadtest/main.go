// Command pinreset-loadtest drives concurrent reset requests and confirms
// against an Engine backed by Redis (or miniredis) and the memory store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/pinreset"
	"github.com/MrEthical07/pinreset/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var linkPattern = regexp.MustCompile(`https?://\S+/reset-pin\?token=\S+`)

// tokenMailer keeps the last token mailed to each address.
type tokenMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *tokenMailer) Send(_ context.Context, msg pinreset.Message) error {
	match := linkPattern.FindString(msg.Text)
	if match == "" {
		return errors.New("reset link missing from message")
	}
	u, err := url.Parse(match)
	if err != nil {
		return err
	}
	tok := u.Query().Get("token")
	m.mu.Lock()
	m.tokens[msg.To] = tok
	m.mu.Unlock()
	return nil
}

func (m *tokenMailer) token(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[to]
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "users and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := memory.New()
	emails := make([]string, *users)
	for i := range emails {
		emails[i] = fmt.Sprintf("%04dLT%03d@curaj.ac.in", 1000+i/1000, i%1000)
		if err := store.Put(pinreset.UserRecord{
			UserID:   fmt.Sprintf("lt-%d", i),
			Email:    emails[i],
			Verified: true,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := pinreset.DefaultConfig()
	cfg.Token.SigningKey = []byte("pinreset-loadtest-signing-key-0123456789")
	cfg.Mail.ResetURLBase = "http://localhost:3000"
	cfg.Security.EnumerationDelayMin = 0
	cfg.Security.EnumerationDelayMax = 0
	cfg.PIN.Memory = 8 * 1024
	cfg.PIN.Parallelism = 1

	mailer := &tokenMailer{tokens: make(map[string]string, *users)}
	engine, err := pinreset.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(store).
		WithMailer(mailer).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	requestStats := runPhase(*users, *concurrency, func(i int) error {
		return engine.RequestPINReset(ctx, emails[i])
	})
	confirmStats := runPhase(*users, *concurrency, func(i int) error {
		return engine.ConfirmPINReset(ctx, mailer.token(emails[i]), "4821")
	})

	fmt.Println("---- results ----")
	requestStats.print("request")
	confirmStats.print("confirm")

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: mailed=%d confirmed=%d rate_limited=%d contended=%d\n",
		snap.Counters[pinreset.MetricResetRequest],
		snap.Counters[pinreset.MetricResetConfirmSuccess],
		snap.Counters[pinreset.MetricResetRateLimited],
		snap.Counters[pinreset.MetricResetRequestContended],
	)
}

// runPhase spreads ops over concurrency workers. Each worker keeps its own
// samples; they are merged once the phase ends.
func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
	type workerResult struct {
		samples  []time.Duration
		failures map[pinreset.ErrorKind]int
	}

	var (
		wg      sync.WaitGroup
		cursor  atomic.Int64
		results = make([]workerResult, concurrency)
	)

	start := time.Now()
	for w := range results {
		wg.Add(1)
		go func(res *workerResult) {
			defer wg.Done()
			res.failures = map[pinreset.ErrorKind]int{}
			for {
				i := int(cursor.Add(1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				if err := op(i); err != nil {
					res.failures[pinreset.KindOf(err)]++
				}
				res.samples = append(res.samples, time.Since(t0))
			}
		}(&results[w])
	}
	wg.Wait()

	stats := phaseStats{elapsed: time.Since(start), failures: map[pinreset.ErrorKind]int{}}
	for _, res := range results {
		stats.samples = append(stats.samples, res.samples...)
		for kind, n := range res.failures {
			stats.failures[kind] += n
		}
	}
	sort.Slice(stats.samples, func(i, j int) bool { return stats.samples[i] < stats.samples[j] })
	return stats
}

type phaseStats struct {
	elapsed  time.Duration
	samples  []time.Duration
	failures map[pinreset.ErrorKind]int
}

// quantile returns the q-th sample of the sorted set, q in [0,1].
func (s phaseStats) quantile(q float64) time.Duration {
	if len(s.samples) == 0 {
		return 0
	}
	return s.samples[int(q*float64(len(s.samples)-1))]
}

func (s phaseStats) print(name string) {
	rate := 0.0
	if s.elapsed > 0 {
		rate = float64(len(s.samples)) / s.elapsed.Seconds()
	}
	fmt.Printf("%s: ops=%d elapsed=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, len(s.samples), s.elapsed.Round(time.Millisecond), rate,
		s.quantile(0.50).Round(time.Microsecond),
		s.quantile(0.95).Round(time.Microsecond),
		s.quantile(0.99).Round(time.Microsecond),
	)
	for kind, n := range s.failures {
		fmt.Printf("  failures kind=%s count=%d\n", kind, n)
	}
}
