package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nuggetsync/nuggetauth/session"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type seeded struct {
	token string
	ip    string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisURL    = flag.String("redis-url", "", "redis URL; if empty, REDIS_URL env or miniredis is used")
		prefix      = flag.String("prefix", session.DefaultKeyPrefix, "session key prefix")
		mismatchPct = flag.Int("mismatch-pct", 1, "percent of requests in the mixed phase sent from another address")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	manager, err := session.NewManager(session.NewRedisStore(client, *prefix, 2*time.Second), session.Policy{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "manager: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	states, err := seed(ctx, manager, *sessions, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(ctx, manager, states, *ops, *concurrency, 0)
	mixedStats := runPhase(ctx, manager, states, *ops, *concurrency, *mismatchPct)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("mixed", mixedStats)
}

func connect(url string) (redis.UniversalClient, func(), error) {
	if url == "" {
		url = os.Getenv("REDIS_URL")
	}
	if url == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	fmt.Printf("using redis at %s\n", opts.Addr)
	return client, func() { _ = client.Close() }, nil
}

func seed(ctx context.Context, manager *session.Manager, n, concurrency int) ([]seeded, error) {
	states := make([]seeded, n)
	var cursor int64

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n {
					return nil
				}
				ip := fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xff, (i>>8)&0xff, i&0xff)
				token, err := manager.Issue(ctx, int64(i+1), ip)
				if err != nil {
					return err
				}
				states[i] = seeded{token: token, ip: ip}
			}
		})
	}
	return states, g.Wait()
}

// runPhase issues ops validations. mismatchPct of them come from an address
// other than the issuing one, which revokes that session.
func runPhase(ctx context.Context, manager *session.Manager, states []seeded, ops, concurrency, mismatchPct int) phaseStats {
	var (
		cursor   int64
		failures int64
		rejected int64
	)
	perWorker := make([][]time.Duration, concurrency)

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
			samples := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					perWorker[w] = samples
					return nil
				}
				st := states[r.Intn(len(states))]
				ip := st.ip
				if mismatchPct > 0 && r.Intn(100) < mismatchPct {
					ip = "192.0.2.1"
				}

				t0 := time.Now()
				_, err := manager.Validate(ctx, st.token, ip)
				samples = append(samples, time.Since(t0))

				switch {
				case err == nil:
				case errors.Is(err, session.ErrRejected):
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
			}
		})
	}
	_ = g.Wait()
	total := time.Since(start)

	var all []time.Duration
	for _, s := range perWorker {
		all = append(all, s...)
	}
	stats := computeStats(total, all, failures)
	stats.rejected = rejected
	return stats
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	rejected int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d rejected=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.rejected,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
