// Command ideas-sessbench measures the hot in-process paths of the
// backend under concurrency: agent session cache lookups, token
// rotation, and vault encrypt/decrypt round trips. It needs no
// external services.
package main

import (
	"bytes"
	"encoding/base64"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/StackRunner1/my-ideas/session"
	"github.com/StackRunner1/my-ideas/vault"
)

func main() {
	var (
		users       = flag.Int("users", 100000, "number of cached agent sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	cache := session.NewCache()
	userIDs := make([]string, *users)

	fmt.Printf("seeding %d sessions...\n", *users)
	startSeed := time.Now()
	for i := 0; i < *users; i++ {
		userID := fmt.Sprintf("user-%d", i)
		userIDs[i] = userID
		cache.Put(userID, agentSession(i))
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runPhase(*ops, *concurrency, func(r *rand.Rand, op int) error {
		agent, ok := cache.Get(userIDs[r.Intn(len(userIDs))])
		if !ok || !agent.Fresh(5*time.Minute) {
			return fmt.Errorf("stale or missing session")
		}
		return nil
	})

	rotateStats := runPhase(*ops, *concurrency, func(r *rand.Rand, op int) error {
		idx := r.Intn(len(userIDs))
		next := agentSession(idx)
		next.AccessToken = fmt.Sprintf("access-%d-%d", idx, op)
		next.RefreshToken = fmt.Sprintf("refresh-%d-%d", idx, op)
		cache.Put(userIDs[idx], next)
		return nil
	})

	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x2a}, 32))
	v, err := vault.New(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vault init failed: %v\n", err)
		os.Exit(1)
	}
	vaultStats := runPhase(*ops, *concurrency, func(r *rand.Rand, op int) error {
		secret := fmt.Sprintf("agent-password-%d", op)
		ciphertext, err := v.Encrypt(secret)
		if err != nil {
			return err
		}
		plaintext, err := v.Decrypt(ciphertext)
		if err != nil {
			return err
		}
		if plaintext != secret {
			return fmt.Errorf("round trip mismatch")
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("rotate", rotateStats)
	printStats("vault", vaultStats)
}

func agentSession(i int) session.Agent {
	return session.Agent{
		AgentUserID:  fmt.Sprintf("agent-%d", i),
		AccessToken:  fmt.Sprintf("access-%d", i),
		RefreshToken: fmt.Sprintf("refresh-%d", i),
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func runPhase(ops, concurrency int, work func(r *rand.Rand, op int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := work(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
