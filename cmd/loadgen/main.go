package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledgerpool/pkg/bufferpool"
	"ledgerpool/pkg/catalog"
	"ledgerpool/pkg/dberr"
	"ledgerpool/pkg/debugui"
	"ledgerpool/pkg/logfile"
	"ledgerpool/pkg/logging"
	"ledgerpool/pkg/page"
	"ledgerpool/pkg/primitives"
	"ledgerpool/pkg/txn"
)

type Configuration struct {
	DataDir      string
	PoolSize     int
	Workers      int
	Transactions int
	PagesPerTxn  int
	Tables       int
	HotPages     int
	WriteRatio   float64
	Seed         int64
	MetricsAddr  string
	UI           bool
	LogLevel     string
}

func main() {
	config := parseArguments()

	log, err := logging.New(logging.Config{Level: config.LogLevel, Format: "console", OutputFile: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	bp, cleanup, err := initializePool(config, log)
	if err != nil {
		log.Fatal("failed to initialize buffer pool", zap.Error(err))
	}
	defer cleanup()

	if config.MetricsAddr != "" {
		startMetricsServer(config.MetricsAddr, log)
	}

	if config.UI {
		go func() {
			if err := runLoad(config, bp, log); err != nil {
				log.Error("load run failed", zap.Error(err))
			}
		}()
		if err := debugui.Run(bp); err != nil {
			log.Fatal("inspector failed", zap.Error(err))
		}
		return
	}

	if err := runLoad(config, bp, log); err != nil {
		log.Fatal("load run failed", zap.Error(err))
	}
}

func parseArguments() Configuration {
	var config Configuration

	flag.StringVar(&config.DataDir, "data", "./data", "Data directory path")
	flag.IntVar(&config.PoolSize, "pool", bufferpool.DefaultNumPages, "Buffer pool capacity in pages")
	flag.IntVar(&config.Workers, "workers", 8, "Concurrent transaction workers")
	flag.IntVar(&config.Transactions, "txns", 100, "Transactions per worker")
	flag.IntVar(&config.PagesPerTxn, "pages-per-txn", 4, "Pages touched per transaction")
	flag.IntVar(&config.Tables, "tables", 2, "Distinct tables in the working set")
	flag.IntVar(&config.HotPages, "pages", 32, "Distinct pages per table in the working set")
	flag.Float64Var(&config.WriteRatio, "write-ratio", 0.3, "Fraction of page accesses that write")
	flag.Int64Var(&config.Seed, "seed", 1, "Base RNG seed (worker i uses seed+i)")
	flag.StringVar(&config.MetricsAddr, "metrics", "", "Address to serve Prometheus metrics on (e.g. :9090); empty disables")
	flag.BoolVar(&config.UI, "ui", false, "Run the live inspector while the load runs")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	return config
}

// initializePool wires the catalog, write-ahead log, metrics registry
// and buffer pool together under the data directory.
func initializePool(config Configuration, log *zap.Logger) (*bufferpool.BufferPool, func(), error) {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	cat := catalog.New(config.DataDir, page.DefaultSize)
	wal, err := logfile.Open(filepath.Join(config.DataDir, "wal.log"))
	if err != nil {
		cat.Close()
		return nil, nil, err
	}

	cfg := bufferpool.Config{NumPages: config.PoolSize, PageSize: page.DefaultSize}
	bp := bufferpool.New(cfg, cat, wal, registry, log)

	cleanup := func() {
		wal.Close()
		cat.Close()
	}
	return bp, cleanup, nil
}

// registry is the process-wide metrics registry the pool registers its
// collectors on and the -metrics endpoint serves from.
var registry = prometheus.NewRegistry()

func startMetricsServer(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// runLoad fans out config.Workers goroutines, each driving
// config.Transactions transactions against the pool, and reports
// commit/abort totals. Lock-budget aborts are expected under
// contention and are counted, not treated as failures; any other error
// stops the whole run.
func runLoad(config Configuration, bp *bufferpool.BufferPool, log *zap.Logger) error {
	var commits, aborts atomic.Int64
	start := time.Now()

	var g errgroup.Group
	for i := 0; i < config.Workers; i++ {
		rng := rand.New(rand.NewSource(config.Seed + int64(i)))
		g.Go(func() error {
			for j := 0; j < config.Transactions; j++ {
				committed, err := runTransaction(config, bp, rng)
				if err != nil {
					return err
				}
				if committed {
					commits.Add(1)
				} else {
					aborts.Add(1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	total := commits.Load() + aborts.Load()
	log.Info("load run complete",
		zap.Int64("transactions", total),
		zap.Int64("commits", commits.Load()),
		zap.Int64("aborts", aborts.Load()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("txns_per_sec", float64(total)/elapsed.Seconds()),
	)
	return nil
}

// runTransaction touches config.PagesPerTxn random pages, writing to a
// WriteRatio fraction of them, then commits. It reports committed=false
// when a lock conflict exhausts the retry budget, after aborting the
// transaction the way the pool's contract requires.
func runTransaction(config Configuration, bp *bufferpool.BufferPool, rng *rand.Rand) (bool, error) {
	tid := txn.New()

	for k := 0; k < config.PagesPerTxn; k++ {
		tableID := primitives.TableID(1 + rng.Intn(config.Tables))
		pageNum := primitives.PageNumber(rng.Intn(config.HotPages))
		pid := page.New(tableID, pageNum)

		write := rng.Float64() < config.WriteRatio
		perm := bufferpool.ReadOnly
		if write {
			perm = bufferpool.ReadWrite
		}

		p, err := bp.GetPage(tid, pid, perm)
		if err != nil {
			if errors.Is(err, dberr.ErrTransactionAborted) {
				if cerr := bp.TransactionComplete(tid, false); cerr != nil {
					return false, cerr
				}
				return false, nil
			}
			return false, err
		}

		if write {
			data := p.Bytes()
			if len(data) >= 8 {
				rng.Read(data[:8])
			}
			p.MarkDirty(true, tid)
		}
	}

	if err := bp.TransactionComplete(tid, true); err != nil {
		return false, err
	}
	return true, nil
}
