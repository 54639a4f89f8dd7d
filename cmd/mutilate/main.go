// Command mutilate drives a target request rate and operation mix against
// an in-memory cache server, measuring per-operation latency and
// throughput. It is the CLI entry point; everything it does beyond flag
// parsing, connection fan-out, and reporting belongs to
// internal/connection, internal/options, and internal/stats.
//
// Grounded on cmd/kv-bench/main.go's flag/worker/printReport shape,
// generalized from kvgo's fixed-ratio GET/PUT bench loop to the full
// mutilate option surface, and on
// other_examples/memcached-mctester__main.go's errgroup-based connection
// fan-out with a shared tachymeter accumulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jamiealquiza/tachymeter"
	"golang.org/x/sync/errgroup"

	"github.com/andrewbartolo/mutilate/internal/connection"
	"github.com/andrewbartolo/mutilate/internal/options"
	"github.com/andrewbartolo/mutilate/internal/stats"
	"github.com/andrewbartolo/mutilate/internal/transport"
)

// seedMixU64 is the 64-bit golden-ratio multiplier used to decorrelate
// per-connection seeds; kept as a uint64 variable so the int64 conversion
// below wraps at runtime instead of failing as a constant overflow.
var seedMixU64 uint64 = 0x9e3779b97f4a7c15

var (
	server      = flag.String("server", "127.0.0.1:11211", "cache server address")
	network     = flag.String("network", "tcp", "network type: tcp, tcp4, tcp6")
	numConns    = flag.Int("c", 4, "number of connections")
	records     = flag.Int("records", 10000, "size of the key universe")
	depth       = flag.Int("depth", 1, "maximum in-flight operations per connection")
	keySizeStr  = flag.String("keysize", "fixed:16", "key size distribution")
	valSizeStr  = flag.String("valuesize", "fixed:64", "value size distribution")
	iaStr       = flag.String("ia", "", "inter-arrival distribution (overrides -lambda)")
	lambda      = flag.Float64("lambda", 0, "mean arrival rate (ops/sec); 0 = issue as fast as depth allows")
	update      = flag.Float64("update", 0.1, "fraction of ops that are SET when -ratios is unset")
	ratiosStr   = flag.String("ratios", "", "comma-separated sa,slss,slds,ga,gl,da,dl weights")
	absentSeed  = flag.Int("absent-seed", 0, "extra key indices beyond -records reserved as permanently-absent")
	binary      = flag.Bool("binary", false, "use the binary protocol instead of text")
	udp         = flag.Bool("udp", false, "use UDP instead of TCP")
	saslUser    = flag.String("sasl-user", "", "SASL PLAIN username (binary protocol only)")
	saslPass    = flag.String("sasl-pass", "", "SASL PLAIN password (binary protocol only)")
	loaderChunk = flag.Int("loader-chunk", 100, "keys loaded per chunk before the rate-delay pause")
	rateDelay   = flag.Duration("rate-delay", 0, "pause between loader chunks")
	loadOnly    = flag.Bool("loadonly", false, "exit after the loading phase instead of measuring")
	runTime     = flag.Duration("time", 10*time.Second, "duration of the measured phase; 0 = unbounded")
	moderate    = flag.Bool("moderate", false, "enforce a minimum gap since the last response before issuing")
	skip        = flag.Bool("skip", false, "drop arrival slots instead of bursting to catch up when far behind")
	noNoDelay   = flag.Bool("no-nodelay", false, "leave Nagle's algorithm enabled")
	dialTimeout = flag.Duration("dial-timeout", 5*time.Second, "per-connection dial timeout")
)

func main() {
	flag.Parse()

	opts, err := buildOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mutilate:", err)
		os.Exit(1)
	}

	fmt.Printf("mutilate: %d connections, %d records, depth %d, %s protocol, %s\n",
		*numConns, opts.Records, opts.Depth, protoName(opts), *server)

	sink := stats.NewAccumulator(20000)
	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < *numConns; i++ {
		i := i
		g.Go(func() error {
			return runConnection(gctx, i, opts, sink)
		})
	}

	start := time.Now()
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "mutilate:", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	printReport(elapsed, sink)
}

func buildOptions() (*options.Options, error) {
	keySize, err := options.ParseDistribution(*keySizeStr)
	if err != nil {
		return nil, err
	}
	valSize, err := options.ParseDistribution(*valSizeStr)
	if err != nil {
		return nil, err
	}
	ia, err := options.ParseDistribution(*iaStr)
	if err != nil {
		return nil, err
	}

	var intRatios [7]int
	ratioSum := 0
	if *ratiosStr != "" {
		intRatios, ratioSum, err = parseRatios(*ratiosStr)
		if err != nil {
			return nil, err
		}
	}

	opts := &options.Options{
		Lambda:      *lambda,
		Depth:       *depth,
		Records:     *records,
		KeySize:     keySize,
		ValueSize:   valSize,
		IA:          ia,
		Update:      *update,
		IntRatios:   intRatios,
		RatioSum:    ratioSum,
		Binary:      *binary,
		UDP:         *udp,
		SASL:        *saslUser != "",
		Username:    *saslUser,
		Password:    *saslPass,
		LoaderChunk: *loaderChunk,
		RateDelay:   *rateDelay,
		LoadOnly:    *loadOnly,
		Time:        *runTime,
		Moderate:    *moderate,
		Skip:        *skip,
		NoNoDelay:   *noNoDelay,
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// parseRatios parses "sa,slss,slds,ga,gl,da,dl" into Options.IntRatios.
func parseRatios(s string) ([7]int, int, error) {
	var out [7]int
	fields := strings.Split(s, ",")
	if len(fields) != 7 {
		return out, 0, fmt.Errorf("-ratios wants 7 comma-separated weights, got %d", len(fields))
	}
	sum := 0
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 0 {
			return out, 0, fmt.Errorf("-ratios: bad weight %q", f)
		}
		out[i] = n
		sum += n
	}
	return out, sum, nil
}

func protoName(opts *options.Options) string {
	proto := "text"
	if opts.Binary {
		proto = "binary"
	}
	if opts.UDP {
		proto += "/udp"
	} else {
		proto += "/tcp"
	}
	return proto
}

// runConnection dials, connects, loads, and measures on a single
// connection. All of [0, opts.Records) is loaded; when the mixed op table is
// in use, the absentSeed indices just past opts.Records are seeded as
// permanently-absent and never loaded, satisfying the sa/ga/da caller
// contract (spec.md §4.4; see DESIGN.md's Open Question decision).
func runConnection(ctx context.Context, id int, opts *options.Options, sink *stats.Accumulator) error {
	t, err := transport.Dial(*network, *server, opts.UDP, *dialTimeout, opts.NoNoDelay)
	if err != nil {
		return fmt.Errorf("connection %d: %w", id, err)
	}
	defer t.Close()

	seed := time.Now().UnixNano() ^ int64(id)*int64(seedMixU64)
	conn := connection.New(opts, t, sink, seed)

	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("connection %d: %w", id, err)
	}

	loadCount := opts.Records
	if opts.RatioSum > 0 && *absentSeed > 0 {
		absentIndices := make([]int, *absentSeed)
		for i := range absentIndices {
			absentIndices[i] = opts.Records + i
		}
		conn.NoteAbsentKeys(absentIndices)
	}

	if err := conn.Load(ctx, loadCount); err != nil {
		return fmt.Errorf("connection %d: load: %w", id, err)
	}

	if err := conn.Run(ctx); err != nil {
		return fmt.Errorf("connection %d: %w", id, err)
	}
	return nil
}

func printReport(d time.Duration, sink *stats.Accumulator) {
	snap := sink.Calc()
	total := snap.Get.Count + snap.Set.Count + snap.Delete.Count

	fmt.Println("\n--- Results ---")
	fmt.Printf("Duration:       %v\n", d)
	fmt.Printf("Total ops:      %d (%.0f ops/s)\n", total, float64(total)/d.Seconds())
	fmt.Printf("GET hits/misses: %d / %d\n", snap.GetHits, snap.GetMisses)
	fmt.Printf("Skipped slots:  %d\n", snap.Skips)
	fmt.Printf("RX / TX bytes:  %d / %d\n", snap.RxBytes, snap.TxBytes)
	fmt.Printf("Queue depth:    mean %.2f, max %d\n", snap.MeanQueueDepth, snap.MaxQueueDepth)

	fmt.Println("\nGET latency:")
	printLatency(snap.Get)
	fmt.Println("\nSET latency:")
	printLatency(snap.Set)
	fmt.Println("\nDELETE latency:")
	printLatency(snap.Delete)
}

func printLatency(m *tachymeter.Metrics) {
	fmt.Println(m.String())
}
