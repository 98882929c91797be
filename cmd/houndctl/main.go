// Command houndctl is a minimal demo binary: it registers the counter
// reference driver, subscribes to its stream, and prints a handful of
// records.
// CLI utilities are explicitly out of scope as a production surface; this
// exists only to exercise the library end to end from a real process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"hound"
	"hound/drivers/counter"
)

func main() {
	var (
		period = flag.Duration("period", 10*time.Millisecond, "sample period")
		count  = flag.Int("count", 10, "number of records to print")
	)
	flag.Parse()

	h := hound.New(hound.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	defer h.Close()

	if err := h.RegisterOps("counter", counter.New); err != nil {
		fmt.Fprintln(os.Stderr, "register:", err)
		os.Exit(1)
	}

	schemaFile, err := writeCounterSchema()
	if err != nil {
		fmt.Fprintln(os.Stderr, "schema:", err)
		os.Exit(1)
	}
	defer os.Remove(schemaFile)

	if err := h.InitDriver("counter", "counter0", "", schemaFile, nil); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}

	ctx, err := h.AllocCtx(hound.RequestList{{DataID: counter.DataID, Period: hound.Period(*period)}}, 1000, func(rec hound.Record) {
		fmt.Printf("seq=%d dev=%d bytes=%d\n", rec.SeqNo, rec.DevID, len(rec.Payload))
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "alloc ctx:", err)
		os.Exit(1)
	}
	defer ctx.Stop()

	if _, err := ctx.Read(context.Background(), *count); err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
}

// writeCounterSchema renders the counter driver's schema to a temp file,
// since InitDriver loads schemas from disk rather than taking them
// in-memory.
func writeCounterSchema() (string, error) {
	var b strings.Builder
	for i, d := range counter.Schema() {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "id: %d\nname: %s\nfmt:\n", d.DataID, d.Name)
		for _, f := range d.Formats {
			fmt.Fprintf(&b, "  - name: %s\n    unit: %s\n    type: %s\n    size: %d\n",
				f.Name, f.Unit.String(), f.Type.String(), f.Length)
		}
	}

	f, err := os.CreateTemp("", "houndctl-schema-*.yaml")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return "", err
	}
	return f.Name(), nil
}
