// Address Parser Shootout
//
// Compares the mailaddrs header parser against enmime's address lists.
// Walks a directory of raw messages, parses each with both, and reports
// per-field match rates with examples of each kind of disagreement.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/wesm/mailaddrs/internal/mime"
	"github.com/wesm/mailaddrs/internal/walk"
)

type Address struct {
	Name  string
	Email string
}

type MismatchType string

const (
	MismatchAddresses  MismatchType = "addresses"
	MismatchNames      MismatchType = "names"
	MismatchOursEmpty  MismatchType = "ours_empty"
	MismatchEnmimeNone MismatchType = "enmime_empty"
)

type MismatchExample struct {
	Path        string
	Field       mime.Field
	Type        MismatchType
	OursValue   string
	EnmimeValue string
}

var fields = []mime.Field{mime.FieldFrom, mime.FieldTo, mime.FieldCc, mime.FieldBcc}

func main() {
	var dir string
	var limit int
	var showExamples int

	flag.StringVar(&dir, "dir", "", "Directory of raw messages (required)")
	flag.IntVar(&limit, "limit", 0, "Number of messages to test (0 = all)")
	flag.IntVar(&showExamples, "examples", 5, "Number of examples to show per mismatch type")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if dir == "" {
		logger.Error("missing -dir")
		os.Exit(2)
	}
	root, err := walk.CheckRoot(dir)
	if err != nil {
		logger.Error("invalid directory", "error", err, "path", dir)
		os.Exit(1)
	}

	var (
		total        int
		readErrors   int
		enmimeErrors int
		perfect      int
	)
	fieldMatches := make(map[mime.Field]int)
	mismatchCounts := make(map[MismatchType]int)
	mismatchExamples := make(map[MismatchType][]MismatchExample)

	errStop := errors.New("limit reached")
	w := &walk.Walker{OnError: func(path string, err error) {
		logger.Warn("failed to read directory entry", "path", path, "error", err)
	}}
	err = w.Walk(context.Background(), root, func(path string) error {
		if limit > 0 && total >= limit {
			return errStop
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			readErrors++
			return nil
		}
		total++
		if total%10000 == 0 {
			logger.Info("progress", "processed", total)
		}

		env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
		if err != nil {
			enmimeErrors++
			return nil
		}

		ours := groupByField(mime.ParseAddresses(raw))
		clean := true
		for _, f := range fields {
			theirs := enmimeAddresses(env, f)
			mt, ok := compare(ours[f], theirs)
			if ok {
				fieldMatches[f]++
				continue
			}
			clean = false
			mismatchCounts[mt]++
			if len(mismatchExamples[mt]) < showExamples {
				mismatchExamples[mt] = append(mismatchExamples[mt], MismatchExample{
					Path:        path,
					Field:       f,
					Type:        mt,
					OursValue:   formatAddresses(ours[f]),
					EnmimeValue: formatAddresses(theirs),
				})
			}
		}
		if clean {
			perfect++
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		logger.Error("walk failed", "error", err)
		os.Exit(1)
	}

	parsed := total - enmimeErrors

	fmt.Printf("\n=== ADDRESS PARSER SHOOTOUT (%d messages) ===\n\n", total)
	fmt.Printf("Read errors:   %d\n", readErrors)
	fmt.Printf("Enmime errors: %d (%.2f%%)\n", enmimeErrors, pct(enmimeErrors, total))
	fmt.Printf("Perfect:       %d (%.2f%%)\n", perfect, pct(perfect, parsed))

	fmt.Printf("\n--- Field-Level Match Rates ---\n")
	for _, f := range fields {
		fmt.Printf("%-5s %d / %d (%.2f%%)\n", f.String()+":", fieldMatches[f], parsed, pct(fieldMatches[f], parsed))
	}

	order := []MismatchType{MismatchAddresses, MismatchNames, MismatchOursEmpty, MismatchEnmimeNone}
	fmt.Printf("\n--- Mismatch Breakdown ---\n")
	for _, mt := range order {
		if count := mismatchCounts[mt]; count > 0 {
			fmt.Printf("%-14s: %d\n", mt, count)
		}
	}

	fmt.Printf("\n--- Examples of Each Mismatch Type ---\n")
	for _, mt := range order {
		examples := mismatchExamples[mt]
		if len(examples) == 0 {
			continue
		}
		fmt.Printf("\n[%s] (%d total)\n", mt, mismatchCounts[mt])
		for _, ex := range examples {
			fmt.Printf("  %s (%s)\n", ex.Path, ex.Field)
			fmt.Printf("    Ours:   %s\n", truncate(ex.OursValue, 100))
			fmt.Printf("    Enmime: %s\n", truncate(ex.EnmimeValue, 100))
		}
	}
}

func groupByField(entries []mime.Entry) map[mime.Field][]Address {
	out := make(map[mime.Field][]Address)
	for _, e := range entries {
		out[e.Field] = append(out[e.Field], Address{Name: e.Name, Email: e.Address})
	}
	return out
}

func enmimeAddresses(env *enmime.Envelope, f mime.Field) []Address {
	list, err := env.AddressList(f.String())
	if err != nil {
		return nil
	}
	addresses := make([]Address, 0, len(list))
	for _, a := range list {
		addresses = append(addresses, Address{Name: a.Name, Email: a.Address})
	}
	return addresses
}

// compare reports whether both parsers found the same addresses and names,
// ignoring order and address case.
func compare(ours, theirs []Address) (MismatchType, bool) {
	switch {
	case len(ours) == 0 && len(theirs) == 0:
		return "", true
	case len(ours) == 0:
		return MismatchOursEmpty, false
	case len(theirs) == 0:
		return MismatchEnmimeNone, false
	}
	if !slices.Equal(emails(ours), emails(theirs)) {
		return MismatchAddresses, false
	}
	if !slices.Equal(names(ours), names(theirs)) {
		return MismatchNames, false
	}
	return "", true
}

func emails(as []Address) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, normalizeEmail(a.Email))
	}
	slices.Sort(out)
	return out
}

func names(as []Address) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, normalizeEmail(a.Email)+"\x00"+strings.TrimSpace(a.Name))
	}
	slices.Sort(out)
	return out
}

func formatAddresses(as []Address) string {
	if len(as) == 0 {
		return "(empty)"
	}
	parts := make([]string, 0, len(as))
	for _, a := range as {
		parts = append(parts, fmt.Sprintf("%q <%s>", a.Name, a.Email))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
