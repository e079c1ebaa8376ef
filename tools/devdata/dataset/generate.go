// Package dataset builds synthetic and subset Maildir trees for development
// and benchmarking.
package dataset

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Messages int    // number of message files
	People   int    // size of the address pool (default 500)
	Seed     uint64 // PRNG seed; equal seeds produce identical trees
	BodySize int    // approximate body bytes per message (default 2048)
}

// GenerateResult holds the summary of a Generate run.
type GenerateResult struct {
	Messages int
	Entries  int // address entries written across From, To and Cc
	Bytes    int64
	Elapsed  time.Duration
}

type person struct {
	name    string // header-ready display form, possibly encoded or quoted
	address string
}

var (
	firstNames = []string{"Jane", "John", "Ana", "Jürgen", "Zoë", "Björn", "Siobhán", "Li", "Amélie", "Ravi", "Olga", "Tomás"}
	lastNames  = []string{"Doe", "Smith", "Müller", "Núñez", "O'Brien", "García", "Kowalski", "Nakamura", "Øster", "Lefèvre"}
	domains    = []string{"example.com", "example.org", "example.net", "mail.example.de", "corp.example"}
)

// Generate writes a Maildir (cur, new, tmp) under dir with opts.Messages
// synthetic messages. Sender frequencies follow a Zipf distribution so the
// ranking has a long tail. Display names mix plain, quoted, Q-encoded and
// B-encoded forms.
func Generate(dir string, opts GenerateOptions) (*GenerateResult, error) {
	start := time.Now()
	if opts.Messages < 0 {
		return nil, fmt.Errorf("message count must be non-negative, got %d", opts.Messages)
	}
	if opts.People <= 0 {
		opts.People = 500
	}
	if opts.BodySize <= 0 {
		opts.BodySize = 2048
	}

	for _, sub := range []string{"cur", "new", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create maildir: %w", err)
		}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	people := makePeople(rng, opts.People)
	zipf := rand.NewZipf(rng, 1.2, 1, uint64(len(people)-1))
	pick := func() person { return people[zipf.Uint64()] }

	res := &GenerateResult{}
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < opts.Messages; i++ {
		var b strings.Builder
		from := pick()
		fmt.Fprintf(&b, "Return-Path: <%s>\r\n", from.address)
		fmt.Fprintf(&b, "Date: %s\r\n", base.Add(time.Duration(i)*time.Hour).Format(time.RFC1123Z))
		fmt.Fprintf(&b, "From: %s\r\n", formatAddress(from))
		res.Entries++

		to := make([]string, 1+rng.IntN(3))
		for j := range to {
			to[j] = formatAddress(pick())
		}
		// Long recipient lists are folded onto continuation lines.
		fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ",\r\n\t"))
		res.Entries += len(to)

		if n := rng.IntN(3); n > 0 {
			cc := make([]string, n)
			for j := range cc {
				cc[j] = formatAddress(pick())
			}
			fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(cc, ", "))
			res.Entries += n
		}

		fmt.Fprintf(&b, "Subject: Message %d\r\n", i)
		fmt.Fprintf(&b, "Message-ID: <%d.%d@devdata.example>\r\n", i, opts.Seed)
		b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
		writeBody(&b, rng, opts.BodySize)

		sub := "cur"
		if i%10 == 0 {
			sub = "new"
		}
		name := fmt.Sprintf("%d.%d_%d.devdata:2,S", base.Unix()+int64(i), opts.Seed, i)
		data := []byte(b.String())
		if err := os.WriteFile(filepath.Join(dir, sub, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("write message %d: %w", i, err)
		}
		res.Messages++
		res.Bytes += int64(len(data))
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func makePeople(rng *rand.Rand, n int) []person {
	people := make([]person, n)
	for i := range people {
		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]
		local := strings.ToLower(asciiFold(first) + "." + asciiFold(last))
		people[i] = person{
			name:    encodeName(rng, first+" "+last, i),
			address: fmt.Sprintf("%s%d@%s", local, i, domains[rng.IntN(len(domains))]),
		}
	}
	return people
}

// encodeName renders a display name in one of the header forms seen in
// real mail.
func encodeName(rng *rand.Rand, name string, i int) string {
	switch i % 5 {
	case 0:
		return ""
	case 1:
		// Last, First needs quoting.
		parts := strings.SplitN(name, " ", 2)
		return `"` + strings.ReplaceAll(parts[1], `"`, `\"`) + ", " + parts[0] + `"`
	case 2:
		if isASCII(name) {
			return name
		}
		return "=?utf-8?q?" + qEncode(name) + "?="
	case 3:
		return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(name)) + "?="
	}
	if rng.IntN(2) == 0 || !isASCII(name) {
		return `"` + name + `"`
	}
	return name
}

func formatAddress(p person) string {
	if p.name == "" {
		return p.address
	}
	return p.name + " <" + p.address + ">"
}

func qEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}
	return b.String()
}

var foldMap = map[rune]string{
	'ü': "ue", 'ö': "oe", 'ä': "ae", 'ë': "e", 'é': "e", 'è': "e", 'á': "a",
	'ñ': "n", 'ú': "u", 'ó': "o", 'Ø': "O", 'ø': "o", '\'': "",
}

func asciiFold(s string) string {
	var b strings.Builder
	for _, r := range s {
		if rep, ok := foldMap[r]; ok {
			b.WriteString(rep)
			continue
		}
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

const lorem = "lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua"

func writeBody(b *strings.Builder, rng *rand.Rand, size int) {
	words := strings.Fields(lorem)
	line := 0
	for n := 0; n < size; {
		w := words[rng.IntN(len(words))]
		b.WriteString(w)
		n += len(w) + 1
		line += len(w) + 1
		if line > 70 {
			b.WriteString("\r\n")
			line = 0
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString("\r\n")
}
