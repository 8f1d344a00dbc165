package memory

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/srodi/ures/pkg/types"
)

// pssAdjustKB compensates for the kernel truncating Pss to whole kB.
const pssAdjustKB = 0.5

// smapsBlock holds the fields of one mapping in /proc/PID/smaps, in kB.
type smapsBlock struct {
	name    string
	rss     uint64
	pss     uint64
	private uint64
	hasPss  bool
	invalid bool // a counter field did not parse
}

// records splits a mapping into its private part (share count 1) and its
// shared part, whose share count is recovered from Pss. A mapping whose Pss
// is missing yields a shared record without a share count, as does a mapping
// with an unparsable counter, so the calculator skips just that mapping.
func (b smapsBlock) records(pid int) []types.MappingRecord {
	if b.invalid {
		return []types.MappingRecord{{PID: pid, SizeBytes: b.rss * 1024, Name: b.name}}
	}
	if b.rss == 0 {
		return nil
	}
	private := min(b.private, b.rss)
	shared := b.rss - private

	var out []types.MappingRecord
	if private > 0 {
		out = append(out, types.MappingRecord{PID: pid, SizeBytes: private * 1024, ShareCount: 1, Name: b.name})
	}
	if shared > 0 {
		var count uint32
		if b.hasPss {
			count = shareCount(shared, b.pss, private)
		}
		out = append(out, types.MappingRecord{PID: pid, SizeBytes: shared * 1024, ShareCount: count, Name: b.name})
	}
	return out
}

func shareCount(sharedKB, pssKB, privateKB uint64) uint32 {
	sharedPss := float64(pssKB) - float64(privateKB)
	if sharedPss < 0 {
		sharedPss = 0
	}
	n := math.Round(float64(sharedKB) / (sharedPss + pssAdjustKB))
	switch {
	case n < 2:
		return 2
	case n > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(n)
}

// parseSmaps converts the contents of /proc/PID/smaps into mapping records.
// Only a read failure is an error.
func parseSmaps(r io.Reader, pid int) ([]types.MappingRecord, error) {
	var (
		records []types.MappingRecord
		cur     *smapsBlock
	)
	flush := func() {
		if cur != nil {
			records = append(records, cur.records(pid)...)
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if !strings.HasSuffix(fields[0], ":") {
			flush()
			cur = &smapsBlock{name: mappingName(fields)}
			continue
		}
		if cur == nil || len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		switch key {
		case "Rss", "Pss", "Private_Clean", "Private_Dirty":
		default:
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			cur.invalid = true
			continue
		}
		switch key {
		case "Rss":
			cur.rss = kb
		case "Pss":
			cur.pss = kb
			cur.hasPss = true
		default:
			cur.private += kb
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return records, nil
}

// mappingName returns the pathname column of a maps header line.
func mappingName(fields []string) string {
	if len(fields) < 6 {
		return "[anon]"
	}
	return strings.Join(fields[5:], " ")
}
