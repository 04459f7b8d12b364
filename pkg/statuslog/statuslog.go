// Package statuslog reads and appends the per-dataset status log, a
// line-oriented file named ".status" in the dataset's directory:
//
//	STAT:<timestamp>:<major>:<minor>:<status>[:<arg>...]
//	COMM:<free text>
//
// Timestamps are fixed-width "YYYYMMDDhhmmss" in UTC, so the greatest
// timestamp by string comparison is also the most recent.
package statuslog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/afero"

	"github.com/e3sm/warehouse/pkg/types/timestamp"
)

var log = logging.Logger("pkg/statuslog")

// FileName is the name of the status log inside a dataset directory.
const FileName = ".status"

const (
	kindStat = "STAT"
	kindComm = "COMM"
)

// Entry is one STAT record of a major/minor pair. Value is the status followed
// by its args, joined with ":".
type Entry struct {
	Timestamp string
	Value     string

	line int
}

// Time parses the entry's timestamp.
func (e Entry) Time() (timestamp.Timestamp, error) {
	return timestamp.ParseLog(e.Timestamp)
}

// Log is a parsed status log.
type Log struct {
	// Stat groups records by major then minor category, in file order.
	Stat map[string]map[string][]Entry
	// Comm holds every line that is not a well-formed STAT record, verbatim.
	Comm []string

	lines int
}

// New returns an empty log.
func New() *Log {
	return &Log{Stat: make(map[string]map[string][]Entry)}
}

// Parse reads a status log. Lines are split on ":" and empty tokens dropped.
// STAT lines with fewer than five tokens are kept as comments rather than
// rejected, so a damaged line never hides the rest of the history.
func Parse(r io.Reader) (*Log, error) {
	l := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		l.Add(strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading status log: %w", err)
	}
	return l, nil
}

// Add parses one line into the log, as if it had been read from the file.
func (l *Log) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	l.lines++

	tokens := splitTokens(line)
	if tokens[0] != kindStat || len(tokens) < 5 {
		if tokens[0] == kindStat {
			log.Warnw("keeping malformed STAT line as a comment", "line", line)
		}
		l.Comm = append(l.Comm, line)
		return
	}

	major, minor := tokens[2], tokens[3]
	if l.Stat[major] == nil {
		l.Stat[major] = make(map[string][]Entry)
	}
	l.Stat[major][minor] = append(l.Stat[major][minor], Entry{
		Timestamp: tokens[1],
		Value:     strings.Join(tokens[4:], ":"),
		line:      l.lines,
	})
}

func splitTokens(line string) []string {
	var tokens []string
	for _, t := range strings.Split(line, ":") {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		// a line made only of separators
		return []string{""}
	}
	return tokens
}

// Latest returns the most recent STAT record in the whole log, with Value set
// to "{minor}:{status}[:{args}]". When two records share a timestamp the one
// appearing later in the file wins.
func (l *Log) Latest() (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	for _, minors := range l.Stat {
		for minor, entries := range minors {
			for _, e := range entries {
				if !found || e.Timestamp > best.Timestamp || (e.Timestamp == best.Timestamp && e.line > best.line) {
					best = Entry{Timestamp: e.Timestamp, Value: minor + ":" + e.Value, line: e.line}
					found = true
				}
			}
		}
	}
	return best, found
}

// Len is the number of STAT records in the log.
func (l *Log) Len() int {
	n := 0
	for _, minors := range l.Stat {
		for _, entries := range minors {
			n += len(entries)
		}
	}
	return n
}

// Load reads the status log in dir. A missing log is an empty one.
func Load(fsys afero.Fs, dir string) (*Log, error) {
	f, err := fsys.Open(path.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening status log in %s: %w", dir, err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loading status log in %s: %w", dir, err)
	}
	return l, nil
}

// Append adds one complete line to the status log in dir, creating the log if
// needed. The line is written with a single append-mode write, so readers see
// either all of it or none of it.
func Append(fsys afero.Fs, dir string, line string) error {
	if line == "" || strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("status log line must be a single non-empty line: %q", line)
	}
	f, err := fsys.OpenFile(path.Join(dir, FileName), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening status log in %s for append: %w", dir, err)
	}
	if _, err := f.Write([]byte(line + "\n")); err != nil {
		return errors.Join(fmt.Errorf("appending to status log in %s: %w", dir, err), f.Close())
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing status log in %s: %w", dir, err)
	}
	log.Debugw("appended status", "dir", dir, "line", line)
	return nil
}

// AppendRecord validates r and appends it to the status log in dir.
func AppendRecord(fsys afero.Fs, dir string, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return Append(fsys, dir, r.String())
}
