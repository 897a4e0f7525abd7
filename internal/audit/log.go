package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash for the first entry in a new audit log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Log appends permission-program events to a JSONL file. Every line
// carries the hash of the line before it, so editing or dropping an
// encode, grant or evaluate record breaks Verify.
type Log struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	prevHash string
	entries  int
}

// Open opens or creates the log at path and resumes its chain.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	head, n, err := chainTail(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &Log{path: path, file: file, prevHash: head, entries: n}, nil
}

// chainTail returns the hash of the last non-empty line and the number of
// entries already in the file. A missing file is an empty chain.
func chainTail(path string) (string, int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return GenesisHash, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	head, n := GenesisHash, 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		head = HashLine(line)
		n++
	}
	if err := scanner.Err(); err != nil {
		return "", 0, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return head, n, nil
}

// validate rejects entries Replay and FormatEntry could not interpret.
func validate(entry AuditEntry) error {
	switch entry.Type {
	case "":
		return fmt.Errorf("audit: entry has no type")
	case TypeEncode, TypeGrant, TypeStorePut, TypeRevoke:
		return nil
	case TypeEvaluate:
		if entry.Decision != "allow" && entry.Decision != "deny" {
			return fmt.Errorf("audit: evaluate entry has decision %q", entry.Decision)
		}
		return nil
	default:
		return fmt.Errorf("audit: unknown entry type %q", entry.Type)
	}
}

// Record chains entry onto the log and syncs it to disk. Timestamp is
// filled in when empty; PrevHash is always overwritten.
func (l *Log) Record(entry AuditEntry) error {
	if err := validate(entry); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal %s entry: %w", entry.Type, err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write %s entry: %w", entry.Type, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = HashLine(line)
	l.entries++
	return nil
}

// Path returns the file the log appends to.
func (l *Log) Path() string {
	return l.path
}

// Head returns the hash the next entry will reference as prev_hash.
func (l *Log) Head() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prevHash
}

// Len returns the number of entries in the chain, including those written
// before Open.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
