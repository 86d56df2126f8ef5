// Package alertstore is the durable alert store: an embedded
// relational database with write-ahead logging, indexed query, and
// periodic retention pruning.
package alertstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ortegarod/flashwatch/internal/alert"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS alerts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_name    TEXT NOT NULL,
	block_number INTEGER,
	fb_index     INTEGER NOT NULL,
	timestamp    INTEGER NOT NULL,
	to_addr      TEXT,
	to_label     TEXT,
	value_eth    REAL NOT NULL,
	action       TEXT,
	category     TEXT NOT NULL,
	payload      TEXT NOT NULL,
	created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_alerts_rule     ON alerts(rule_name);
CREATE INDEX IF NOT EXISTS idx_alerts_ts       ON alerts(timestamp);
CREATE INDEX IF NOT EXISTS idx_alerts_category ON alerts(category);
CREATE INDEX IF NOT EXISTS idx_alerts_block    ON alerts(block_number);
`

// Store serializes all connection access through mu: inserts and
// queries never overlap on the same connection, matching the single
// embedded-database-handle usage pattern this repo relies on.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the alert database at path, creating the
// schema and indices if absent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening alert store at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-connection pool — mu already serializes access

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating alert schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends a new alert row.
func (s *Store) Insert(a alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling alert payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO alerts (rule_name, block_number, fb_index, timestamp, to_addr, to_label, value_eth, action, category, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RuleName, a.BlockNumber, a.FlashblockIndex, a.Timestamp,
		a.Tx.To, a.Tx.ToLabel, a.Tx.ValueEth, a.Tx.Action, a.Tx.Category,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// Prune deletes rows older than retentionDays and runs an incremental
// vacuum iff anything was deleted. Returns the number of rows deleted.
func (s *Store) Prune(retentionDays uint64) (int64, error) {
	cutoff := time.Now().Unix() - int64(retentionDays)*86400

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM alerts WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading prune result: %w", err)
	}
	if n > 0 {
		if _, err := s.db.Exec(`PRAGMA incremental_vacuum`); err != nil {
			return n, fmt.Errorf("vacuuming after prune: %w", err)
		}
	}
	return n, nil
}

// Query is the filter set for the /alerts endpoint. Zero values mean
// "no filter on this field".
type Query struct {
	Rule     string
	Category string
	MinEth   float64
	SinceTS  int64
	Limit    int
}

// QueryFromParams builds a Query from URL query-string parameters,
// resolving "last" (a human duration like "1h", "30m", "7d") against
// the current time in preference to a raw "since" unix timestamp.
func QueryFromParams(params map[string]string) Query {
	q := Query{
		Rule:     params["rule"],
		Category: params["category"],
	}
	if v, ok := params["min_eth"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MinEth = f
		}
	}
	if v, ok := params["last"]; ok {
		if secs, ok := parseDurationSecs(v); ok {
			q.SinceTS = time.Now().Unix() - secs
		}
	} else if v, ok := params["since"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.SinceTS = n
		}
	}
	if v, ok := params["limit"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
	return q
}

// parseDurationSecs parses a human duration like "1h", "30m", "24h",
// "7d" into whole seconds.
func parseDurationSecs(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, false
	}
	num, suffix := s[:len(s)-1], s[len(s)-1:]
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, false
	}
	switch suffix {
	case "s":
		return n, true
	case "m":
		return n * 60, true
	case "h":
		return n * 3600, true
	case "d":
		return n * 86400, true
	default:
		return 0, false
	}
}

const defaultQueryLimit = 100
const maxQueryLimit = 1000

// Query returns the raw JSON payloads of alerts matching q, most
// recent first.
func (s *Store) Query(q Query) ([]json.RawMessage, error) {
	var clauses []string
	var args []any

	if q.Rule != "" {
		clauses = append(clauses, "rule_name = ?")
		args = append(args, q.Rule)
	}
	if q.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, q.Category)
	}
	if q.MinEth != 0 {
		clauses = append(clauses, "value_eth >= ?")
		args = append(args, q.MinEth)
	}
	if q.SinceTS != 0 {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, q.SinceTS)
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	sqlStr := fmt.Sprintf("SELECT payload FROM alerts %s ORDER BY id DESC LIMIT %d", where, limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		if !json.Valid([]byte(payload)) {
			continue // skip rows whose payload fails to parse
		}
		out = append(out, json.RawMessage(payload))
	}
	return out, rows.Err()
}

// RuleCount is one row of Stats.ByRule.
type RuleCount struct {
	Rule  string `json:"rule"`
	Count int64  `json:"count"`
}

// CategoryCount is one row of Stats.ByCategory.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// Stats summarizes the alert table for the /alerts/stats endpoint.
type Stats struct {
	TotalAlerts int64           `json:"total_alerts"`
	LastHour    int64           `json:"last_hour"`
	ByRule      []RuleCount     `json:"by_rule"`
	ByCategory  []CategoryCount `json:"by_category"`
}

// Stats computes summary counts over the alert table.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alerts`).Scan(&stats.TotalAlerts); err != nil {
		return stats, fmt.Errorf("counting alerts: %w", err)
	}

	cutoff := time.Now().Add(-time.Hour).Unix()
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE timestamp > ?`, cutoff).Scan(&stats.LastHour); err != nil {
		return stats, fmt.Errorf("counting last-hour alerts: %w", err)
	}

	ruleRows, err := s.db.Query(`SELECT rule_name, COUNT(*) AS cnt FROM alerts GROUP BY rule_name ORDER BY cnt DESC LIMIT 10`)
	if err != nil {
		return stats, fmt.Errorf("grouping by rule: %w", err)
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var rc RuleCount
		if err := ruleRows.Scan(&rc.Rule, &rc.Count); err != nil {
			return stats, fmt.Errorf("scanning rule count: %w", err)
		}
		stats.ByRule = append(stats.ByRule, rc)
	}
	if err := ruleRows.Err(); err != nil {
		return stats, err
	}

	catRows, err := s.db.Query(`SELECT category, COUNT(*) AS cnt FROM alerts GROUP BY category ORDER BY cnt DESC`)
	if err != nil {
		return stats, fmt.Errorf("grouping by category: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var cc CategoryCount
		if err := catRows.Scan(&cc.Category, &cc.Count); err != nil {
			return stats, fmt.Errorf("scanning category count: %w", err)
		}
		stats.ByCategory = append(stats.ByCategory, cc)
	}
	return stats, catRows.Err()
}
