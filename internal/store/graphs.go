package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/mnemo/internal/graph"
)

// Snapshot describes one saved graph.
type Snapshot struct {
	ID         int64     `json:"id"`
	Phase      string    `json:"phase"`
	Nodes      int       `json:"nodes"`
	Synapses   int       `json:"synapses"`
	Hyperedges int       `json:"hyperedges"`
	Queries    int       `json:"queries"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveGraph replaces the stored graph with g in a single transaction and
// records a snapshot row carrying the phase and the engine's query count.
func (db *DB) SaveGraph(g *graph.Graph, phase string, queries int) (*Snapshot, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"hyperedges", "synapses", "nodes"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertNodes(tx, g); err != nil {
		return nil, err
	}
	if err := insertSynapses(tx, g); err != nil {
		return nil, err
	}
	if err := insertHyperedges(tx, g); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Phase:      phase,
		Nodes:      len(g.Nodes),
		Synapses:   len(g.Synapses),
		Hyperedges: len(g.Hyperedges),
		Queries:    queries,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	res, err := tx.Exec(`
		INSERT INTO snapshots (phase, nodes, synapses, hyperedges, queries, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.Phase, snap.Nodes, snap.Synapses, snap.Hyperedges, snap.Queries, snap.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("record snapshot: %w", err)
	}
	snap.ID, _ = res.LastInsertId()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save: %w", err)
	}
	return snap, nil
}

func insertNodes(tx *sql.Tx, g *graph.Graph) error {
	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, node_type, label, content, activation, salience, threshold,
			archived, last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer stmt.Close()

	for _, id := range g.SortedNodeIDs() {
		n := g.Nodes[id]
		var threshold, lastActive any
		if n.Threshold != nil {
			threshold = *n.Threshold
		}
		if n.LastActive != nil {
			lastActive = n.LastActive.UnixMilli()
		}
		if _, err := stmt.Exec(n.ID, string(n.Type), n.Label, n.Content, n.Activation, n.Salience,
			threshold, boolInt(n.Archived), lastActive, n.CreatedAt.UnixMilli(), n.UpdatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertSynapses(tx *sql.Tx, g *graph.Graph) error {
	stmt, err := tx.Prepare(`
		INSERT INTO synapses (source, target, weight, synapse_type, co_activation, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare synapses: %w", err)
	}
	defer stmt.Close()

	for _, s := range g.Synapses {
		meta, err := marshalNullable(s.Metadata)
		if err != nil {
			return fmt.Errorf("encode synapse metadata %s-%s: %w", s.Source, s.Target, err)
		}
		if _, err := stmt.Exec(s.Source, s.Target, s.Weight, string(s.Type), s.CoActivation,
			meta, s.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert synapse %s-%s: %w", s.Source, s.Target, err)
		}
	}
	return nil
}

func insertHyperedges(tx *sql.Tx, g *graph.Graph) error {
	stmt, err := tx.Prepare(`
		INSERT INTO hyperedges (id, members, weight, salience, label, he_type, source, context, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare hyperedges: %w", err)
	}
	defer stmt.Close()

	for i, h := range g.Hyperedges {
		members, err := json.Marshal(h.Members)
		if err != nil {
			return fmt.Errorf("encode hyperedge members %s: %w", h.ID, err)
		}
		if _, err := stmt.Exec(h.ID, string(members), h.Weight, h.Salience, h.Label, h.Type,
			string(h.Source), h.Context, i, h.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert hyperedge %s: %w", h.ID, err)
		}
	}
	return nil
}

// LoadGraph rebuilds the stored graph. An empty database yields an empty graph.
func (db *DB) LoadGraph() (*graph.Graph, error) {
	nodes, err := db.loadNodes()
	if err != nil {
		return nil, err
	}
	synapses, err := db.loadSynapses()
	if err != nil {
		return nil, err
	}
	hyperedges, err := db.loadHyperedges()
	if err != nil {
		return nil, err
	}
	return graph.FromParts(nodes, synapses, hyperedges), nil
}

func (db *DB) loadNodes() ([]*graph.Node, error) {
	rows, err := db.Query(`
		SELECT id, node_type, label, content, activation, salience, threshold,
			archived, last_active, created_at, updated_at
		FROM nodes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var out []*graph.Node
	for rows.Next() {
		var (
			n                    graph.Node
			typ                  string
			threshold            sql.NullFloat64
			archived             int
			lastActive           sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&n.ID, &typ, &n.Label, &n.Content, &n.Activation, &n.Salience,
			&threshold, &archived, &lastActive, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Type = graph.ParseNodeType(typ)
		if threshold.Valid {
			v := threshold.Float64
			n.Threshold = &v
		}
		n.Archived = archived != 0
		if lastActive.Valid {
			t := time.UnixMilli(lastActive.Int64).UTC()
			n.LastActive = &t
		}
		n.CreatedAt = time.UnixMilli(createdAt).UTC()
		n.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (db *DB) loadSynapses() ([]*graph.Synapse, error) {
	rows, err := db.Query(`
		SELECT source, target, weight, synapse_type, co_activation, metadata, created_at
		FROM synapses ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query synapses: %w", err)
	}
	defer rows.Close()

	var out []*graph.Synapse
	for rows.Next() {
		var (
			s         graph.Synapse
			typ       string
			meta      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&s.Source, &s.Target, &s.Weight, &typ, &s.CoActivation, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan synapse: %w", err)
		}
		s.Type = graph.ParseSynapseType(typ)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &s.Metadata); err != nil {
				return nil, fmt.Errorf("decode synapse metadata %s-%s: %w", s.Source, s.Target, err)
			}
		}
		s.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (db *DB) loadHyperedges() ([]*graph.Hyperedge, error) {
	rows, err := db.Query(`
		SELECT id, members, weight, salience, label, he_type, source, context, created_at
		FROM hyperedges ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query hyperedges: %w", err)
	}
	defer rows.Close()

	var out []*graph.Hyperedge
	for rows.Next() {
		var (
			h         graph.Hyperedge
			members   string
			source    string
			createdAt int64
		)
		if err := rows.Scan(&h.ID, &members, &h.Weight, &h.Salience, &h.Label, &h.Type,
			&source, &h.Context, &createdAt); err != nil {
			return nil, fmt.Errorf("scan hyperedge: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &h.Members); err != nil {
			return nil, fmt.Errorf("decode hyperedge members %s: %w", h.ID, err)
		}
		h.Source = graph.ParseHyperedgeSource(source)
		h.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, &h)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the most recent save, or nil if nothing was saved.
func (db *DB) LatestSnapshot() (*Snapshot, error) {
	var (
		s         Snapshot
		createdAt int64
	)
	err := db.QueryRow(`
		SELECT id, phase, nodes, synapses, hyperedges, queries, created_at
		FROM snapshots ORDER BY id DESC LIMIT 1
	`).Scan(&s.ID, &s.Phase, &s.Nodes, &s.Synapses, &s.Hyperedges, &s.Queries, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &s, nil
}

// ListSnapshots returns up to limit saves, newest first.
func (db *DB) ListSnapshots(limit int) ([]Snapshot, error) {
	rows, err := db.Query(`
		SELECT id, phase, nodes, synapses, hyperedges, queries, created_at
		FROM snapshots ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s         Snapshot
			createdAt int64
		)
		if err := rows.Scan(&s.ID, &s.Phase, &s.Nodes, &s.Synapses, &s.Hyperedges, &s.Queries, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalNullable(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
