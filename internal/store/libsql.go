package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"arsflow/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. event log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Scenarios ---

func (s *LibSQLStore) CreateScenario(ctx context.Context, sc *schema.Scenario) error {
	metadata, err := marshalMapOrNil(sc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal scenario metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, name, description, category, version, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, nullStr(sc.Description), nullStr(sc.Category),
		sc.Version, string(sc.Status), metadata,
		timeOrNow(sc.CreatedAt), timeOrNow(sc.UpdatedAt),
	)
	return err
}

// GetScenario returns the scenario with its nodes and connections populated.
func (s *LibSQLStore) GetScenario(ctx context.Context, id string) (*schema.Scenario, error) {
	sc := &schema.Scenario{}
	var desc, category, metadata sql.NullString
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, category, version, status, metadata, created_at, updated_at
		 FROM scenarios WHERE id = ?`, id,
	).Scan(&sc.ID, &sc.Name, &desc, &category, &sc.Version, &status, &metadata, &sc.CreatedAt, &sc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scenario", id)
	}
	if err != nil {
		return nil, err
	}
	sc.Description = desc.String
	sc.Category = category.String
	sc.Status = schema.ScenarioStatus(status)
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &sc.Metadata)
	}

	if sc.Nodes, err = s.ListNodes(ctx, id); err != nil {
		return nil, err
	}
	if sc.Connections, err = s.ListConnections(ctx, id); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *LibSQLStore) UpdateScenario(ctx context.Context, id string, update ScenarioUpdate) error {
	var sets []string
	var args []any

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullStr(*update.Description))
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, nullStr(*update.Category))
	}
	if update.Version != nil {
		sets = append(sets, "version = ?")
		args = append(args, *update.Version)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.Metadata != nil {
		metadata, err := marshalMapOrNil(update.Metadata)
		if err != nil {
			return fmt.Errorf("marshal scenario metadata: %w", err)
		}
		sets = append(sets, "metadata = ?")
		args = append(args, metadata)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE scenarios SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scenario", id)
}

// ListScenarios returns scenario headers only; nodes and connections are not loaded.
func (s *LibSQLStore) ListScenarios(ctx context.Context, filter ScenarioFilter) ([]*schema.Scenario, error) {
	var where []string
	var args []any

	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}

	query := "SELECT id, name, description, category, version, status, metadata, created_at, updated_at FROM scenarios"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []*schema.Scenario
	for rows.Next() {
		sc := &schema.Scenario{}
		var desc, category, metadata sql.NullString
		var status string
		if err := rows.Scan(&sc.ID, &sc.Name, &desc, &category, &sc.Version, &status, &metadata,
			&sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		sc.Description = desc.String
		sc.Category = category.String
		sc.Status = schema.ScenarioStatus(status)
		if metadata.Valid && metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &sc.Metadata)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

func (s *LibSQLStore) DeleteScenario(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scenario", id)
}

// --- Nodes ---

func (s *LibSQLStore) CreateNode(ctx context.Context, scenarioID string, node *schema.ScenarioNode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scenario_nodes (scenario_id, node_id, node_type, name, position_x, position_y, config)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scenarioID, node.NodeID, string(node.NodeType), nullStr(node.Name),
		node.PositionX, node.PositionY, nullRaw(node.Config),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return schema.NewErrorf(schema.ErrCodeConflict,
			"node %q already exists in scenario %q", node.NodeID, scenarioID).WithCause(err)
	}
	return err
}

func (s *LibSQLStore) ListNodes(ctx context.Context, scenarioID string) ([]schema.ScenarioNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, node_type, name, position_x, position_y, config
		 FROM scenario_nodes WHERE scenario_id = ? ORDER BY node_id`, scenarioID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []schema.ScenarioNode
	for rows.Next() {
		var n schema.ScenarioNode
		var nodeType string
		var name, config sql.NullString
		if err := rows.Scan(&n.NodeID, &nodeType, &name, &n.PositionX, &n.PositionY, &config); err != nil {
			return nil, err
		}
		n.NodeType = schema.NodeType(nodeType)
		n.Name = name.String
		n.Config = rawOrNil(config)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *LibSQLStore) DeleteNode(ctx context.Context, scenarioID, nodeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scenario_nodes WHERE scenario_id = ? AND node_id = ?`, scenarioID, nodeID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "node", nodeID)
}

func (s *LibSQLStore) DeleteAllNodes(ctx context.Context, scenarioID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scenario_nodes WHERE scenario_id = ?`, scenarioID)
	return err
}

// --- Connections ---

// CreateConnection inserts a connection and sets conn.ID from the row id.
func (s *LibSQLStore) CreateConnection(ctx context.Context, scenarioID string, conn *schema.Connection) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scenario_connections (scenario_id, source_node_id, target_node_id, condition, label)
		 VALUES (?, ?, ?, ?, ?)`,
		scenarioID, conn.SourceNodeID, conn.TargetNodeID, nullStr(conn.Condition), nullStr(conn.Label),
	)
	if err != nil {
		return err
	}
	conn.ID, err = res.LastInsertId()
	return err
}

func (s *LibSQLStore) ListConnections(ctx context.Context, scenarioID string) ([]schema.Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_node_id, target_node_id, condition, label
		 FROM scenario_connections WHERE scenario_id = ? ORDER BY id`, scenarioID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []schema.Connection
	for rows.Next() {
		var c schema.Connection
		var condition, label sql.NullString
		if err := rows.Scan(&c.ID, &c.SourceNodeID, &c.TargetNodeID, &condition, &label); err != nil {
			return nil, err
		}
		c.Condition = condition.String
		c.Label = label.String
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (s *LibSQLStore) DeleteConnection(ctx context.Context, scenarioID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scenario_connections WHERE scenario_id = ? AND id = ?`, scenarioID, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "connection", fmt.Sprintf("%d", id))
}

func (s *LibSQLStore) DeleteAllConnections(ctx context.Context, scenarioID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scenario_connections WHERE scenario_id = ?`, scenarioID)
	return err
}

// --- Versions ---

func (s *LibSQLStore) CreateVersion(ctx context.Context, v *schema.ScenarioVersion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scenario_versions (scenario_id, version, snapshot, comment, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		v.ScenarioID, v.Version, string(v.Snapshot), nullStr(v.Comment), timeOrNow(v.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return schema.NewErrorf(schema.ErrCodeConflict,
			"version %q already exists for scenario %q", v.Version, v.ScenarioID).WithCause(err)
	}
	return err
}

func (s *LibSQLStore) GetVersion(ctx context.Context, scenarioID, version string) (*schema.ScenarioVersion, error) {
	v := &schema.ScenarioVersion{}
	var snapshot string
	var comment sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT scenario_id, version, snapshot, comment, created_at
		 FROM scenario_versions WHERE scenario_id = ? AND version = ?`, scenarioID, version,
	).Scan(&v.ScenarioID, &v.Version, &snapshot, &comment, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("version", scenarioID+":"+version)
	}
	if err != nil {
		return nil, err
	}
	v.Snapshot = json.RawMessage(snapshot)
	v.Comment = comment.String
	return v, nil
}

func (s *LibSQLStore) ListVersions(ctx context.Context, scenarioID string) ([]*schema.ScenarioVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scenario_id, version, snapshot, comment, created_at
		 FROM scenario_versions WHERE scenario_id = ? ORDER BY created_at DESC`, scenarioID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*schema.ScenarioVersion
	for rows.Next() {
		v := &schema.ScenarioVersion{}
		var snapshot string
		var comment sql.NullString
		if err := rows.Scan(&v.ScenarioID, &v.Version, &snapshot, &comment, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Snapshot = json.RawMessage(snapshot)
		v.Comment = comment.String
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Deployments ---

func (s *LibSQLStore) CreateDeployment(ctx context.Context, d *schema.Deployment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deployments (id, scenario_id, version, environment, status, deployed_by, rollback_of, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ScenarioID, d.Version, d.Environment, string(d.Status),
		nullStr(d.DeployedBy), nullStr(d.RollbackOf), timeOrNow(d.CreatedAt), nullTime(d.CompletedAt),
	)
	return err
}

func (s *LibSQLStore) GetDeployment(ctx context.Context, id string) (*schema.Deployment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, version, environment, status, deployed_by, rollback_of, created_at, completed_at
		 FROM deployments WHERE id = ?`, id,
	)
	d, err := scanDeployment(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("deployment", id)
	}
	return d, err
}

func (s *LibSQLStore) UpdateDeployment(ctx context.Context, id string, update DeploymentUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE deployments SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "deployment", id)
}

func (s *LibSQLStore) ListDeployments(ctx context.Context, filter DeploymentFilter) ([]*schema.Deployment, error) {
	var where []string
	var args []any

	if filter.ScenarioID != "" {
		where = append(where, "scenario_id = ?")
		args = append(args, filter.ScenarioID)
	}
	if filter.Environment != "" {
		where = append(where, "environment = ?")
		args = append(args, filter.Environment)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT id, scenario_id, version, environment, status, deployed_by, rollback_of, created_at, completed_at FROM deployments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []*schema.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

// LatestDeployment returns the most recent completed deployment for a
// scenario in an environment.
func (s *LibSQLStore) LatestDeployment(ctx context.Context, scenarioID, environment string) (*schema.Deployment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, version, environment, status, deployed_by, rollback_of, created_at, completed_at
		 FROM deployments WHERE scenario_id = ? AND environment = ? AND status = 'completed'
		 ORDER BY created_at DESC LIMIT 1`, scenarioID, environment,
	)
	d, err := scanDeployment(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("deployment", scenarioID+"/"+environment)
	}
	return d, err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row rowScanner) (*schema.Deployment, error) {
	d := &schema.Deployment{}
	var status string
	var deployedBy, rollbackOf sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&d.ID, &d.ScenarioID, &d.Version, &d.Environment, &status,
		&deployedBy, &rollbackOf, &d.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	d.Status = schema.DeploymentStatus(status)
	d.DeployedBy = deployedBy.String
	d.RollbackOf = rollbackOf.String
	if completedAt.Valid {
		d.CompletedAt = &completedAt.Time
	}
	return d, nil
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

func marshalMapOrNil(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
