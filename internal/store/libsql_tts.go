package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"arsflow/pkg/schema"
)

// --- Voice actors ---

func (s *LibSQLStore) CreateVoiceActor(ctx context.Context, actor *schema.VoiceActor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voice_actors (id, name, gender, language, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		actor.ID, actor.Name, nullStr(actor.Gender), nullStr(actor.Language),
		nullStr(actor.Description), timeOrNow(actor.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetVoiceActor(ctx context.Context, id string) (*schema.VoiceActor, error) {
	a := &schema.VoiceActor{}
	var gender, language, desc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, gender, language, description, created_at FROM voice_actors WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &gender, &language, &desc, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("voice_actor", id)
	}
	if err != nil {
		return nil, err
	}
	a.Gender = gender.String
	a.Language = language.String
	a.Description = desc.String
	return a, nil
}

func (s *LibSQLStore) ListVoiceActors(ctx context.Context) ([]*schema.VoiceActor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, gender, language, description, created_at FROM voice_actors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []*schema.VoiceActor
	for rows.Next() {
		a := &schema.VoiceActor{}
		var gender, language, desc sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &gender, &language, &desc, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Gender = gender.String
		a.Language = language.String
		a.Description = desc.String
		actors = append(actors, a)
	}
	return actors, rows.Err()
}

func (s *LibSQLStore) DeleteVoiceActor(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM voice_actors WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "voice_actor", id)
}

func (s *LibSQLStore) CreateVoiceSample(ctx context.Context, sample *schema.VoiceSample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voice_samples (id, voice_actor_id, name, audio_path, duration_sec, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sample.ID, sample.VoiceActorID, sample.Name, sample.AudioPath,
		sample.DurationSec, timeOrNow(sample.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) ListVoiceSamples(ctx context.Context, voiceActorID string) ([]*schema.VoiceSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, voice_actor_id, name, audio_path, duration_sec, created_at
		 FROM voice_samples WHERE voice_actor_id = ? ORDER BY created_at DESC`, voiceActorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*schema.VoiceSample
	for rows.Next() {
		sm := &schema.VoiceSample{}
		if err := rows.Scan(&sm.ID, &sm.VoiceActorID, &sm.Name, &sm.AudioPath, &sm.DurationSec, &sm.CreatedAt); err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// --- TTS scripts ---

func (s *LibSQLStore) CreateTTSScript(ctx context.Context, script *schema.TTSScript) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tts_scripts (id, text, voice_actor_id, node_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		script.ID, script.Text, script.VoiceActorID, nullStr(script.NodeID), timeOrNow(script.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetTTSScript(ctx context.Context, id string) (*schema.TTSScript, error) {
	sc := &schema.TTSScript{}
	var nodeID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, voice_actor_id, node_id, created_at FROM tts_scripts WHERE id = ?`, id,
	).Scan(&sc.ID, &sc.Text, &sc.VoiceActorID, &nodeID, &sc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("tts_script", id)
	}
	if err != nil {
		return nil, err
	}
	sc.NodeID = nodeID.String
	return sc, nil
}

func (s *LibSQLStore) ListTTSScripts(ctx context.Context, filter TTSScriptFilter) ([]*schema.TTSScript, error) {
	var where []string
	var args []any

	if filter.VoiceActorID != "" {
		where = append(where, "voice_actor_id = ?")
		args = append(args, filter.VoiceActorID)
	}
	if filter.NodeID != "" {
		where = append(where, "node_id = ?")
		args = append(args, filter.NodeID)
	}

	query := `SELECT id, text, voice_actor_id, node_id, created_at FROM tts_scripts`
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

	var scripts []*schema.TTSScript
	for rows.Next() {
		sc := &schema.TTSScript{}
		var nodeID sql.NullString
		if err := rows.Scan(&sc.ID, &sc.Text, &sc.VoiceActorID, &nodeID, &sc.CreatedAt); err != nil {
			return nil, err
		}
		sc.NodeID = nodeID.String
		scripts = append(scripts, sc)
	}
	return scripts, rows.Err()
}

func (s *LibSQLStore) DeleteTTSScript(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tts_scripts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "tts_script", id)
}

// --- TTS generations ---

func (s *LibSQLStore) CreateGeneration(ctx context.Context, g *schema.TTSGeneration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tts_generations (id, script_id, voice_actor_id, engine, status, audio_file_path, quality_score, error_message, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.ScriptID, g.VoiceActorID, g.Engine, string(g.Status),
		nullStr(g.AudioFilePath), g.QualityScore, nullStr(g.ErrorMessage),
		timeOrNow(g.CreatedAt), nullTime(g.CompletedAt),
	)
	return err
}

func (s *LibSQLStore) GetGeneration(ctx context.Context, id string) (*schema.TTSGeneration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, script_id, voice_actor_id, engine, status, audio_file_path, quality_score, error_message, created_at, completed_at
		 FROM tts_generations WHERE id = ?`, id,
	)
	g, err := scanGeneration(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("tts_generation", id)
	}
	return g, err
}

func (s *LibSQLStore) UpdateGeneration(ctx context.Context, id string, update GenerationUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.AudioFilePath != nil {
		sets = append(sets, "audio_file_path = ?")
		args = append(args, *update.AudioFilePath)
	}
	if update.QualityScore != nil {
		sets = append(sets, "quality_score = ?")
		args = append(args, *update.QualityScore)
	}
	if update.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE tts_generations SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "tts_generation", id)
}

func (s *LibSQLStore) ListGenerations(ctx context.Context, filter GenerationFilter) ([]*schema.TTSGeneration, error) {
	var where []string
	var args []any

	if filter.ScriptID != "" {
		where = append(where, "script_id = ?")
		args = append(args, filter.ScriptID)
	}
	if filter.VoiceActorID != "" {
		where = append(where, "voice_actor_id = ?")
		args = append(args, filter.VoiceActorID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Before != nil {
		where = append(where, "created_at < ?")
		args = append(args, *filter.Before)
	}

	query := `SELECT id, script_id, voice_actor_id, engine, status, audio_file_path, quality_score, error_message, created_at, completed_at FROM tts_generations`
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

	var generations []*schema.TTSGeneration
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

// ClaimPendingGeneration atomically flips the oldest pending generation to
// processing and returns it. Returns (nil, nil) when the queue is empty.
func (s *LibSQLStore) ClaimPendingGeneration(ctx context.Context) (*schema.TTSGeneration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM tts_generations WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tts_generations SET status = 'processing' WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("claim generation %s: %w", id, err)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT id, script_id, voice_actor_id, engine, status, audio_file_path, quality_score, error_message, created_at, completed_at
		 FROM tts_generations WHERE id = ?`, id,
	)
	g, err := scanGeneration(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return g, nil
}

func scanGeneration(row rowScanner) (*schema.TTSGeneration, error) {
	g := &schema.TTSGeneration{}
	var status string
	var audioPath, errMsg sql.NullString
	var quality sql.NullFloat64
	var completedAt sql.NullTime
	err := row.Scan(&g.ID, &g.ScriptID, &g.VoiceActorID, &g.Engine, &status,
		&audioPath, &quality, &errMsg, &g.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	g.Status = schema.TTSStatus(status)
	g.AudioFilePath = audioPath.String
	g.QualityScore = quality.Float64
	g.ErrorMessage = errMsg.String
	if completedAt.Valid {
		g.CompletedAt = &completedAt.Time
	}
	return g, nil
}

// --- TTS library ---

func (s *LibSQLStore) CreateLibraryItem(ctx context.Context, item *schema.LibraryItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tts_library (id, text, voice_actor_id, audio_file_path, use_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Text, item.VoiceActorID, item.AudioFilePath, item.UseCount, timeOrNow(item.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) ListLibraryItems(ctx context.Context, filter LibraryFilter) ([]*schema.LibraryItem, error) {
	var where []string
	var args []any

	if filter.VoiceActorID != "" {
		where = append(where, "voice_actor_id = ?")
		args = append(args, filter.VoiceActorID)
	}
	if filter.Search != "" {
		where = append(where, "text LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}

	query := `SELECT id, text, voice_actor_id, audio_file_path, use_count, created_at FROM tts_library`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY use_count DESC, created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*schema.LibraryItem
	for rows.Next() {
		it := &schema.LibraryItem{}
		if err := rows.Scan(&it.ID, &it.Text, &it.VoiceActorID, &it.AudioFilePath, &it.UseCount, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *LibSQLStore) IncrementLibraryUse(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tts_library SET use_count = use_count + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "library_item", id)
}

func (s *LibSQLStore) DeleteLibraryItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tts_library WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "library_item", id)
}
