package store

import (
	"context"
	"embed"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tabletrack/server/engine"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Write helpers
------------------------------*/

// CreateSession records the immutable session configuration and returns the
// session id.
func (db *DB) CreateSession(ctx context.Context, profileName string, rules engine.RulesConfig, risk engine.RiskModel) (int64, error) {
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return 0, err
	}
	riskJSON, err := json.Marshal(risk)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRow(ctx, `
        INSERT INTO sessions(profile_name, rules, risk)
        VALUES ($1,$2,$3)
        RETURNING id
    `, profileName, rulesJSON, riskJSON).Scan(&id)
	return id, err
}

func (db *DB) CompleteSession(ctx context.Context, sessionID int64) error {
	_, err := db.Exec(ctx, `UPDATE sessions SET ended_at = now() WHERE id = $1`, sessionID)
	return err
}

// InsertAuditEntry mirrors one audit log entry, rejected attempts included.
func (db *DB) InsertAuditEntry(ctx context.Context, sessionID int64, e engine.AuditEntry) error {
	before, err := marshalPayload(e.Before)
	if err != nil {
		return err
	}
	after, err := marshalPayload(e.After)
	if err != nil {
		return err
	}
	var reason any
	if e.Reason != "" {
		reason = e.Reason
	}
	_, err = db.Exec(ctx, `
        INSERT INTO audit_entries(
            session_id, seq, event_time, kind, event,
            payload_before, payload_after, reason
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (session_id, seq) DO NOTHING
    `, sessionID, e.Seq, e.Timestamp, string(e.Kind), e.Event, before, after, reason)
	return err
}

func marshalPayload(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// InsertHandOutcome records one per-hand settlement.
func (db *DB) InsertHandOutcome(ctx context.Context, sessionID int64, rec engine.HandOutcomeRecord) error {
	_, err := db.Exec(ctx, `
        INSERT INTO hand_outcomes(
            session_id, round, seat_id, hand_index,
            result, units, net, blackjack, penetration
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, sessionID, rec.Round, rec.SeatID, rec.HandIndex,
		string(rec.Result), rec.Units, rec.Net, rec.Blackjack, rec.Penetration)
	return err
}

// SaveRound persists a round's settlements atomically.
func (db *DB) SaveRound(ctx context.Context, sessionID int64, recs []engine.HandOutcomeRecord) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // safe if already committed

	for _, rec := range recs {
		if _, err := tx.Exec(ctx, `
            INSERT INTO hand_outcomes(
                session_id, round, seat_id, hand_index,
                result, units, net, blackjack, penetration
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        `, sessionID, rec.Round, rec.SeatID, rec.HandIndex,
			string(rec.Result), rec.Units, rec.Net, rec.Blackjack, rec.Penetration); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SessionOutcomes reads back every settlement for a session in commit order.
func (db *DB) SessionOutcomes(ctx context.Context, sessionID int64) ([]engine.HandOutcomeRecord, error) {
	rows, err := db.Query(ctx, `
        SELECT round, seat_id, hand_index, result, units, net, blackjack, penetration
          FROM hand_outcomes
         WHERE session_id = $1
         ORDER BY id
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []engine.HandOutcomeRecord
	for rows.Next() {
		var rec engine.HandOutcomeRecord
		var result string
		if err := rows.Scan(&rec.Round, &rec.SeatID, &rec.HandIndex, &result,
			&rec.Units, &rec.Net, &rec.Blackjack, &rec.Penetration); err != nil {
			return nil, err
		}
		rec.Result = engine.Outcome(result)
		out = append(out, rec)
	}
	return out, rows.Err()
}

/* -----------------------------
   Recorder wiring
------------------------------*/

// SessionRecorder binds a DB to one session id so it can consume engine
// egress as a feed.Recorder.
type SessionRecorder struct {
	db        *DB
	sessionID int64
}

func NewSessionRecorder(db *DB, sessionID int64) *SessionRecorder {
	return &SessionRecorder{db: db, sessionID: sessionID}
}

func (r *SessionRecorder) RecordAudit(ctx context.Context, e engine.AuditEntry) error {
	return r.db.InsertAuditEntry(ctx, r.sessionID, e)
}

func (r *SessionRecorder) RecordOutcome(ctx context.Context, rec engine.HandOutcomeRecord) error {
	return r.db.InsertHandOutcome(ctx, r.sessionID, rec)
}
