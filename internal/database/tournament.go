// internal/database/tournament.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duelpoint/arena/internal/models"
)

// TournamentRepo is the postgres read model behind the REST pull fallback.
// The coordinator writes through on every lifecycle change so a client that
// missed a push can reconcile with GET /api/tournaments.
type TournamentRepo struct {
	pool *pgxpool.Pool
}

// NewTournamentRepo wraps a connected pool.
func NewTournamentRepo(pool *pgxpool.Pool) *TournamentRepo {
	return &TournamentRepo{pool: pool}
}

// UpsertTournament writes the tournament header row.
func (r *TournamentRepo) UpsertTournament(ctx context.Context, t models.Tournament) error {
	q := `
	INSERT INTO tournaments (
		id, game_type, entry_fee, prize_pool, status,
		max_players, starts_at, started_at, winner_id, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		started_at = EXCLUDED.started_at,
		winner_id = EXCLUDED.winner_id
	`
	_, err := r.pool.Exec(ctx, q,
		t.ID, t.GameType, t.EntryFee, t.PrizePool, t.Status,
		t.MaxPlayers, t.StartsAt, t.StartedAt, t.WinnerID, t.CreatedAt,
	)
	return err
}

// InsertRegistration appends a roster row, keeping registration order via
// seat_position.
func (r *TournamentRepo) InsertRegistration(ctx context.Context, tournamentID uuid.UUID, player models.TournamentPlayer) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var next int
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(seat_position), -1) + 1 FROM tournament_players WHERE tournament_id = $1`,
			tournamentID,
		).Scan(&next); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO tournament_players (tournament_id, player_id, username, is_bot, seat_position)
			VALUES ($1, $2, $3, $4, $5)`,
			tournamentID, player.ID, player.Username, player.Bot, next,
		)
		return err
	})
}

// DeleteRegistration removes a roster row after an unregister.
func (r *TournamentRepo) DeleteRegistration(ctx context.Context, tournamentID, playerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM tournament_players WHERE tournament_id = $1 AND player_id = $2`,
		tournamentID, playerID,
	)
	return err
}

// ListFilter narrows and pages List results.
type ListFilter struct {
	Status   models.TournamentStatus
	GameType string
	Limit    int
	Offset   int
}

// List returns a page of tournaments, newest first, with their rosters and
// the unpaged total for the response envelope.
func (r *TournamentRepo) List(ctx context.Context, f ListFilter) ([]models.Tournament, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.GameType != "" {
		args = append(args, f.GameType)
		where += fmt.Sprintf(" AND game_type = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tournaments `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`
		SELECT id, game_type, entry_fee, prize_pool, status,
		       max_players, starts_at, started_at, winner_id, created_at
		FROM tournaments %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Tournament
	ids := []uuid.UUID{}
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(
			&t.ID, &t.GameType, &t.EntryFee, &t.PrizePool, &t.Status,
			&t.MaxPlayers, &t.StartsAt, &t.StartedAt, &t.WinnerID, &t.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		t.Players = []models.TournamentPlayer{}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return out, total, nil
	}

	prows, err := r.pool.Query(ctx, `
		SELECT tournament_id, player_id, username, is_bot
		FROM tournament_players
		WHERE tournament_id = ANY($1)
		ORDER BY tournament_id, seat_position`, ids)
	if err != nil {
		return nil, 0, err
	}
	defer prows.Close()

	byID := make(map[uuid.UUID]int, len(out))
	for i, t := range out {
		byID[t.ID] = i
	}
	for prows.Next() {
		var tid uuid.UUID
		var p models.TournamentPlayer
		if err := prows.Scan(&tid, &p.ID, &p.Username, &p.Bot); err != nil {
			return nil, 0, err
		}
		if i, ok := byID[tid]; ok {
			out[i].Players = append(out[i].Players, p)
		}
	}
	return out, total, prows.Err()
}
