package store

import (
	"context"
	"fmt"
	"time"
)

func (s *SQLStore) SaveRefreshSession(ctx context.Context, tokenHash string, session RefreshSession, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO refresh_sessions (token_hash, user_id, session_id, display_name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=excluded.user_id, session_id=excluded.session_id,
			display_name=excluded.display_name, expires_at=excluded.expires_at, revoked_at=NULL
	`), tokenHash, session.UserID, session.SessionID, session.DisplayName, toMillis(expiresAt), toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *SQLStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE refresh_sessions SET revoked_at=$2 WHERE token_hash=$1`), tokenHash, toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *SQLStore) LookupRefreshSession(ctx context.Context, tokenHash string) (RefreshSession, error) {
	const query = `
		SELECT user_id, session_id, display_name
		FROM refresh_sessions
		WHERE token_hash = $1
			AND revoked_at IS NULL
			AND expires_at > $2
	`
	var session RefreshSession
	err := s.db.QueryRowContext(ctx, s.q(query), tokenHash, toMillis(s.now())).Scan(&session.UserID, &session.SessionID, &session.DisplayName)
	if err != nil {
		return RefreshSession{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	return session, nil
}

func (s *SQLStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`), jti, toMillis(exp))
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *SQLStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM revoked_access_tokens WHERE jti=$1`), jti).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

// RevokeSession ends every token carrying sessionID. The row outlives the
// longest refresh token the session could still hold.
func (s *SQLStore) RevokeSession(ctx context.Context, sessionID string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO revoked_sessions (session_id, revoked_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET expires_at=excluded.expires_at
	`), sessionID, toMillis(s.now()), toMillis(until))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *SQLStore) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM revoked_sessions WHERE session_id=$1 AND expires_at > $2`), sessionID, toMillis(s.now())).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return count > 0, nil
}
