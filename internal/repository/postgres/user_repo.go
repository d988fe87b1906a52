package postgres

import (
	"context"
	"encoding/json"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// GetConsoleUserByUsername — оператор админки для выдачи токена.
// nil без ошибки означает «не найден»: хендлер отвечает 401, не 500.
func (s *Store) GetConsoleUserByUsername(ctx context.Context, username string) (*domain.ConsoleUser, error) {
	query := `
		SELECT id, email, username, password_hash, grants, created_at, updated_at
		FROM console_users WHERE username = $1`

	u := &domain.ConsoleUser{}
	var grants []byte
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &grants, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(grants) > 0 {
		_ = json.Unmarshal(grants, &u.Grants)
	}
	return u, nil
}
