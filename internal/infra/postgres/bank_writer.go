package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"automatization-bot/internal/domain"
	"github.com/uptrace/bun"
)

// UpsertBank stores bank under its ID, replacing any previous content.
func UpsertBank(ctx context.Context, db bun.IDB, bank domain.QuestionBank) error {
	if bank.ID == "" {
		return fmt.Errorf("%w: bank id is empty", domain.ErrInvalidBank)
	}
	data, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO question_banks (id, data) VALUES (?, ?::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		bank.ID, string(data))
	if err != nil {
		return fmt.Errorf("upsert bank %s: %w", bank.ID, err)
	}
	return nil
}
