package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Document type codes used for gapless numbering.
const (
	DocTypeInvoice    = "INV"
	DocTypeSalesOrder = "SO"
)

// nextDocumentNumberTx allocates the next gapless number for typeCode inside
// the caller's transaction. The upsert row lock serializes concurrent callers,
// and a rolled-back transaction releases its number.
func nextDocumentNumberTx(ctx context.Context, tx pgx.Tx, typeCode string) (string, error) {
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (type_code, last_number)
		VALUES ($1, 1)
		ON CONFLICT (type_code)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, typeCode).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number for %s: %w", typeCode, err)
	}
	return formatDocumentNumber(typeCode, lastNumber), nil
}

func formatDocumentNumber(typeCode string, n int64) string {
	return fmt.Sprintf("%s-%06d", typeCode, n)
}
