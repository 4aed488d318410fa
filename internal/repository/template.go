package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

type TemplateRepository struct {
	pool PgxPool
}

func NewTemplateRepository(pool PgxPool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// GetAllActive returns every active enrolled template, ordered so templates
// of the same student stay adjacent. The template store loads this wholesale.
func (r *TemplateRepository) GetAllActive(ctx context.Context) ([]domain.Template, error) {
	query := `
		SELECT id, student_id, embedding, quality_score, source_ref, active, created_at
		FROM face_templates
		WHERE active = true
		ORDER BY student_id, created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		var tpl domain.Template
		var embedding pgvector.Vector
		var sourceRef *string

		err := rows.Scan(
			&tpl.ID,
			&tpl.StudentID,
			&embedding,
			&tpl.QualityScore,
			&sourceRef,
			&tpl.Active,
			&tpl.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}

		tpl.Embedding = embedding.Slice()
		if sourceRef != nil {
			tpl.SourceRef = *sourceRef
		}

		templates = append(templates, tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	return templates, nil
}
