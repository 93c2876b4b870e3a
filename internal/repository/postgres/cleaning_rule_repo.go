package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

type cleaningRuleRepo struct {
	db sqlx.ExtContext
}

// NewCleaningRuleRepo creates a new PostgreSQL-backed CleaningRuleRepository.
func NewCleaningRuleRepo(db sqlx.ExtContext) port.CleaningRuleRepository {
	return &cleaningRuleRepo{db: db}
}

func (r *cleaningRuleRepo) ListEnabled(ctx context.Context) ([]domain.CleaningRule, error) {
	var rules []domain.CleaningRule
	err := sqlx.SelectContext(ctx, r.db, &rules,
		`SELECT * FROM cleaning_rules WHERE is_active ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("cleaningRuleRepo.ListEnabled: %w", err)
	}
	return rules, nil
}

func (r *cleaningRuleRepo) List(ctx context.Context) ([]domain.CleaningRule, error) {
	var rules []domain.CleaningRule
	err := sqlx.SelectContext(ctx, r.db, &rules,
		`SELECT * FROM cleaning_rules ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("cleaningRuleRepo.List: %w", err)
	}
	return rules, nil
}

// Upsert keys on rule_name. The version only moves when the stored
// definition actually changes, so re-seeding the same file is a no-op.
func (r *cleaningRuleRepo) Upsert(ctx context.Context, rule *domain.CleaningRule) error {
	if !domain.ValidRuleTypes[rule.RuleType] {
		return fmt.Errorf("%w: unknown rule type %q", domain.ErrInvalidRule, rule.RuleType)
	}

	query := `INSERT INTO cleaning_rules (
		rule_name, rule_type, source_type, source_name, pattern, replacement,
		condition, rule_config, priority, is_active, version, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())
	ON CONFLICT (rule_name) DO UPDATE SET
		rule_type = EXCLUDED.rule_type,
		source_type = EXCLUDED.source_type,
		source_name = EXCLUDED.source_name,
		pattern = EXCLUDED.pattern,
		replacement = EXCLUDED.replacement,
		condition = EXCLUDED.condition,
		rule_config = EXCLUDED.rule_config,
		priority = EXCLUDED.priority,
		is_active = EXCLUDED.is_active,
		version = cleaning_rules.version + CASE WHEN
			(cleaning_rules.rule_type, cleaning_rules.source_type, cleaning_rules.source_name,
			 cleaning_rules.pattern, cleaning_rules.replacement, cleaning_rules.condition,
			 cleaning_rules.rule_config, cleaning_rules.priority, cleaning_rules.is_active)
			IS DISTINCT FROM
			(EXCLUDED.rule_type, EXCLUDED.source_type, EXCLUDED.source_name,
			 EXCLUDED.pattern, EXCLUDED.replacement, EXCLUDED.condition,
			 EXCLUDED.rule_config, EXCLUDED.priority, EXCLUDED.is_active)
			THEN 1 ELSE 0 END,
		updated_at = NOW()
	RETURNING id, version, created_at, updated_at`

	err := sqlx.GetContext(ctx, r.db, rule, query,
		rule.Name, rule.RuleType, rule.SourceType, rule.SourceName, rule.Pattern, rule.Replacement,
		jsonOrEmpty(rule.Condition), jsonOrEmpty(rule.Config), rule.Priority, rule.Enabled)
	if err != nil {
		return fmt.Errorf("cleaningRuleRepo.Upsert: %w", err)
	}
	return nil
}
