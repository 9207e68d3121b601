package postgres

// SQL statements for recurrence rule and ledger entry persistence.

const (
	// queryInsertRule inserts a new rule. ON CONFLICT DO NOTHING returns no
	// rows (sql.ErrNoRows) for duplicate ids, which the adapter maps to
	// storage.ErrDuplicate.
	queryInsertRule = `
		INSERT INTO recurrence_rules (
			id, organization_id, kind, category, description, amount,
			counterparty_id, engagement_id,
			frequency, day_of_month, day_of_week, start_date, end_date,
			occurrence_limit, occurrences_fired, next_occurrence, active, terminal_reason,
			created_by, updated_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`

	ruleColumns = `
		id, organization_id, kind, category, description, amount,
		counterparty_id, engagement_id,
		frequency, day_of_month, day_of_week, start_date, end_date,
		occurrence_limit, occurrences_fired, next_occurrence, active, terminal_reason,
		created_by, updated_by, created_at, updated_at
	`

	queryGetRule = `
		SELECT` + ruleColumns + `
		FROM recurrence_rules
		WHERE organization_id = $1 AND id = $2
	`

	queryListRules = `
		SELECT` + ruleColumns + `
		FROM recurrence_rules
		WHERE organization_id = $1
		ORDER BY created_at ASC, id ASC
	`

	// queryListDueRules selects fire candidates: active rules whose pointer is
	// on or before the reference date. Oldest pointer first so rules that
	// missed cycles catch up before fresher ones.
	queryListDueRules = `
		SELECT` + ruleColumns + `
		FROM recurrence_rules
		WHERE organization_id = $1
		  AND active = TRUE
		  AND next_occurrence IS NOT NULL
		  AND next_occurrence <= $2
		ORDER BY next_occurrence ASC, id ASC
		LIMIT $3
	`

	queryListDueOrganizations = `
		SELECT DISTINCT organization_id
		FROM recurrence_rules
		WHERE active = TRUE
		  AND next_occurrence IS NOT NULL
		  AND next_occurrence <= $1
		ORDER BY organization_id ASC
	`

	// queryUpdateRule rewrites every mutable field. Used by the validator edit
	// path; the processor fire step uses the guarded update below instead.
	queryUpdateRule = `
		UPDATE recurrence_rules
		SET kind = $3, category = $4, description = $5, amount = $6,
		    counterparty_id = $7, engagement_id = $8,
		    frequency = $9, day_of_month = $10, day_of_week = $11,
		    start_date = $12, end_date = $13,
		    occurrence_limit = $14, occurrences_fired = $15, next_occurrence = $16,
		    active = $17, terminal_reason = $18,
		    updated_by = $19, updated_at = $20
		WHERE organization_id = $1 AND id = $2
	`

	// queryAdvanceRule is the optimistic half of the fire step: it only
	// matches when the persisted (occurrences_fired, next_occurrence) pair is
	// still the one the processor observed. Zero rows affected means a
	// concurrent writer advanced the rule first.
	queryAdvanceRule = `
		UPDATE recurrence_rules
		SET occurrences_fired = $5, next_occurrence = $6, active = $7,
		    terminal_reason = $8, updated_at = $9
		WHERE organization_id = $1 AND id = $2
		  AND occurrences_fired = $3
		  AND next_occurrence = $4
	`

	// queryInsertLedgerEntry inserts the materialized occurrence inside the
	// same transaction as queryAdvanceRule. The unique (rule_id,
	// occurrence_date) index is a structural backstop: even a guard bug cannot
	// produce two entries for one occurrence.
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (
			id, organization_id, rule_id, kind, category, description,
			amount, occurrence_date, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	ledgerColumns = `
		id, organization_id, rule_id, kind, category, description,
		amount, occurrence_date, created_at
	`

	queryListEntriesByRule = `
		SELECT` + ledgerColumns + `
		FROM ledger_entries
		WHERE organization_id = $1 AND rule_id = $2
		ORDER BY occurrence_date DESC, created_at DESC
		LIMIT $3
	`

	queryListEntries = `
		SELECT` + ledgerColumns + `
		FROM ledger_entries
		WHERE organization_id = $1
		ORDER BY occurrence_date DESC, created_at DESC
		LIMIT $2
	`
)
