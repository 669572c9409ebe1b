package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/profiledex/profiledex/internal/services/projector/storage"
)

// Derived profile projection methods.

// PutProfile writes one flattened record as a full-column overwrite and
// refreshes its FTS rows in the same transaction. A write carrying a live
// mutation seq older than the stored one is dropped so replayed or reordered
// events cannot regress the projection; reconcile writes (seq 0) always win.
func (s *Store) PutProfile(ctx context.Context, rec storage.ProfileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key := strings.TrimSpace(rec.Flattened.Key)
	if key == "" {
		return fmt.Errorf("profile key is required")
	}

	lists := make(map[string]string, 10)
	for column, values := range map[string][]string{
		"skills":             rec.Flattened.Skills,
		"technologies":       rec.Flattened.Technologies,
		"languages":          rec.Flattened.Languages,
		"previous_companies": rec.Flattened.PreviousCompanies,
		"job_titles":         rec.Flattened.JobTitles,
		"industries":         rec.Flattened.Industries,
		"education_degrees":  rec.Flattened.EducationDegrees,
		"education_schools":  rec.Flattened.EducationSchools,
		"education_fields":   rec.Flattened.EducationFields,
		"certifications":     rec.Flattened.Certifications,
	} {
		encoded, err := encodeList(values)
		if err != nil {
			return fmt.Errorf("encode %s: %w", column, err)
		}
		lists[column] = encoded
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var storedSeq uint64
	err = tx.QueryRowContext(ctx, `SELECT source_seq FROM profiles WHERE key = ?`, key).Scan(&storedSeq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read stored seq for %q: %w", key, err)
	}
	if rec.SourceSeq > 0 && rec.SourceSeq < storedSeq {
		// Stale event; the newer write already landed.
		return tx.Commit()
	}
	seq := rec.SourceSeq
	if seq < storedSeq {
		seq = storedSeq
	}

	if _, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO profiles (
	key, full_name, email, phone, location, headline, summary, gender,
	current_company, current_title, current_start_date,
	total_years_experience, years_at_current_company, past_experience,
	skills, technologies, languages, previous_companies, job_titles, industries,
	education_degrees, education_schools, education_fields, certifications,
	document, search_identity, search_profile, search_narrative,
	source_seq, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		key,
		rec.Flattened.FullName,
		rec.Flattened.Email,
		rec.Flattened.Phone,
		rec.Flattened.Location,
		rec.Flattened.Headline,
		rec.Flattened.Summary,
		rec.Flattened.Gender,
		rec.Flattened.CurrentCompany,
		rec.Flattened.CurrentTitle,
		rec.Flattened.CurrentStartDate,
		rec.Flattened.TotalYearsExperience,
		rec.Flattened.YearsAtCurrentCompany,
		rec.Flattened.PastExperience,
		lists["skills"],
		lists["technologies"],
		lists["languages"],
		lists["previous_companies"],
		lists["job_titles"],
		lists["industries"],
		lists["education_degrees"],
		lists["education_schools"],
		lists["education_fields"],
		lists["certifications"],
		string(rec.Flattened.Document),
		rec.Flattened.Search.Identity,
		rec.Flattened.Search.Profile,
		rec.Flattened.Search.Narrative,
		int64(seq),
		toMillis(rec.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert profile %q: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles_fts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear search rows for %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO profiles_fts (identity, profile, narrative, key) VALUES (?, ?, ?, ?)
`,
		rec.Flattened.Search.Identity,
		rec.Flattened.Search.Profile,
		rec.Flattened.Search.Narrative,
		key,
	); err != nil {
		return fmt.Errorf("index search rows for %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile write %q: %w", key, err)
	}
	return nil
}

// DeleteProfile removes the flattened record and its search rows. Missing
// keys are a no-op.
func (s *Store) DeleteProfile(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("profile key is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete profile %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles_fts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete search rows for %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile delete %q: %w", key, err)
	}
	return nil
}

// GetProfile loads one flattened record by key.
func (s *Store) GetProfile(ctx context.Context, key string) (storage.ProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ProfileRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ProfileRecord{}, fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.ProfileRecord{}, fmt.Errorf("profile key is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT key, full_name, email, phone, location, headline, summary, gender,
	current_company, current_title, current_start_date,
	total_years_experience, years_at_current_company, past_experience,
	skills, technologies, languages, previous_companies, job_titles, industries,
	education_degrees, education_schools, education_fields, certifications,
	document, search_identity, search_profile, search_narrative,
	source_seq, updated_at
FROM profiles WHERE key = ?
`, key)

	var rec storage.ProfileRecord
	var listColumns [10]string
	var document string
	var sourceSeq, updatedAt int64
	err := row.Scan(
		&rec.Flattened.Key,
		&rec.Flattened.FullName,
		&rec.Flattened.Email,
		&rec.Flattened.Phone,
		&rec.Flattened.Location,
		&rec.Flattened.Headline,
		&rec.Flattened.Summary,
		&rec.Flattened.Gender,
		&rec.Flattened.CurrentCompany,
		&rec.Flattened.CurrentTitle,
		&rec.Flattened.CurrentStartDate,
		&rec.Flattened.TotalYearsExperience,
		&rec.Flattened.YearsAtCurrentCompany,
		&rec.Flattened.PastExperience,
		&listColumns[0], &listColumns[1], &listColumns[2], &listColumns[3], &listColumns[4],
		&listColumns[5], &listColumns[6], &listColumns[7], &listColumns[8], &listColumns[9],
		&document,
		&rec.Flattened.Search.Identity,
		&rec.Flattened.Search.Profile,
		&rec.Flattened.Search.Narrative,
		&sourceSeq,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProfileRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProfileRecord{}, fmt.Errorf("get profile %q: %w", key, err)
	}

	targets := []*[]string{
		&rec.Flattened.Skills,
		&rec.Flattened.Technologies,
		&rec.Flattened.Languages,
		&rec.Flattened.PreviousCompanies,
		&rec.Flattened.JobTitles,
		&rec.Flattened.Industries,
		&rec.Flattened.EducationDegrees,
		&rec.Flattened.EducationSchools,
		&rec.Flattened.EducationFields,
		&rec.Flattened.Certifications,
	}
	for i, target := range targets {
		values, err := decodeList(listColumns[i])
		if err != nil {
			return storage.ProfileRecord{}, fmt.Errorf("profile %q: %w", key, err)
		}
		*target = values
	}

	if document != "" {
		rec.Flattened.Document = []byte(document)
	}
	rec.SourceSeq = uint64(sourceSeq)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}

// CountProfiles reports the number of derived rows.
func (s *Store) CountProfiles(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}
