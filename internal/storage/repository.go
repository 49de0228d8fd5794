// Package storage is the sqlite backend for the donation ledger. Every
// ledger mutation runs inside a single transaction; the donor append
// additionally uses an optimistic version column with compare-and-retry so
// concurrent appends for the same donor never lose an entry.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"monthlyaid/internal/core"
	"monthlyaid/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	// importBatchSize is the storage-layer ceiling on rows per import commit.
	importBatchSize = 500

	// appendRetries bounds the compare-and-retry loop on donor appends.
	appendRetries = 5
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordIntoMonth implements ledger.MonthRecorder: one read-modify-write
// transaction keyed by the UTC month of now. Either the whole increment
// commits or none of it does.
func (r *SQLiteRepository) RecordIntoMonth(ctx context.Context, amount core.Money, isAnonymous bool, now time.Time) (core.MonthKey, error) {
	if err := amount.Validate(); err != nil {
		return "", err
	}
	key := core.MonthKeyFor(now)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", core.Persistencef(err, "begin month transaction")
	}
	defer tx.Rollback()

	var total, anon int64
	err = tx.QueryRowContext(ctx,
		`SELECT total_paise, anonymous_donations FROM monthly_totals WHERE month = ?`, string(key)).
		Scan(&total, &anon)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		anonInc := int64(0)
		if isAnonymous {
			anonInc = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO monthly_totals (month, total_paise, anonymous_donations) VALUES (?, ?, ?)`,
			string(key), amount.Paise, anonInc)
		if err != nil {
			return "", core.Persistencef(err, "create monthly total %s", key)
		}
	case err != nil:
		return "", core.Persistencef(err, "read monthly total %s", key)
	default:
		total += amount.Paise
		if isAnonymous {
			anon++
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE monthly_totals SET total_paise = ?, anonymous_donations = ? WHERE month = ?`,
			total, anon, string(key))
		if err != nil {
			return "", core.Persistencef(err, "update monthly total %s", key)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", core.Persistencef(err, "commit monthly total %s", key)
	}
	return key, nil
}

func (r *SQLiteRepository) MonthlyTotal(ctx context.Context, key core.MonthKey) (core.MonthlyTotal, error) {
	mt := core.MonthlyTotal{Month: key}
	err := r.db.QueryRowContext(ctx,
		`SELECT total_paise, anonymous_donations FROM monthly_totals WHERE month = ?`, string(key)).
		Scan(&mt.Total.Paise, &mt.AnonymousDonations)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyTotal{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlyTotal{}, core.Persistencef(err, "read monthly total %s", key)
	}
	return mt, nil
}

// AppendDonation implements ledger.DonorLedger. The donor row carries a
// version counter: the update is conditional on the version read at the
// start of the attempt, and a lost race retries with backoff. Entry insert,
// running total and identity fields commit together or not at all.
func (r *SQLiteRepository) AppendDonation(ctx context.Context, donorID, name, phone string, amount core.Money, beneficiaryID int64, now time.Time) error {
	if err := amount.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return core.Persistencef(ctx.Err(), "append donation for donor %s", donorID)
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}
		conflict, err := r.tryAppendDonation(ctx, donorID, name, phone, amount, beneficiaryID, now)
		if err != nil {
			lastErr = err
			continue
		}
		if !conflict {
			return nil
		}
		slog.DebugContext(ctx, "Donor append conflict, retrying",
			"donor_id", donorID, "attempt", attempt+1)
		lastErr = core.Persistencef(nil, "concurrent update on donor %s", donorID)
	}
	return core.Persistencef(lastErr, "append donation for donor %s after %d attempts", donorID, appendRetries)
}

func (r *SQLiteRepository) tryAppendDonation(ctx context.Context, donorID, name, phone string, amount core.Money, beneficiaryID int64, now time.Time) (conflict bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, core.Persistencef(err, "begin donor transaction")
	}
	defer tx.Rollback()

	var version, total int64
	err = tx.QueryRowContext(ctx,
		`SELECT version, total_paise FROM donors WHERE id = ?`, donorID).
		Scan(&version, &total)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO donors (id, name, phone, total_paise, is_featured, version, created_at)
			 VALUES (?, ?, ?, ?, 0, 1, ?)`,
			donorID, name, phone, amount.Paise, formatTime(now))
		if err != nil {
			// A concurrent first donation may have inserted the row already.
			if strings.Contains(err.Error(), "UNIQUE") {
				return true, nil
			}
			return false, core.Persistencef(err, "create donor %s", donorID)
		}
	case err != nil:
		return false, core.Persistencef(err, "read donor %s", donorID)
	default:
		res, err := tx.ExecContext(ctx,
			`UPDATE donors SET total_paise = ?, name = ?, phone = ?, version = version + 1
			 WHERE id = ? AND version = ?`,
			total+amount.Paise, name, phone, donorID, version)
		if err != nil {
			return false, core.Persistencef(err, "update donor %s", donorID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, core.Persistencef(err, "update donor %s", donorID)
		}
		if n == 0 {
			return true, nil
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO donor_donations (donor_id, amount_paise, beneficiary_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		donorID, amount.Paise, nullableID(beneficiaryID), formatTime(now))
	if err != nil {
		return false, core.Persistencef(err, "append entry for donor %s", donorID)
	}

	if err := tx.Commit(); err != nil {
		return false, core.Persistencef(err, "commit donor %s", donorID)
	}
	return false, nil
}

func (r *SQLiteRepository) Donor(ctx context.Context, donorID string) (core.Donor, error) {
	var d core.Donor
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone, total_paise, is_featured, created_at FROM donors WHERE id = ?`, donorID).
		Scan(&d.ID, &d.Name, &d.Phone, &d.TotalDonated.Paise, &d.IsFeatured, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Donor{}, core.ErrNotFound
	}
	if err != nil {
		return core.Donor{}, core.Persistencef(err, "read donor %s", donorID)
	}
	d.CreatedAt = parseTime(createdAt)

	rows, err := r.db.QueryContext(ctx,
		`SELECT amount_paise, beneficiary_id, created_at FROM donor_donations
		 WHERE donor_id = ? ORDER BY id`, donorID)
	if err != nil {
		return core.Donor{}, core.Persistencef(err, "read donations for donor %s", donorID)
	}
	defer rows.Close()
	for rows.Next() {
		var e core.DonationEntry
		var bid sql.NullInt64
		var at string
		if err := rows.Scan(&e.Amount.Paise, &bid, &at); err != nil {
			return core.Donor{}, core.Persistencef(err, "scan donation for donor %s", donorID)
		}
		e.BeneficiaryID = bid.Int64
		e.CreatedAt = parseTime(at)
		d.Donations = append(d.Donations, e)
	}
	if err := rows.Err(); err != nil {
		return core.Donor{}, core.Persistencef(err, "read donations for donor %s", donorID)
	}
	return d, nil
}

func (r *SQLiteRepository) FeaturedDonors(ctx context.Context) ([]core.Donor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone, total_paise, is_featured, created_at FROM donors
		 WHERE is_featured = 1 ORDER BY total_paise DESC`)
	if err != nil {
		return nil, core.Persistencef(err, "list featured donors")
	}
	defer rows.Close()
	var out []core.Donor
	for rows.Next() {
		var d core.Donor
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.TotalDonated.Paise, &d.IsFeatured, &createdAt); err != nil {
			return nil, core.Persistencef(err, "scan featured donor")
		}
		d.CreatedAt = parseTime(createdAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistencef(err, "list featured donors")
	}
	return out, nil
}

func (r *SQLiteRepository) SetDonorFeatured(ctx context.Context, donorID string, featured bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE donors SET is_featured = ? WHERE id = ?`, featured, donorID)
	if err != nil {
		return core.Persistencef(err, "update donor %s", donorID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) AppendLog(ctx context.Context, d core.LoggedDonation) (int64, error) {
	if err := d.Amount.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO donations (name, phone, amount_paise, beneficiary_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.Name, d.Phone, d.Amount.Paise, nullableID(d.BeneficiaryID), formatTime(d.CreatedAt))
	if err != nil {
		return 0, core.Persistencef(err, "append donation log")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.Persistencef(err, "append donation log")
	}
	slog.InfoContext(ctx, "Donation logged",
		"id", id, "amount_paise", d.Amount.Paise, "beneficiary_id", d.BeneficiaryID)
	return id, nil
}

func (r *SQLiteRepository) LoggedDonation(ctx context.Context, id int64) (core.LoggedDonation, error) {
	d, err := scanLoggedDonation(r.db.QueryRowContext(ctx,
		`SELECT id, name, phone, amount_paise, beneficiary_id, created_at FROM donations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.LoggedDonation{}, core.ErrNotFound
	}
	if err != nil {
		return core.LoggedDonation{}, core.Persistencef(err, "read donation %d", id)
	}
	return d, nil
}

func (r *SQLiteRepository) RecentDonations(ctx context.Context, limit int) ([]core.LoggedDonation, error) {
	return r.queryLog(ctx,
		`SELECT id, name, phone, amount_paise, beneficiary_id, created_at FROM donations
		 ORDER BY id DESC LIMIT ?`, limit)
}

func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.LoggedDonation, error) {
	return r.queryLog(ctx,
		`SELECT id, name, phone, amount_paise, beneficiary_id, created_at FROM donations
		 WHERE exported = 0 ORDER BY id LIMIT ?`, limit)
}

func (r *SQLiteRepository) queryLog(ctx context.Context, q string, limit int) ([]core.LoggedDonation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, core.Persistencef(err, "query donation log")
	}
	defer rows.Close()
	var out []core.LoggedDonation
	for rows.Next() {
		d, err := scanLoggedDonation(rows)
		if err != nil {
			return nil, core.Persistencef(err, "scan donation log")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistencef(err, "query donation log")
	}
	return out, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE donations SET exported = 1, export_error = 0 WHERE id = ?`, id)
	if err != nil {
		return core.Persistencef(err, "mark donation %d exported", id)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE donations SET export_error = 1 WHERE id = ?`, id)
	if err != nil {
		return core.Persistencef(err, "mark donation %d export error", id)
	}
	slog.WarnContext(ctx, "Donation marked with export error", "id", id)
	return nil
}

func (r *SQLiteRepository) CreateBeneficiary(ctx context.Context, b core.Beneficiary) (int64, error) {
	if b.Status == "" {
		b.Status = core.StatusPending
	}
	proofs, err := json.Marshal(b.Proofs)
	if err != nil {
		return 0, core.Persistencef(err, "encode proofs")
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO beneficiaries
		 (name, category, other_category, story, summary, status, is_featured, proofs,
		  youtube_url, village_id, village_admin_id, village_admin_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Category, b.OtherCategory, b.Story, b.Summary, string(b.Status),
		b.IsFeatured, string(proofs), b.YoutubeURL, b.VillageID,
		b.VillageAdminID, b.VillageAdminName, formatTime(b.CreatedAt))
	if err != nil {
		return 0, core.Persistencef(err, "create beneficiary")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.Persistencef(err, "create beneficiary")
	}
	return id, nil
}

func (r *SQLiteRepository) Beneficiary(ctx context.Context, id int64) (core.Beneficiary, error) {
	b, err := r.scanBeneficiary(r.db.QueryRowContext(ctx,
		`SELECT id, name, category, other_category, story, summary, status, is_featured,
		        proofs, youtube_url, village_id, village_admin_id, village_admin_name,
		        rejection_reason, created_at
		 FROM beneficiaries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Beneficiary{}, core.ErrNotFound
	}
	if err != nil {
		return core.Beneficiary{}, core.Persistencef(err, "read beneficiary %d", id)
	}

	// Denormalized view over the flat log; not authoritative.
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount_paise, created_at FROM donations WHERE beneficiary_id = ? ORDER BY id`, id)
	if err != nil {
		return core.Beneficiary{}, core.Persistencef(err, "read donations for beneficiary %d", id)
	}
	defer rows.Close()
	for rows.Next() {
		var e core.DonationEntry
		var at string
		if err := rows.Scan(&e.Amount.Paise, &at); err != nil {
			return core.Beneficiary{}, core.Persistencef(err, "scan donation for beneficiary %d", id)
		}
		e.CreatedAt = parseTime(at)
		b.Donations = append(b.Donations, e)
	}
	if err := rows.Err(); err != nil {
		return core.Beneficiary{}, core.Persistencef(err, "read donations for beneficiary %d", id)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBeneficiaries(ctx context.Context, status core.BeneficiaryStatus, villageID int64) ([]core.Beneficiary, error) {
	q := `SELECT id, name, category, other_category, story, summary, status, is_featured,
	             proofs, youtube_url, village_id, village_admin_id, village_admin_name,
	             rejection_reason, created_at
	      FROM beneficiaries WHERE 1=1`
	var args []any
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	if villageID > 0 {
		q += ` AND village_id = ?`
		args = append(args, villageID)
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, core.Persistencef(err, "list beneficiaries")
	}
	defer rows.Close()
	var out []core.Beneficiary
	for rows.Next() {
		b, err := r.scanBeneficiary(rows)
		if err != nil {
			return nil, core.Persistencef(err, "scan beneficiary")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistencef(err, "list beneficiaries")
	}
	return out, nil
}

// DecideBeneficiary transitions a PENDING case. The update is conditional on
// the current status, so a case that was already decided is refused rather
// than silently overwritten.
func (r *SQLiteRepository) DecideBeneficiary(ctx context.Context, id int64, decision core.BeneficiaryStatus, rejectionReason string) error {
	if decision != core.StatusApproved && decision != core.StatusRejected {
		return core.Validationf("decision must be APPROVED or REJECTED, got %q", string(decision))
	}
	reason := ""
	if decision == core.StatusRejected {
		reason = rejectionReason
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE beneficiaries SET status = ?, rejection_reason = ?
		 WHERE id = ? AND status = 'PENDING'`,
		string(decision), reason, id)
	if err != nil {
		return core.Persistencef(err, "decide beneficiary %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Persistencef(err, "decide beneficiary %d", id)
	}
	if n == 0 {
		var status string
		err := r.db.QueryRowContext(ctx,
			`SELECT status FROM beneficiaries WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return core.Persistencef(err, "decide beneficiary %d", id)
		}
		return core.Validationf("case %d already decided (%s)", id, status)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBeneficiary(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM beneficiaries WHERE id = ?`, id)
	if err != nil {
		return core.Persistencef(err, "delete beneficiary %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	// Donations referencing the deleted case stay in the log; the dangling
	// reference is accepted.
	return nil
}

func (r *SQLiteRepository) SetBeneficiaryFeatured(ctx context.Context, id int64, featured bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE beneficiaries SET is_featured = ? WHERE id = ?`, featured, id)
	if err != nil {
		return core.Persistencef(err, "update beneficiary %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Villages(ctx context.Context) ([]core.Village, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, mandal, district, status FROM villages ORDER BY id`)
	if err != nil {
		return nil, core.Persistencef(err, "list villages")
	}
	defer rows.Close()
	var out []core.Village
	for rows.Next() {
		var v core.Village
		var status string
		if err := rows.Scan(&v.ID, &v.Name, &v.Mandal, &v.District, &status); err != nil {
			return nil, core.Persistencef(err, "scan village")
		}
		v.Status = core.VillageStatus(status)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Persistencef(err, "list villages")
	}
	return out, nil
}

func (r *SQLiteRepository) Village(ctx context.Context, id int64) (core.Village, error) {
	var v core.Village
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, mandal, district, status FROM villages WHERE id = ?`, id).
		Scan(&v.ID, &v.Name, &v.Mandal, &v.District, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Village{}, core.ErrNotFound
	}
	if err != nil {
		return core.Village{}, core.Persistencef(err, "read village %d", id)
	}
	v.Status = core.VillageStatus(status)
	return v, nil
}

func (r *SQLiteRepository) UpdateVillageStatus(ctx context.Context, id int64, status core.VillageStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE villages SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return core.Persistencef(err, "update village %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SeedVillages inserts the fixed dataset only when the collection is empty.
// The emptiness check and the inserts share one transaction, which is what
// makes repeated seeding a no-op.
func (r *SQLiteRepository) SeedVillages(ctx context.Context, villages []core.Village) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.Persistencef(err, "begin seed transaction")
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM villages`).Scan(&count); err != nil {
		return 0, core.Persistencef(err, "count villages")
	}
	if count > 0 {
		slog.InfoContext(ctx, "Villages collection already seeded", "count", count)
		return 0, nil
	}

	for _, v := range villages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO villages (name, mandal, district, status) VALUES (?, ?, ?, ?)`,
			v.Name, v.Mandal, v.District, string(v.Status))
		if err != nil {
			return 0, core.Persistencef(err, "seed village %s", v.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, core.Persistencef(err, "commit village seed")
	}
	slog.InfoContext(ctx, "Villages collection seeded", "count", len(villages))
	return len(villages), nil
}

// ImportVillages writes rows in batches of at most 500 per commit and forces
// status=inactive on every imported row regardless of the input.
func (r *SQLiteRepository) ImportVillages(ctx context.Context, rows []core.Village) (int, error) {
	if len(rows) == 0 {
		return 0, core.Validationf("import dataset is empty, nothing to upload")
	}
	imported := 0
	for start := 0; start < len(rows); start += importBatchSize {
		end := start + importBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return imported, core.Persistencef(err, "begin import batch")
		}
		for _, v := range rows[start:end] {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO villages (name, mandal, district, status) VALUES (?, ?, ?, ?)`,
				v.Name, v.Mandal, v.District, string(core.VillageInactive))
			if err != nil {
				tx.Rollback()
				return imported, core.Persistencef(err, "import village %s", v.Name)
			}
		}
		if err := tx.Commit(); err != nil {
			return imported, core.Persistencef(err, "commit import batch")
		}
		imported += end - start
		slog.InfoContext(ctx, "Imported village batch",
			"batch", start/importBatchSize+1, "rows", end-start)
	}
	return imported, nil
}

func (r *SQLiteRepository) AdminByPhone(ctx context.Context, phone string) (core.Admin, error) {
	var a core.Admin
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone FROM admins WHERE phone = ?`, phone).
		Scan(&a.ID, &a.Name, &a.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Admin{}, core.ErrNotFound
	}
	if err != nil {
		return core.Admin{}, core.Persistencef(err, "read admin")
	}
	return a, nil
}

func (r *SQLiteRepository) VillageAdminByPhone(ctx context.Context, phone string) (core.VillageAdmin, error) {
	var va core.VillageAdmin
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone, village_id FROM village_admins WHERE phone = ?`, phone).
		Scan(&va.ID, &va.Name, &va.Phone, &va.VillageID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.VillageAdmin{}, core.ErrNotFound
	}
	if err != nil {
		return core.VillageAdmin{}, core.Persistencef(err, "read village admin")
	}
	return va, nil
}

func (r *SQLiteRepository) VillageAdmin(ctx context.Context, id int64) (core.VillageAdmin, error) {
	var va core.VillageAdmin
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone, village_id FROM village_admins WHERE id = ?`, id).
		Scan(&va.ID, &va.Name, &va.Phone, &va.VillageID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.VillageAdmin{}, core.ErrNotFound
	}
	if err != nil {
		return core.VillageAdmin{}, core.Persistencef(err, "read village admin %d", id)
	}
	return va, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoggedDonation(row rowScanner) (core.LoggedDonation, error) {
	var d core.LoggedDonation
	var bid sql.NullInt64
	var at string
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Amount.Paise, &bid, &at); err != nil {
		return core.LoggedDonation{}, err
	}
	d.BeneficiaryID = bid.Int64
	d.CreatedAt = parseTime(at)
	return d, nil
}

func (r *SQLiteRepository) scanBeneficiary(row rowScanner) (core.Beneficiary, error) {
	var b core.Beneficiary
	var status, proofs, createdAt string
	err := row.Scan(&b.ID, &b.Name, &b.Category, &b.OtherCategory, &b.Story, &b.Summary,
		&status, &b.IsFeatured, &proofs, &b.YoutubeURL, &b.VillageID,
		&b.VillageAdminID, &b.VillageAdminName, &b.RejectionReason, &createdAt)
	if err != nil {
		return core.Beneficiary{}, err
	}
	b.Status = core.BeneficiaryStatus(status)
	b.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(proofs), &b.Proofs); err != nil {
		b.Proofs = nil
	}
	return b, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
