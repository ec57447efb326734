package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

const customerColumns = `
	u.id, u.name, u.email, u.mobile,
	m.consumer_type, m.customer_type, m.city,
	m.not_get_emergency, m.not_get_nighttime, m.not_get_notification,
	COALESCE(ARRAY(SELECT t.town FROM user_towns t WHERE t.user_id = u.id ORDER BY t.town), '{}') AS towns,
	COALESCE(ARRAY(SELECT b.translator_id FROM users_blacklist b WHERE b.user_id = u.id ORDER BY b.translator_id), '{}') AS blacklist
`

const translatorColumns = `
	u.id, u.name, u.email, u.mobile,
	m.translator_type, m.translator_level, m.gender, m.city,
	m.not_get_emergency, m.not_get_nighttime, m.not_get_notification,
	COALESCE(ARRAY(SELECT l.language_id FROM user_languages l WHERE l.user_id = u.id ORDER BY l.language_id), '{}') AS languages,
	COALESCE(ARRAY(SELECT t.town FROM user_towns t WHERE t.user_id = u.id ORDER BY t.town), '{}') AS towns
`

type customerRow struct {
	domain.Customer
	Towns     pq.StringArray `db:"towns"`
	Blacklist pq.Int64Array  `db:"blacklist"`
}

func (r *customerRow) toDomain() *domain.Customer {
	c := r.Customer
	c.Towns = []string(r.Towns)
	c.Blacklist = []int64(r.Blacklist)
	return &c
}

type translatorRow struct {
	domain.Translator
	Languages pq.Int64Array  `db:"languages"`
	Towns     pq.StringArray `db:"towns"`
}

func (r *translatorRow) toDomain() *domain.Translator {
	t := r.Translator
	t.Languages = []int64(r.Languages)
	t.Towns = []string(r.Towns)
	return &t
}

// FindCustomer loads a customer with towns and blacklist
func (s *Storage) FindCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var row customerRow
	query := `
		SELECT ` + customerColumns + `
		FROM users u
		JOIN user_meta m ON m.user_id = u.id
		WHERE u.id = $1 AND u.role = 'customer'
	`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("customer", id)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return row.toDomain(), nil
}

// FindCustomers loads several customers keyed by id. Unknown ids are skipped.
func (s *Storage) FindCustomers(ctx context.Context, ids []int64) (map[int64]*domain.Customer, error) {
	var rows []customerRow
	query := `
		SELECT ` + customerColumns + `
		FROM users u
		JOIN user_meta m ON m.user_id = u.id
		WHERE u.id = ANY($1) AND u.role = 'customer'
	`
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get customers: %w", err)
	}

	out := make(map[int64]*domain.Customer, len(rows))
	for i := range rows {
		c := rows[i].toDomain()
		out[c.ID] = c
	}
	return out, nil
}

// FindTranslator loads a translator with languages and towns
func (s *Storage) FindTranslator(ctx context.Context, id int64) (*domain.Translator, error) {
	var row translatorRow
	query := `
		SELECT ` + translatorColumns + `
		FROM users u
		JOIN user_meta m ON m.user_id = u.id
		WHERE u.id = $1 AND u.role = 'translator'
	`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("translator", id)
		}
		return nil, fmt.Errorf("failed to get translator: %w", err)
	}
	return row.toDomain(), nil
}

// FindTranslatorByEmail matches the email case-insensitively
func (s *Storage) FindTranslatorByEmail(ctx context.Context, email string) (*domain.Translator, error) {
	var row translatorRow
	query := `
		SELECT ` + translatorColumns + `
		FROM users u
		JOIN user_meta m ON m.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1) AND u.role = 'translator'
	`
	if err := s.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("translator %q: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get translator: %w", err)
	}
	return row.toDomain(), nil
}

// FindUser resolves an id to its Customer or Translator variant
func (s *Storage) FindUser(ctx context.Context, id int64) (domain.User, error) {
	var role domain.Role
	if err := s.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	switch role {
	case domain.RoleCustomer:
		return s.FindCustomer(ctx, id)
	case domain.RoleTranslator:
		return s.FindTranslator(ctx, id)
	default:
		return nil, fmt.Errorf("user %d has unknown role %q", id, role)
	}
}

// ListTranslators returns translators of the type who speak the language
func (s *Storage) ListTranslators(ctx context.Context, translatorType domain.TranslatorType, languageID int64) ([]*domain.Translator, error) {
	var rows []translatorRow
	query := `
		SELECT ` + translatorColumns + `
		FROM users u
		JOIN user_meta m ON m.user_id = u.id
		WHERE u.role = 'translator'
		  AND m.translator_type = $1
		  AND EXISTS (SELECT 1 FROM user_languages l WHERE l.user_id = u.id AND l.language_id = $2)
		ORDER BY u.id
	`
	if err := s.db.SelectContext(ctx, &rows, query, translatorType, languageID); err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}

	out := make([]*domain.Translator, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// LanguageName returns the display name of a language
func (s *Storage) LanguageName(ctx context.Context, id int64) (string, error) {
	var name string
	if err := s.db.GetContext(ctx, &name, `SELECT name FROM languages WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.NewNotFound("language", id)
		}
		return "", fmt.Errorf("failed to get language: %w", err)
	}
	return name, nil
}
