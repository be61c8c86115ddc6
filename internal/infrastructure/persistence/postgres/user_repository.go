package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"quantprep/internal/database"
	"quantprep/internal/domain/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, email, name, subscription_status, subscription_plan, stripe_customer_id, subscription_id, created_at, updated_at`

type UserRepository struct {
	db database.DB
}

func NewUserRepository(db database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = user.StatusFree
	}
	if u.SubscriptionPlan == "" {
		u.SubscriptionPlan = user.PlanFree
	}
	now := time.Now().UTC()

	row := r.db.QueryRow(
		ctx,
		`INSERT INTO users (id, email, name, subscription_status, subscription_plan, stripe_customer_id, subscription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+userColumns,
		u.ID,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.Name,
		string(u.SubscriptionStatus),
		string(u.SubscriptionPlan),
		u.StripeCustomerID,
		u.SubscriptionID,
		now,
	)
	out, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, err
	}
	return out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(r.db.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	))
}

func (r *UserRepository) UpdateSubscriptionByEmail(ctx context.Context, email string, upd user.SubscriptionUpdate) (int64, error) {
	return r.updateSubscription(ctx, `lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)), upd)
}

func (r *UserRepository) UpdateSubscriptionByCustomerID(ctx context.Context, customerID string, upd user.SubscriptionUpdate) (int64, error) {
	return r.updateSubscription(ctx, `stripe_customer_id = $1`, customerID, upd)
}

func (r *UserRepository) updateSubscription(ctx context.Context, where string, key string, upd user.SubscriptionUpdate) (int64, error) {
	var plan *string
	if upd.Plan != nil {
		p := string(*upd.Plan)
		plan = &p
	}
	var status *string
	if upd.Status != "" {
		s := string(upd.Status)
		status = &s
	}

	return r.db.Exec(
		ctx,
		`UPDATE users SET
			subscription_status = COALESCE($2, subscription_status),
			subscription_plan = COALESCE($3, subscription_plan),
			stripe_customer_id = COALESCE($4, stripe_customer_id),
			subscription_id = COALESCE($5, subscription_id),
			updated_at = $6
		WHERE `+where,
		key,
		status,
		plan,
		upd.CustomerID,
		upd.SubscriptionID,
		time.Now().UTC(),
	)
}

func scanUser(row database.Row) (user.User, error) {
	var u user.User
	var status, plan string
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&status,
		&plan,
		&u.StripeCustomerID,
		&u.SubscriptionID,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	u.SubscriptionStatus = user.SubscriptionStatus(status)
	u.SubscriptionPlan = user.Plan(plan)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ user.Repository = (*UserRepository)(nil)
