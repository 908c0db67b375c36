package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

// ErrAdminLeave is returned when the community admin tries to leave.
var ErrAdminLeave = errors.New("community admin cannot leave")

type CommunityRepo struct{ db *sql.DB }

func NewCommunityRepo(db *sql.DB) *CommunityRepo { return &CommunityRepo{db: db} }

const communitySelect = `SELECT c.id, c.name, c.description, c.admin_id, c.auto_notify, c.members_count,
	c.created_at, c.updated_at, COALESCE(u.full_name, ''), COALESCE(u.email, '')
	FROM micro_communities c
	LEFT JOIN users u ON u.id = c.admin_id`

func scanCommunity(s rowScanner) (*model.Community, error) {
	var c model.Community
	var desc sql.NullString
	var adminName, adminEmail string
	if err := s.Scan(&c.ID, &c.Name, &desc, &c.AdminID, &c.AutoNotify, &c.MembersCount,
		&c.CreatedAt, &c.UpdatedAt, &adminName, &adminEmail); err != nil {
		return nil, err
	}
	c.Description = nullStr(desc)
	c.Admin = &model.UserRef{ID: c.AdminID, FullName: adminName, Email: adminEmail}
	c.Interests = []model.Interest{}
	return &c, nil
}

// CommunityFilter narrows community listings.
type CommunityFilter struct {
	Search     string
	Category   string // interest category
	InterestID string
	MemberID   string // only communities this user belongs to
	Page       int
	Limit      int
}

func (f CommunityFilter) build() (string, []any) {
	where := []string{"1=1"}
	args := []any{}
	if f.Search != "" {
		like := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		where = append(where, "(LOWER(c.name) LIKE ? OR LOWER(c.description) LIKE ?)")
		args = append(args, like, like)
	}
	if f.InterestID != "" {
		where = append(where, "c.id IN (SELECT community_id FROM community_interests WHERE interest_id = ?)")
		args = append(args, f.InterestID)
	}
	if f.Category != "" {
		where = append(where, `c.id IN (SELECT ci.community_id FROM community_interests ci
			JOIN interests i ON i.id = ci.interest_id WHERE i.category = ?)`)
		args = append(args, f.Category)
	}
	if f.MemberID != "" {
		where = append(where, "c.id IN (SELECT community_id FROM community_members WHERE user_id = ?)")
		args = append(args, f.MemberID)
	}
	return strings.Join(where, " AND "), args
}

// List returns one page of communities, largest first, and the total count.
func (r *CommunityRepo) List(ctx context.Context, f CommunityFilter) ([]model.Community, int, error) {
	cond, args := f.build()
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM micro_communities c WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Page < 1 {
		f.Page = 1
	}
	q := communitySelect + " WHERE " + cond + " ORDER BY c.members_count DESC, c.created_at DESC, c.id LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(append([]any{}, args...), f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Community{}
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *CommunityRepo) GetByID(ctx context.Context, id string) (*model.Community, error) {
	c, err := scanCommunity(r.db.QueryRowContext(ctx, communitySelect+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *CommunityRepo) Interests(ctx context.Context, communityID string) ([]model.Interest, error) {
	const q = `SELECT i.id, i.name, i.category, i.description, i.created_at, i.updated_at
		FROM community_interests ci
		JOIN interests i ON i.id = ci.interest_id
		WHERE ci.community_id = ?
		ORDER BY i.name`
	rows, err := r.db.QueryContext(ctx, q, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Interest{}
	for rows.Next() {
		var in model.Interest
		var cat, desc sql.NullString
		if err := rows.Scan(&in.ID, &in.Name, &cat, &desc, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, err
		}
		in.Category, in.Description = nullStr(cat), nullStr(desc)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *CommunityRepo) Members(ctx context.Context, communityID string) ([]model.CommunityMember, error) {
	const q = `SELECT u.id, u.full_name, u.email, u.id = c.admin_id, cm.joined_at
		FROM community_members cm
		JOIN users u ON u.id = cm.user_id
		JOIN micro_communities c ON c.id = cm.community_id
		WHERE cm.community_id = ?
		ORDER BY cm.joined_at, u.id`
	rows, err := r.db.QueryContext(ctx, q, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CommunityMember{}
	for rows.Next() {
		var m model.CommunityMember
		if err := rows.Scan(&m.UserID, &m.FullName, &m.Email, &m.IsAdmin, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *CommunityRepo) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM community_members WHERE community_id = ? AND user_id = ?", communityID, userID).Scan(&n)
	return n > 0, err
}

// Create inserts c with its admin as the first member and links the given
// interests.  Unknown interest ids are skipped.
func (r *CommunityRepo) Create(ctx context.Context, c *model.Community, interestIDs []string) error {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.MembersCount = 1
	c.CreatedAt, c.UpdatedAt = now, now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO micro_communities (id, name, description, admin_id, auto_notify, members_count, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Description, c.AdminID, c.AutoNotify, c.MembersCount, now, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO community_members (id, community_id, user_id, joined_at) VALUES (?,?,?,?)",
		uuid.NewString(), c.ID, c.AdminID, now); err != nil {
		return err
	}
	if len(interestIDs) > 0 {
		args := append([]any{c.ID}, strArgs(interestIDs)...)
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO community_interests (community_id, interest_id) SELECT ?, id FROM interests WHERE id IN ("+
				placeholders(len(interestIDs))+")", args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Join adds userID as a member and bumps members_count in one transaction.
func (r *CommunityRepo) Join(ctx context.Context, communityID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO community_members (id, community_id, user_id, joined_at) VALUES (?,?,?,?)",
		uuid.NewString(), communityID, userID, time.Now().UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE micro_communities SET members_count = members_count + 1 WHERE id = ?", communityID); err != nil {
		return err
	}
	return tx.Commit()
}

// Leave removes userID from the community.  The admin cannot leave.
func (r *CommunityRepo) Leave(ctx context.Context, communityID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var adminID string
	err = tx.QueryRowContext(ctx, "SELECT admin_id FROM micro_communities WHERE id = ? FOR UPDATE", communityID).Scan(&adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if adminID == userID {
		return ErrAdminLeave
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM community_members WHERE community_id = ? AND user_id = ?", communityID, userID)
	if err := affectedOrNotFound(res, err); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE micro_communities SET members_count = GREATEST(members_count - 1, 0) WHERE id = ?", communityID); err != nil {
		return err
	}
	return tx.Commit()
}
