package store

import (
	"context"
	"strconv"
)

type (
	User struct {
		ID               int64
		Username         string
		Email            string
		PasswordHash     string
		IsAdmin          bool
		IsBlocked        bool
		WantsTemperature bool
		WantsHumidity    bool
		WantsPressure    bool
	}

	// Display holds which metrics the user wants to see
	Display struct {
		Temperature bool
		Humidity    bool
		Pressure    bool
	}
)

const userColumns = `user_id, username, email, password_hash, is_admin, is_blocked, wants_temperature, wants_humidity, wants_pressure`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsBlocked,
		&u.WantsTemperature, &u.WantsHumidity, &u.WantsPressure)
	return u, err
}

func (c Conn) UserByName(ctx context.Context, username string) (User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, `select `+userColumns+` from users where username = ?`, username))
	if err != nil {
		return User{}, notFoundOr("lookup user", err, NotFound{Entity: "user", Key: username})
	}
	return u, nil
}

func (c Conn) UserByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, `select `+userColumns+` from users where user_id = ?`, id))
	if err != nil {
		return User{}, notFoundOr("lookup user", err, NotFound{Entity: "user", Key: strconv.FormatInt(id, 10)})
	}
	return u, nil
}

func (c Conn) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := c.q.QueryContext(ctx, `select `+userColumns+` from users order by user_id asc`)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify("list users", err)
		}
		out = append(out, u)
	}
	return out, classify("list users", rows.Err())
}

func (c Conn) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return c.updateUserFlag(ctx, "set admin", `update users set is_admin = ? where user_id = ?`, admin, id)
}

func (c Conn) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return c.updateUserFlag(ctx, "set blocked", `update users set is_blocked = ? where user_id = ?`, blocked, id)
}

func (c Conn) updateUserFlag(ctx context.Context, op, stmt string, val bool, id int64) error {
	res, err := c.q.ExecContext(ctx, stmt, val, id)
	if err != nil {
		return classify(op, err)
	}
	return expectAffected(op, res, NotFound{Entity: "user", Key: strconv.FormatInt(id, 10)})
}

// UpdateDisplay stores the display preferences for the given user
func (c Conn) UpdateDisplay(ctx context.Context, id int64, d Display) error {
	res, err := c.q.ExecContext(ctx, `update users set wants_temperature = ?, wants_humidity = ?, wants_pressure = ? where user_id = ?`,
		d.Temperature, d.Humidity, d.Pressure, id)
	if err != nil {
		return classify("update display", err)
	}
	return expectAffected("update display", res, NotFound{Entity: "user", Key: strconv.FormatInt(id, 10)})
}

// UserIDs returns the id of every registered user, ordered
func (c Conn) UserIDs(ctx context.Context) ([]int64, error) {
	return c.ids(ctx, "list user ids", `select user_id from users order by user_id asc`)
}

func (c Conn) CountUsers(ctx context.Context) (int64, error) {
	return c.count(ctx, "count users", `select count(*) from users`)
}

// InsertUser is only available inside a transaction, a user must never
// be visible without its interest rows.
func (t *Tx) InsertUser(ctx context.Context, u User) (int64, error) {
	var id int64
	err := t.q.QueryRowContext(ctx, `insert into users(username, email, password_hash, is_admin, is_blocked, wants_temperature, wants_humidity, wants_pressure)
		values (?, ?, ?, ?, ?, ?, ?, ?) returning user_id`,
		u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.IsBlocked,
		u.WantsTemperature, u.WantsHumidity, u.WantsPressure).Scan(&id)
	if err != nil {
		return 0, classify("insert user", err)
	}
	return id, nil
}
