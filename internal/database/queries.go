package database

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (db *PgDmRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (username, password_hash) "+
			"VALUES ($1, $2) RETURNING id, username, created_at",
		params.Username,
		params.PasswordHash,
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return User{}, ErrDuplicateUsername
	}

	return u, err
}

func (db *PgDmRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgDmRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	return user, err
}

// ListAccounts returns users in id order, skipping excludeId. An
// excludeId of 0 matches no row, so it lists everyone.
func (db *PgDmRepository) ListAccounts(excludeId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username FROM users WHERE id <> $1 ORDER BY id",
		excludeId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.Username); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

// FindRoomByMembers returns the room both users are members of. With
// the pair constraint in place there is at most one; should the data
// ever disagree, the lowest room id wins.
func (db *PgDmRepository) FindRoomByMembers(userA, userB int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT r.id, r.last_message, r.user_lo, r.user_hi FROM rooms r "+
			"JOIN room_members ma ON ma.room_id = r.id AND ma.user_id = $1 "+
			"JOIN room_members mb ON mb.room_id = r.id AND mb.user_id = $2 "+
			"ORDER BY r.id ASC LIMIT 1",
		userA,
		userB,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.LastMessage,
		&room.UserLo,
		&room.UserHi,
	)

	return room, err
}

// CreateRoom inserts a room for the pair and both memberships in one
// transaction. A lost race against a concurrent creator surfaces as
// ErrDuplicateRoom via the rooms_pair_unique constraint.
func (db *PgDmRepository) CreateRoom(userA, userB int) (Room, error) {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO rooms (last_message, user_lo, user_hi) "+
			"VALUES ('', $1, $2) RETURNING id, last_message, user_lo, user_hi",
		lo,
		hi,
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.LastMessage,
		&room.UserLo,
		&room.UserHi,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateRoom
		}
		return Room{}, err
	}

	_, err = tx.Exec(
		"INSERT INTO room_members (room_id, user_id) VALUES ($1, $2), ($1, $3)",
		room.Id,
		lo,
		hi,
	)
	if err != nil {
		return Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

func (db *PgDmRepository) GetMembership(userId, roomId int) (Membership, error) {
	row := db.conn.QueryRow(
		"SELECT id, room_id, user_id, unread_count FROM room_members "+
			"WHERE user_id = $1 AND room_id = $2 LIMIT 1",
		userId,
		roomId,
	)

	var m Membership
	err := row.Scan(
		&m.Id,
		&m.RoomId,
		&m.UserId,
		&m.UnreadCount,
	)

	return m, err
}

func (db *PgDmRepository) ListRoomsForAccount(userId int) ([]RoomSummary, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.last_message, m.unread_count, peer.username "+
			"FROM room_members m "+
			"JOIN rooms r ON r.id = m.room_id "+
			"JOIN room_members pm ON pm.room_id = r.id AND pm.user_id <> m.user_id "+
			"JOIN users peer ON peer.id = pm.user_id "+
			"WHERE m.user_id = $1 ORDER BY r.id",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries = make([]RoomSummary, 0)
	for rows.Next() {
		var s RoomSummary
		if err = rows.Scan(&s.Id, &s.LastMessage, &s.UnreadCount, &s.PeerName); err != nil {
			break
		}

		summaries = append(summaries, s)
	}

	return summaries, err
}

// CreateMessage appends a message and, in the same transaction, caches
// it as the room's last message and bumps the other member's unread
// counter. Either all three writes land or none do.
func (db *PgDmRepository) CreateMessage(roomId, senderId int, content string) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO messages (room_id, user_id, content) "+
			"VALUES ($1, $2, $3) RETURNING id, room_id, user_id, content, created_on",
		roomId,
		senderId,
		content,
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.UserId,
		&msg.Content,
		&msg.CreatedOn,
	)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.Exec(
		"UPDATE rooms SET last_message = $1 WHERE id = $2",
		content,
		roomId,
	)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.Exec(
		"UPDATE room_members SET unread_count = unread_count + 1 "+
			"WHERE room_id = $1 AND user_id <> $2",
		roomId,
		senderId,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// MarkRoomRead resets the caller's unread counter and stamps read_on on
// every unread message from the other member, as one transaction.
func (db *PgDmRepository) MarkRoomRead(userId, roomId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		"UPDATE room_members SET unread_count = 0 "+
			"WHERE room_id = $1 AND user_id = $2",
		roomId,
		userId,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"UPDATE messages SET read_on = now() "+
			"WHERE room_id = $1 AND user_id <> $2 AND read_on IS NULL",
		roomId,
		userId,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgDmRepository) GetMessages(roomId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, user_id, content, created_on, read_on FROM messages "+
			"WHERE room_id = $1 ORDER BY created_on ASC, id ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.UserId, &msg.Content, &msg.CreatedOn, &msg.ReadOn); err != nil {
			break
		}

		messages = append(messages, msg)
	}

	return messages, err
}
