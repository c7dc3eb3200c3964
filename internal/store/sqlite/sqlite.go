package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/podhouse/podhouse-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (creating if necessary) a SQLite database and applies the schema.
// dbPath is the path to the database file; use ":memory:" for tests.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, displayName, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, display_name, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, displayName, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, display_name, avatar_url, role, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, display_name, avatar_url, role, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.AvatarURL,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== PodStore implementation ====

// CreatePod creates a new pod owned by ownerID.
func (s *SQLiteStore) CreatePod(ctx context.Context, name string, ownerID int64) (*store.Pod, error) {
	query := `
		INSERT INTO pods (name, owner_id)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert pod: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetPodByID(ctx, id)
}

// GetPodByID retrieves a pod by ID.
func (s *SQLiteStore) GetPodByID(ctx context.Context, id int64) (*store.Pod, error) {
	query := `
		SELECT id, name, owner_id, created_at
		FROM pods
		WHERE id = ?
	`
	var pod store.Pod
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&pod.ID,
		&pod.Name,
		&pod.OwnerID,
		&pod.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pod: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query pod: %w", err)
	}

	return &pod, nil
}

// ListPods lists pods the user owns or is a member of.
func (s *SQLiteStore) ListPods(ctx context.Context, userID int64) ([]*store.Pod, error) {
	query := `
		SELECT DISTINCT p.id, p.name, p.owner_id, p.created_at
		FROM pods p
		LEFT JOIN pod_members pm ON p.id = pm.pod_id
		WHERE p.owner_id = ? OR pm.user_id = ?
		ORDER BY p.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query pods: %w", err)
	}
	defer rows.Close()

	var pods []*store.Pod
	for rows.Next() {
		var pod store.Pod
		if err := rows.Scan(&pod.ID, &pod.Name, &pod.OwnerID, &pod.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pod: %w", err)
		}
		pods = append(pods, &pod)
	}

	return pods, rows.Err()
}

// AddPodMember adds a user to a pod. Adding twice is a no-op.
func (s *SQLiteStore) AddPodMember(ctx context.Context, podID, userID int64) error {
	query := `
		INSERT OR IGNORE INTO pod_members (pod_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, podID, userID); err != nil {
		return fmt.Errorf("insert pod member: %w", err)
	}

	return nil
}

// RemovePodMember removes a user from a pod.
func (s *SQLiteStore) RemovePodMember(ctx context.Context, podID, userID int64) error {
	query := `
		DELETE FROM pod_members
		WHERE pod_id = ? AND user_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, podID, userID); err != nil {
		return fmt.Errorf("delete pod member: %w", err)
	}

	return nil
}

// IsPodMember checks pod membership.
func (s *SQLiteStore) IsPodMember(ctx context.Context, podID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM pod_members
		WHERE pod_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, podID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query pod membership: %w", err)
	}

	return true, nil
}

// ==== RoomStore implementation ====

// CreateRoom creates a room inside a pod.
func (s *SQLiteStore) CreateRoom(ctx context.Context, podID int64, name string, isPrivate bool) (*store.Room, error) {
	query := `
		INSERT INTO rooms (pod_id, name, is_private)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, podID, name, isPrivate)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, pod_id, name, is_private, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.PodID,
		&room.Name,
		&room.IsPrivate,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// ListRooms lists rooms of a pod.
func (s *SQLiteStore) ListRooms(ctx context.Context, podID int64) ([]*store.Room, error) {
	query := `
		SELECT id, pod_id, name, is_private, created_at
		FROM rooms
		WHERE pod_id = ?
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, podID)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(&room.ID, &room.PodID, &room.Name, &room.IsPrivate, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}

// AddRoomMember adds a user to a private room's member subset.
func (s *SQLiteStore) AddRoomMember(ctx context.Context, roomID, userID int64) error {
	query := `
		INSERT OR IGNORE INTO room_members (room_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, userID); err != nil {
		return fmt.Errorf("insert room member: %w", err)
	}

	return nil
}

// IsRoomMember checks private-room subset membership.
func (s *SQLiteStore) IsRoomMember(ctx context.Context, roomID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM room_members
		WHERE room_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, roomID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query room membership: %w", err)
	}

	return true, nil
}

// ==== ChatStore implementation ====

// CreateChat creates a two-party chat. The participant pair is stored in
// ascending ID order so the pair is unique regardless of direction.
func (s *SQLiteStore) CreateChat(ctx context.Context, userAID, userBID int64) (*store.Chat, error) {
	if userBID < userAID {
		userAID, userBID = userBID, userAID
	}

	query := `
		INSERT INTO chats (user_a_id, user_b_id)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, userAID, userBID)
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetChatByID(ctx, id)
}

// GetChatByID retrieves a chat by ID.
func (s *SQLiteStore) GetChatByID(ctx context.Context, id int64) (*store.Chat, error) {
	query := `
		SELECT id, user_a_id, user_b_id, last_message_at, created_at
		FROM chats
		WHERE id = ?
	`
	return s.scanChat(s.db.QueryRowContext(ctx, query, id))
}

// GetChatByParticipants retrieves the chat between two users, in either order.
func (s *SQLiteStore) GetChatByParticipants(ctx context.Context, userAID, userBID int64) (*store.Chat, error) {
	if userBID < userAID {
		userAID, userBID = userBID, userAID
	}

	query := `
		SELECT id, user_a_id, user_b_id, last_message_at, created_at
		FROM chats
		WHERE user_a_id = ? AND user_b_id = ?
	`
	return s.scanChat(s.db.QueryRowContext(ctx, query, userAID, userBID))
}

func (s *SQLiteStore) scanChat(row *sql.Row) (*store.Chat, error) {
	var chat store.Chat
	err := row.Scan(
		&chat.ID,
		&chat.UserAID,
		&chat.UserBID,
		&chat.LastMessageAt,
		&chat.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query chat: %w", err)
	}

	return &chat, nil
}

// ListChats lists a user's chats ordered by last activity, newest first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID int64) ([]*store.Chat, error) {
	query := `
		SELECT id, user_a_id, user_b_id, last_message_at, created_at
		FROM chats
		WHERE user_a_id = ? OR user_b_id = ?
		ORDER BY last_message_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var chats []*store.Chat
	for rows.Next() {
		var chat store.Chat
		if err := rows.Scan(&chat.ID, &chat.UserAID, &chat.UserBID, &chat.LastMessageAt, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, &chat)
	}

	return chats, rows.Err()
}

// TouchChat advances a chat's last-activity timestamp.
func (s *SQLiteStore) TouchChat(ctx context.Context, chatID int64, at time.Time) error {
	query := `
		UPDATE chats
		SET last_message_at = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, at, chatID); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}

	return nil
}

// CreateChatRequest creates a pending message request.
func (s *SQLiteStore) CreateChatRequest(ctx context.Context, fromUserID, toUserID int64) (*store.ChatRequest, error) {
	query := `
		INSERT INTO chat_requests (from_user_id, to_user_id, status)
		VALUES (?, ?, 'pending')
	`
	result, err := s.db.ExecContext(ctx, query, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("insert chat request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetChatRequest(ctx, id)
}

// GetChatRequest retrieves a request by ID.
func (s *SQLiteStore) GetChatRequest(ctx context.Context, id int64) (*store.ChatRequest, error) {
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM chat_requests
		WHERE id = ?
	`
	return s.scanChatRequest(s.db.QueryRowContext(ctx, query, id))
}

// GetChatRequestBetween retrieves a request between two users, in either direction.
func (s *SQLiteStore) GetChatRequestBetween(ctx context.Context, userAID, userBID int64) (*store.ChatRequest, error) {
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM chat_requests
		WHERE (from_user_id = ? AND to_user_id = ?)
		   OR (from_user_id = ? AND to_user_id = ?)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanChatRequest(s.db.QueryRowContext(ctx, query, userAID, userBID, userBID, userAID))
}

func (s *SQLiteStore) scanChatRequest(row *sql.Row) (*store.ChatRequest, error) {
	var req store.ChatRequest
	err := row.Scan(
		&req.ID,
		&req.FromUserID,
		&req.ToUserID,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat request: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query chat request: %w", err)
	}

	return &req, nil
}

// UpdateChatRequestStatus moves a request through its lifecycle.
func (s *SQLiteStore) UpdateChatRequestStatus(ctx context.Context, id int64, status store.ChatRequestStatus) error {
	query := `
		UPDATE chat_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update chat request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("chat request: %w", store.ErrNotFound)
	}

	return nil
}

// ListChatRequests lists requests addressed to a user, optionally by status.
func (s *SQLiteStore) ListChatRequests(ctx context.Context, toUserID int64, status *store.ChatRequestStatus) ([]*store.ChatRequest, error) {
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM chat_requests
		WHERE to_user_id = ?
	`
	args := []interface{}{toUserID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat requests: %w", err)
	}
	defer rows.Close()

	var reqs []*store.ChatRequest
	for rows.Next() {
		var req store.ChatRequest
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat request: %w", err)
		}
		reqs = append(reqs, &req)
	}

	return reqs, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and fills in its ID.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (room_id, chat_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.RoomID, msg.ChatID, msg.SenderID, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessageByID retrieves a message by ID.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, room_id, chat_id, sender_id, content, created_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	var roomID, chatID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&roomID,
		&chatID,
		&msg.SenderID,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	if roomID.Valid {
		msg.RoomID = &roomID.Int64
	}
	if chatID.Valid {
		msg.ChatID = &chatID.Int64
	}

	return &msg, nil
}

// ListRoomMessages retrieves room messages hydrated with sender profiles.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, roomID int64, limit int, before *store.Message) ([]*store.MessageWithSender, error) {
	return s.listMessages(ctx, "room_id", roomID, limit, before)
}

// ListChatMessages retrieves chat messages hydrated with sender profiles.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, chatID int64, limit int, before *store.Message) ([]*store.MessageWithSender, error) {
	return s.listMessages(ctx, "chat_id", chatID, limit, before)
}

// listMessages pages newest-first on (created_at, id) and reverses the page
// so callers receive oldest-first. The before cursor excludes the cursor row
// and everything newer.
func (s *SQLiteStore) listMessages(ctx context.Context, column string, targetID int64, limit int, before *store.Message) ([]*store.MessageWithSender, error) {
	query := `
		SELECT m.id, m.room_id, m.chat_id, m.sender_id, m.content, m.created_at,
		       u.username, u.display_name, u.avatar_url
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.` + column + ` = ?`
	args := []interface{}{targetID}

	if before != nil {
		query += `
		  AND (m.created_at < ? OR (m.created_at = ? AND m.id < ?))`
		args = append(args, before.CreatedAt, before.CreatedAt, before.ID)
	}

	query += `
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.MessageWithSender
	for rows.Next() {
		var msg store.MessageWithSender
		var roomID, chatID sql.NullInt64
		if err := rows.Scan(
			&msg.ID,
			&roomID,
			&chatID,
			&msg.SenderID,
			&msg.Content,
			&msg.CreatedAt,
			&msg.SenderUsername,
			&msg.SenderDisplayName,
			&msg.SenderAvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if roomID.Valid {
			msg.RoomID = &roomID.Int64
		}
		if chatID.Valid {
			msg.ChatID = &chatID.Int64
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, nil
}
