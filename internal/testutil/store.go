package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/model"
)

// MemoryStore 内存版对话与用户存储，行为与数据库仓库一致
type MemoryStore struct {
	mu       sync.Mutex
	chats    map[string]*model.Chat
	messages map[string][]model.Message
	users    map[string]*model.User
	tokens   map[string]*model.AuthToken
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[string]*model.Chat),
		messages: make(map[string][]model.Message),
		users:    make(map[string]*model.User),
		tokens:   make(map[string]*model.AuthToken),
	}
}

// CreateChat 新建对话
func (s *MemoryStore) CreateChat(ctx context.Context, chat *model.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createChatLocked(chat)
	return nil
}

func (s *MemoryStore) createChatLocked(chat *model.Chat) {
	now := time.Now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now
	stored := *chat
	stored.Messages = nil
	s.chats[chat.ID] = &stored
}

// CreateChatWithMessage 新建对话并写入首条消息
func (s *MemoryStore) CreateChatWithMessage(ctx context.Context, chat *model.Chat, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createChatLocked(chat)
	s.messages[chat.ID] = append(s.messages[chat.ID], *msg)
	return nil
}

// GetChatByID 获取对话及按时间排序的消息
func (s *MemoryStore) GetChatByID(ctx context.Context, id string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *chat
	out.Messages = s.sortedMessagesLocked(id)
	return &out, nil
}

func (s *MemoryStore) sortedMessagesLocked(chatID string) []model.Message {
	msgs := append([]model.Message(nil), s.messages[chatID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].DatePosted.Before(msgs[j].DatePosted) })
	return msgs
}

// ListChatsByUser 列出用户的对话，最近更新的在前
func (s *MemoryStore) ListChatsByUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Chat
	for _, c := range s.chats {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// UpdateTitle 更新标题
func (s *MemoryStore) UpdateTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	chat.Title = title
	chat.UpdatedAt = time.Now()
	return nil
}

// DeleteChat 删除对话及其消息
func (s *MemoryStore) DeleteChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, id)
	delete(s.messages, id)
	return nil
}

// CreateMessage 追加消息
func (s *MemoryStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[msg.ChatID]; !ok {
		return gorm.ErrRecordNotFound
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	return nil
}

// GetLatestMessage 最近一条消息
func (s *MemoryStore) GetLatestMessage(ctx context.Context, chatID string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.sortedMessagesLocked(chatID)
	if len(msgs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	latest := msgs[len(msgs)-1]
	return &latest, nil
}

// Messages 返回对话的全部消息，供断言使用
func (s *MemoryStore) Messages(chatID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedMessagesLocked(chatID)
}

// CreateUser 新建用户
func (s *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// GetUserByID 按 ID 获取用户
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername 按用户名获取用户
func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// UpdatePassword 更新密码哈希
func (s *MemoryStore) UpdatePassword(ctx context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	return nil
}

// CountUsers 用户总数
func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

// CreateToken 保存令牌
func (s *MemoryStore) CreateToken(ctx context.Context, token *model.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

// GetTokenByValue 获取未撤销且未过期的令牌
func (s *MemoryStore) GetTokenByValue(ctx context.Context, tokenValue string) (*model.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, t := range s.tokens {
		if t.Token == tokenValue && !t.IsRevoked && t.ExpiresAt.After(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// RevokeToken 撤销令牌
func (s *MemoryStore) RevokeToken(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.IsRevoked = true
	return nil
}

// DeleteExpiredTokens 删除过期或已撤销的令牌
func (s *MemoryStore) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now()
	for id, t := range s.tokens {
		if t.IsRevoked || !t.ExpiresAt.After(now) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

// MemoryWorkflows 内存版工作流存储
type MemoryWorkflows struct {
	mu    sync.Mutex
	items []*model.Workflow
}

// Create 新建工作流
func (s *MemoryWorkflows) Create(ctx context.Context, w *model.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.items = append(s.items, &cp)
	return nil
}

// GetByID 按 ID 获取
func (s *MemoryWorkflows) GetByID(ctx context.Context, id string) (*model.Workflow, error) {
	return s.find(func(w *model.Workflow) bool { return w.ID == id })
}

// GetByTitle 按标题获取
func (s *MemoryWorkflows) GetByTitle(ctx context.Context, title string) (*model.Workflow, error) {
	return s.find(func(w *model.Workflow) bool { return w.Title == title })
}

func (s *MemoryWorkflows) find(match func(*model.Workflow) bool) (*model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.items {
		if match(w) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// List 列出全部工作流
func (s *MemoryWorkflows) List(ctx context.Context) ([]*model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Workflow(nil), s.items...), nil
}

// MemoryTemplates 内存版模板存储
type MemoryTemplates struct {
	mu    sync.Mutex
	items []*model.Template
}

// Create 新建模板
func (s *MemoryTemplates) Create(ctx context.Context, t *model.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.items = append(s.items, &cp)
	return nil
}

// GetByTitle 按标题获取
func (s *MemoryTemplates) GetByTitle(ctx context.Context, title string) (*model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.Title == title {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// List 列出全部模板
func (s *MemoryTemplates) List(ctx context.Context) ([]*model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Template(nil), s.items...), nil
}
