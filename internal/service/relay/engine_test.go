package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/markdown"
	"github.com/ashwinyue/next-chat/internal/testutil"
)

var errNotFound = errors.New("not found")

// mockStore 内存 Store
type mockStore struct {
	mu        sync.Mutex
	chat      *model.Chat
	workflow  *model.Workflow
	saved     []*model.Message
	titles    []string
	saveErr   error
	titleErr  error
	saveCtxOK bool
}

func newMockStore(prior ...string) *mockStore {
	chat := &model.Chat{ID: "chat-1", UserID: "user-1", Title: "新規作成"}
	for i, content := range prior {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		chat.Messages = append(chat.Messages, model.Message{
			ID: "m" + string(rune('0'+i)), ChatID: chat.ID, Role: role, Content: content, WorkflowID: "wf-1",
		})
	}
	return &mockStore{
		chat:     chat,
		workflow: &model.Workflow{ID: "wf-1", Title: "GPT", Model: "gpt-test", APIKey: "sk", SystemPrompt: "You are terse."},
	}
}

func (m *mockStore) GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	if m.chat.ID != chatID || m.chat.UserID != userID {
		return nil, errNotFound
	}
	return m.chat, nil
}

func (m *mockStore) WorkflowForChat(ctx context.Context, chatID string) (*model.Workflow, error) {
	if len(m.chat.Messages) == 0 {
		return nil, errNotFound
	}
	return m.workflow, nil
}

func (m *mockStore) AppendMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCtxOK = ctx.Err() == nil
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, msg)
	return nil
}

func (m *mockStore) UpdateTitle(ctx context.Context, chatID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.titleErr != nil {
		return m.titleErr
	}
	m.titles = append(m.titles, title)
	m.chat.Title = title
	return nil
}

// mockCompleter 按预设片段输出
type mockCompleter struct {
	fragments []string
	streamErr error // StreamComplete 直接返回的错误
	tailErr   error // 片段之后的流错误

	title      string
	titleErr   error
	titleCalls int
	titleInput []*schema.Message
	maxTokens  int

	upstreamCancelled chan struct{}
}

func (m *mockCompleter) StreamComplete(ctx context.Context, ep llm.Endpoint, history []*schema.Message) (<-chan llm.Chunk, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		for _, f := range m.fragments {
			select {
			case out <- llm.Chunk{Content: f}:
			case <-ctx.Done():
				if m.upstreamCancelled != nil {
					close(m.upstreamCancelled)
				}
				return
			}
		}
		if m.tailErr != nil {
			select {
			case out <- llm.Chunk{Err: m.tailErr}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (m *mockCompleter) Complete(ctx context.Context, ep llm.Endpoint, history []*schema.Message, maxTokens int) (string, error) {
	m.titleCalls++
	m.titleInput = history
	m.maxTokens = maxTokens
	return m.title, m.titleErr
}

func prepare(t *testing.T, store *mockStore, completer *mockCompleter) *Turn {
	t.Helper()
	e := NewEngine(store, completer, Options{TitleMaxTokens: 10, PersistTimeout: time.Second}, nil)
	turn, err := e.Prepare(context.Background(), "user-1", "chat-1")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return turn
}

func equalNames(got, want []string) bool {
	return strings.Join(got, ",") == strings.Join(want, ",")
}

func TestTurn_CompletedFirstExchangeGeneratesTitle(t *testing.T) {
	store := newMockStore("Write hello world in Go")
	completer := &mockCompleter{
		fragments: []string{"```go\n", "fmt.Println(1)", "\n```"},
		title:     "Go hello world",
	}
	em := &testutil.RecordingEmitter{}

	turn := prepare(t, store, completer)
	if err := turn.Run(context.Background(), em); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !em.Opened {
		t.Error("emitter was not opened")
	}
	want := []string{EventAppend, EventAppend, EventAppend, EventTitle, EventID, EventEnd}
	if !equalNames(em.Names(), want) {
		t.Fatalf("events = %v, want %v", em.Names(), want)
	}

	snapshots := []string{"```go\n\n```", "```go\nfmt.Println(1)\n```", "```go\nfmt.Println(1)\n```"}
	for i, s := range snapshots {
		if got := em.Events[i].Data.(AppendPayload).Content; got != s {
			t.Errorf("append %d = %q, want %q", i, got, s)
		}
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d messages, want 1", len(store.saved))
	}
	saved := store.saved[0]
	if saved.Content != "```go\nfmt.Println(1)\n```" {
		t.Errorf("saved content = %q", saved.Content)
	}
	if saved.Role != model.RoleAssistant || saved.WorkflowID != "wf-1" || saved.ChatID != "chat-1" {
		t.Errorf("saved message = %+v", saved)
	}

	if em.Events[3].Data != "Go hello world" {
		t.Errorf("title event = %v", em.Events[3].Data)
	}
	if em.Events[4].Data != saved.ID {
		t.Errorf("id event = %v, want %v", em.Events[4].Data, saved.ID)
	}
	if em.Events[5].Data != "" {
		t.Errorf("end event data = %v, want empty", em.Events[5].Data)
	}
	if store.chat.Title != "Go hello world" {
		t.Errorf("stored title = %q", store.chat.Title)
	}

	if completer.maxTokens != 10 {
		t.Errorf("title maxTokens = %d, want 10", completer.maxTokens)
	}
	if len(completer.titleInput) != 2 || completer.titleInput[0].Role != schema.System {
		t.Fatalf("title input = %v", completer.titleInput)
	}
	wantPrompt := "Summarize the following conversation in 5 words or less:\n\nWrite hello world in Go\n\n```go\nfmt.Println(1)\n```"
	if completer.titleInput[1].Content != wantPrompt {
		t.Errorf("title prompt = %q", completer.titleInput[1].Content)
	}

	if turn.State() != StateCompleted || turn.MessageID() != saved.ID || turn.Title() != "Go hello world" {
		t.Errorf("turn = state %v id %q title %q", turn.State(), turn.MessageID(), turn.Title())
	}
}

func TestTurn_NoTitleAfterFirstExchange(t *testing.T) {
	store := newMockStore("hi", "hello", "how are you")
	completer := &mockCompleter{fragments: []string{"fine"}, title: "unused"}
	em := &testutil.RecordingEmitter{}

	if err := prepare(t, store, completer).Run(context.Background(), em); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !equalNames(em.Names(), []string{EventAppend, EventID, EventEnd}) {
		t.Errorf("events = %v", em.Names())
	}
	if completer.titleCalls != 0 {
		t.Errorf("title generated %d times, want 0", completer.titleCalls)
	}
	if store.chat.Title != "新規作成" {
		t.Errorf("title changed to %q", store.chat.Title)
	}
}

func TestTurn_TitleFailureIsSwallowed(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		titleErr error
		storeErr error
	}{
		{name: "completion error", titleErr: errors.New("rate limited")},
		{name: "blank title", title: "  \n"},
		{name: "persist error", title: "Nice title", storeErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore("hi")
			store.titleErr = tt.storeErr
			completer := &mockCompleter{fragments: []string{"hello"}, title: tt.title, titleErr: tt.titleErr}
			em := &testutil.RecordingEmitter{}

			turn := prepare(t, store, completer)
			if err := turn.Run(context.Background(), em); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if !equalNames(em.Names(), []string{EventAppend, EventID, EventEnd}) {
				t.Errorf("events = %v", em.Names())
			}
			if store.chat.Title != "新規作成" {
				t.Errorf("title = %q, want unchanged", store.chat.Title)
			}
			if len(store.saved) != 1 || store.saved[0].Content != "hello" {
				t.Errorf("saved = %v", store.saved)
			}
			if turn.State() != StateCompleted {
				t.Errorf("state = %v", turn.State())
			}
		})
	}
}

func TestTurn_ClientDisconnectPersistsPartial(t *testing.T) {
	store := newMockStore("hi")
	completer := &mockCompleter{
		fragments:         []string{"see `fo", "o", "never sent", "nor this"},
		title:             "unused",
		upstreamCancelled: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	em := &testutil.RecordingEmitter{}
	em.OnEmit = func(ev testutil.Event) {
		if len(em.Names()) == 2 {
			cancel()
		}
	}

	turn := prepare(t, store, completer)
	err := turn.Run(ctx, em)
	if !errors.Is(err, ErrClientGone) {
		t.Fatalf("Run() error = %v, want ErrClientGone", err)
	}

	if em.Count(EventID) != 0 || em.Count(EventEnd) != 0 || em.Count(EventTitle) != 0 {
		t.Errorf("unexpected terminal events: %v", em.Names())
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d messages, want 1", len(store.saved))
	}
	want := markdown.Repair("see `foo") + "..."
	if store.saved[0].Content != want {
		t.Errorf("saved content = %q, want %q", store.saved[0].Content, want)
	}
	if !store.saveCtxOK {
		t.Error("persistence ran on a cancelled context")
	}
	if completer.titleCalls != 0 {
		t.Error("title generated on aborted turn")
	}
	if turn.State() != StateAborted {
		t.Errorf("state = %v, want aborted", turn.State())
	}

	select {
	case <-completer.upstreamCancelled:
	case <-time.After(time.Second):
		t.Error("upstream was not cancelled")
	}
}

func TestTurn_EmitFailureAborts(t *testing.T) {
	store := newMockStore("hi")
	completer := &mockCompleter{fragments: []string{"```py\nx = 1", "\ny = 2", "\n```"}}
	em := &testutil.RecordingEmitter{FailAfter: 1}

	err := prepare(t, store, completer).Run(context.Background(), em)
	if !errors.Is(err, ErrClientGone) || !errors.Is(err, testutil.ErrEmitFailed) {
		t.Fatalf("Run() error = %v, want ErrClientGone wrapping ErrEmitFailed", err)
	}

	want := "```py\nx = 1\ny = 2\n```..."
	if len(store.saved) != 1 || store.saved[0].Content != want {
		t.Errorf("saved = %+v, want content %q", store.saved, want)
	}
}

func TestTurn_UpstreamFailureMidStream(t *testing.T) {
	store := newMockStore("hi")
	upstreamErr := errors.Join(llm.ErrUpstream, errors.New("connection reset"))
	completer := &mockCompleter{fragments: []string{"partial `answer"}, tailErr: upstreamErr}
	em := &testutil.RecordingEmitter{}

	turn := prepare(t, store, completer)
	err := turn.Run(context.Background(), em)
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("Run() error = %v, want ErrUpstream", err)
	}

	if !equalNames(em.Names(), []string{EventAppend}) {
		t.Errorf("events = %v", em.Names())
	}
	if len(store.saved) != 1 || store.saved[0].Content != "partial `answer`..." {
		t.Errorf("saved = %+v", store.saved)
	}
	if turn.State() != StateAborted {
		t.Errorf("state = %v", turn.State())
	}
}

func TestTurn_StreamStartFailure(t *testing.T) {
	store := newMockStore("hi")
	completer := &mockCompleter{streamErr: llm.ErrUpstream}
	em := &testutil.RecordingEmitter{}

	err := prepare(t, store, completer).Run(context.Background(), em)
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("Run() error = %v", err)
	}
	if !em.Opened {
		t.Error("headers should be flushed before the model call")
	}
	if len(em.Events) != 0 {
		t.Errorf("events = %v, want none", em.Names())
	}
	if len(store.saved) != 1 || store.saved[0].Content != "..." {
		t.Errorf("saved = %+v", store.saved)
	}
}

func TestTurn_SaveFailureSkipsTerminalEvents(t *testing.T) {
	store := newMockStore("hi")
	store.saveErr = errors.New("db down")
	completer := &mockCompleter{fragments: []string{"ok"}, title: "t"}
	em := &testutil.RecordingEmitter{}

	turn := prepare(t, store, completer)
	if err := turn.Run(context.Background(), em); err == nil {
		t.Fatal("Run() error = nil, want save error")
	}
	if em.Count(EventEnd) != 0 || em.Count(EventID) != 0 {
		t.Errorf("events = %v", em.Names())
	}
	if completer.titleCalls != 0 {
		t.Error("title generated after failed save")
	}
}

func TestEngine_PrepareNotFound(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		chatID string
		prior  []string
	}{
		{"unknown chat", "user-1", "chat-x", []string{"hi"}},
		{"foreign chat", "user-2", "chat-1", []string{"hi"}},
		{"no messages", "user-1", "chat-1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(newMockStore(tt.prior...), &mockCompleter{}, Options{}, nil)
			if _, err := e.Prepare(context.Background(), tt.userID, tt.chatID); !errors.Is(err, errNotFound) {
				t.Errorf("Prepare() error = %v, want not found", err)
			}
		})
	}
}

func TestTurn_RunOnce(t *testing.T) {
	turn := prepare(t, newMockStore("hi", "a", "b"), &mockCompleter{fragments: []string{"x"}})
	if err := turn.Run(context.Background(), &testutil.RecordingEmitter{}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := turn.Run(context.Background(), &testutil.RecordingEmitter{}); !errors.Is(err, ErrTurnUsed) {
		t.Errorf("second Run() error = %v, want ErrTurnUsed", err)
	}
}

func TestState_String(t *testing.T) {
	if StateStreaming.String() != "streaming" || !StateAborted.Terminal() || StateFinalizing.Terminal() {
		t.Error("unexpected state helpers")
	}
}
