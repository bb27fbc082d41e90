package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"pandachat/internal/ids"
)

var testDBSeq atomic.Int64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gen, err := ids.NewGenerator(1)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	st, err := Open(context.Background(), "sqlite", dsn, true, "", gen)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testConfigInput(name string) LLMConfigInput {
	return LLMConfigInput{
		Name:      name,
		Provider:  "openai",
		BaseURL:   "https://api.openai.com/v1",
		ModelID:   "gpt-x",
		APIKeyEnc: "enc-token",
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, "alice", "hash1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := st.CreateUser(ctx, "alice", "hash2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateConfigDefaultInvariant(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	a, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("a"), true)
	if err != nil {
		t.Fatalf("create config a: %v", err)
	}
	b, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("b"), true)
	if err != nil {
		t.Fatalf("create config b: %v", err)
	}

	list, err := st.ListLLMConfigs(ctx, user.ID)
	if err != nil {
		t.Fatalf("list configs: %v", err)
	}
	defaults := 0
	for _, c := range list {
		if c.IsDefault {
			defaults++
			if c.ID != b.ID {
				t.Fatalf("expected config b to be default, got %d", c.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}

	got, err := st.GetDefaultLLMConfig(ctx, user.ID)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if got.ID != b.ID {
		t.Fatalf("expected default %d, got %d", b.ID, got.ID)
	}
	_ = a
}

func TestSetDefaultSwitches(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	a, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("a"), true)
	if err != nil {
		t.Fatalf("create config a: %v", err)
	}
	b, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("b"), false)
	if err != nil {
		t.Fatalf("create config b: %v", err)
	}

	if err := st.SetDefaultLLMConfig(ctx, user.ID, b.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}

	gotA, err := st.GetLLMConfig(ctx, user.ID, a.ID)
	if err != nil {
		t.Fatalf("get config a: %v", err)
	}
	if gotA.IsDefault {
		t.Fatalf("expected config a to lose default")
	}
	gotB, err := st.GetLLMConfig(ctx, user.ID, b.ID)
	if err != nil {
		t.Fatalf("get config b: %v", err)
	}
	if !gotB.IsDefault {
		t.Fatalf("expected config b to be default")
	}

	if err := st.SetDefaultLLMConfig(ctx, user.ID, 424242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestDuplicateConfigName(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("x"), false); err != nil {
		t.Fatalf("create config: %v", err)
	}
	if _, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("x"), false); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Same name on another account is fine.
	other, err := st.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create other user: %v", err)
	}
	if _, err := st.CreateLLMConfig(ctx, other.ID, testConfigInput("x"), false); err != nil {
		t.Fatalf("create config for other user: %v", err)
	}
}

func TestUpdateConfigOwnership(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	cfg, err := st.CreateLLMConfig(ctx, alice.ID, testConfigInput("a"), false)
	if err != nil {
		t.Fatalf("create config: %v", err)
	}

	name := "renamed"
	if err := st.UpdateLLMConfig(ctx, bob.ID, cfg.ID, LLMConfigUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong owner, got %v", err)
	}
	if err := st.UpdateLLMConfig(ctx, alice.ID, cfg.ID, LLMConfigUpdate{Name: &name}); err != nil {
		t.Fatalf("update config: %v", err)
	}
	got, err := st.GetLLMConfig(ctx, alice.ID, cfg.ID)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if got.Name != "renamed" {
		t.Fatalf("expected renamed, got %q", got.Name)
	}
	if got.APIKeyEnc != cfg.APIKeyEnc {
		t.Fatalf("api key must be untouched by partial update")
	}
}

func TestDeleteConfigUnbindsSessions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	cfg, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("a"), true)
	if err != nil {
		t.Fatalf("create config: %v", err)
	}

	s1, err := st.CreateSession(ctx, user.ID, nil, &cfg.ID)
	if err != nil {
		t.Fatalf("create session 1: %v", err)
	}
	s2, err := st.CreateSession(ctx, user.ID, nil, &cfg.ID)
	if err != nil {
		t.Fatalf("create session 2: %v", err)
	}

	if err := st.DeleteLLMConfig(ctx, user.ID, cfg.ID); err != nil {
		t.Fatalf("delete config: %v", err)
	}

	for _, id := range []int64{s1.ID, s2.ID} {
		sess, err := st.GetSession(ctx, user.ID, id)
		if err != nil {
			t.Fatalf("get session %d: %v", id, err)
		}
		if sess.LLMConfigID != nil {
			t.Fatalf("expected session %d unbound, got %v", id, *sess.LLMConfigID)
		}
	}
	if _, err := st.GetLLMConfig(ctx, user.ID, cfg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected config gone, got %v", err)
	}
}

func TestDeleteSessionsCascadesMessages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	mine, err := st.CreateSession(ctx, alice.ID, nil, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	theirs, err := st.CreateSession(ctx, bob.ID, nil, nil)
	if err != nil {
		t.Fatalf("create other session: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := st.CreateMessage(ctx, mine.ID, "user", `[{"type":"text","text":"hi"}]`); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	// Alice asks to delete both her own and bob's session; only hers goes.
	if err := st.DeleteSessions(ctx, alice.ID, []int64{mine.ID, theirs.ID}); err != nil {
		t.Fatalf("delete sessions: %v", err)
	}

	if _, err := st.GetSession(ctx, alice.ID, mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
	if _, err := st.ListMessages(ctx, alice.ID, mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected messages gone with session, got %v", err)
	}
	if _, err := st.GetSession(ctx, bob.ID, theirs.ID); err != nil {
		t.Fatalf("bob's session must survive: %v", err)
	}
}

func TestListConfigsDefaultFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	user, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("first"), false); err != nil {
		t.Fatalf("create first: %v", err)
	}
	def, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("second"), true)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := st.CreateLLMConfig(ctx, user.ID, testConfigInput("third"), false); err != nil {
		t.Fatalf("create third: %v", err)
	}

	list, err := st.ListLLMConfigs(ctx, user.ID)
	if err != nil {
		t.Fatalf("list configs: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 configs, got %d", len(list))
	}
	if list[0].ID != def.ID {
		t.Fatalf("expected default first, got %q", list[0].Name)
	}
}

func TestCrossAccountSessionReadsCollapseToNotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	sess, err := st.CreateSession(ctx, alice.ID, nil, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := st.GetSession(ctx, bob.ID, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign session, got %v", err)
	}
	if _, err := st.ListMessages(ctx, bob.ID, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign messages, got %v", err)
	}
}
