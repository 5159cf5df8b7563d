package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/akbargherbal/gemini-fusion/internal/ai"
	"github.com/akbargherbal/gemini-fusion/internal/model"
	"github.com/akbargherbal/gemini-fusion/internal/pkg/cache"
)

// fakeSessionCache mimics the redis wrapper: JSON values, atomic
// fetch-and-delete.
type fakeSessionCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{entries: make(map[string][]byte)}
}

func (f *fakeSessionCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = data
	return nil
}

func (f *fakeSessionCache) GetDel(_ context.Context, key string, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	delete(f.entries, key)
	return json.Unmarshal(data, dest)
}

func TestMemorySessionStore(t *testing.T) {
	Convey("MemorySessionStore parks single-use sessions with a TTL", t, func() {
		ctx := context.Background()

		Convey("a parked session can be taken exactly once", func() {
			store := NewMemorySessionStore(time.Minute)
			sess := &Session{ConversationID: "c1", APIKey: "k", Message: "hi", CreatedAt: time.Now()}

			So(store.Put(ctx, "s1", sess), ShouldBeNil)

			got, err := store.Take(ctx, "s1")
			So(err, ShouldBeNil)
			So(got.ConversationID, ShouldEqual, "c1")

			_, err = store.Take(ctx, "s1")
			So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
		})

		Convey("an unknown id is not found", func() {
			store := NewMemorySessionStore(time.Minute)
			_, err := store.Take(ctx, "nope")
			So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
		})

		Convey("an expired session is not found", func() {
			store := NewMemorySessionStore(10 * time.Millisecond)
			sess := &Session{ConversationID: "c1", CreatedAt: time.Now().Add(-time.Second)}
			So(store.Put(ctx, "s1", sess), ShouldBeNil)

			_, err := store.Take(ctx, "s1")
			So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
		})

		Convey("concurrent takes of one session have exactly one winner", func() {
			store := NewMemorySessionStore(time.Minute)
			sess := &Session{ConversationID: "c1", CreatedAt: time.Now()}
			So(store.Put(ctx, "s1", sess), ShouldBeNil)

			So(countTakeWinners(ctx, store, "s1", 16), ShouldEqual, 1)
		})
	})
}

func TestRedisSessionStore(t *testing.T) {
	Convey("RedisSessionStore parks single-use sessions", t, func() {
		ctx := context.Background()

		Convey("a parked session round-trips and is gone after one take", func() {
			store := &RedisSessionStore{cache: newFakeSessionCache(), ttl: time.Minute}
			sess := &Session{ConversationID: "c1", APIKey: "k", Message: "hi", CreatedAt: time.Now()}

			So(store.Put(ctx, "s1", sess), ShouldBeNil)

			got, err := store.Take(ctx, "s1")
			So(err, ShouldBeNil)
			So(got.ConversationID, ShouldEqual, "c1")
			So(got.APIKey, ShouldEqual, "k")

			_, err = store.Take(ctx, "s1")
			So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
		})

		Convey("concurrent takes of one session have exactly one winner", func() {
			store := &RedisSessionStore{cache: newFakeSessionCache(), ttl: time.Minute}
			So(store.Put(ctx, "s1", &Session{ConversationID: "c1"}), ShouldBeNil)

			So(countTakeWinners(ctx, store, "s1", 16), ShouldEqual, 1)
		})
	})
}

// countTakeWinners races concurrent takes of one id and reports how
// many got the session.
func countTakeWinners(ctx context.Context, store SessionStore, id string, takers int) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < takers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, id); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return winners
}

func TestInitiateAndTakeSession(t *testing.T) {
	Convey("Initiate parks a prepared turn for a later stream call", t, func() {
		ctx := context.Background()
		store := newMemStore()
		sessions := NewMemorySessionStore(time.Minute)
		svc := NewChatService(&fakeOpener{}, store, sessions)

		resp, err := svc.Initiate(ctx, &model.ChatRequest{
			Message: "Hello", APIKey: "key-1", Model: "gemini-1.5-pro",
		})
		So(err, ShouldBeNil)
		So(resp.SessionID, ShouldNotBeEmpty)
		So(resp.ConversationID, ShouldNotBeEmpty)

		Convey("the user message is already persisted", func() {
			msgs, err := store.GetMessages(ctx, resp.ConversationID)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 1)
			So(msgs[0].Role, ShouldEqual, model.RoleUser)
		})

		Convey("taking the session rebuilds the turn with its credential", func() {
			turn, err := svc.TakeSession(ctx, resp.SessionID)
			So(err, ShouldBeNil)
			So(turn.ConversationID, ShouldEqual, resp.ConversationID)
			So(turn.Prompt, ShouldEqual, "Hello")
			So(turn.Credential, ShouldResemble, ai.Credential{APIKey: "key-1", Model: "gemini-1.5-pro"})

			Convey("and the session is gone afterwards", func() {
				_, err := svc.TakeSession(ctx, resp.SessionID)
				So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}
