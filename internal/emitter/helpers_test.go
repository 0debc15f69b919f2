package emitter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInteraction struct {
	customID  string
	messageID string
	userID    string
	replyErr  error

	mu      sync.Mutex
	replies []string
}

func newFakeInteraction(customID, messageID, userID string) *fakeInteraction {
	return &fakeInteraction{customID: customID, messageID: messageID, userID: userID}
}

func (f *fakeInteraction) CustomID() string  { return f.customID }
func (f *fakeInteraction) MessageID() string { return f.messageID }
func (f *fakeInteraction) UserID() string    { return f.userID }

func (f *fakeInteraction) Reply(_ context.Context, content string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, content)
	return f.replyErr
}

func (f *fakeInteraction) Replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

type testModule struct {
	name string
	reg  Registration
}

func (m testModule) Name() string           { return m.name }
func (m testModule) Register() Registration { return m.reg }

func listenersModule(name string, listeners map[string][]*Listener) testModule {
	return testModule{name: name, reg: Registration{Listeners: listeners}}
}

func newTestEmitter(t *testing.T, c Collaborators, opts ...Option) *Emitter {
	t.Helper()
	e := New(zap.NewNop(), opts...)
	require.NoError(t, e.Initialize(context.Background(), c))
	t.Cleanup(func() {
		_ = e.Close(context.Background())
	})
	return e
}

func replyWith(content string) HandlerFunc {
	return func(ctx context.Context, p *Params) error {
		return p.Reply(ctx, content, true)
	}
}

func interactionDispatch(i *fakeInteraction, origin Origin) Dispatch {
	origin.UserID = i.userID
	origin.MessageID = i.messageID
	return Dispatch{Interaction: i, Params: Params{Origin: origin}}
}
