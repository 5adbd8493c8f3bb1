package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
	gate chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, m Message) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type memLog struct {
	mu   sync.Mutex
	recs []Delivery
}

func (l *memLog) Record(_ context.Context, d Delivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, d)
	return nil
}

func (l *memLog) ListByRecipient(_ context.Context, to string, _ int64) ([]Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Delivery
	for _, d := range l.recs {
		if d.To == to {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestMessages_Render(t *testing.T) {
	m := ModerationAlert("owner@x.com", `<b>Fair</b>`, 6)
	assert.Equal(t, KindModerationAlert, m.Kind)
	assert.Contains(t, m.Subject, "<b>Fair</b>")
	assert.Contains(t, m.HTML, "&lt;b&gt;Fair&lt;/b&gt;")
	assert.NotEmpty(t, m.ID)

	r := ResetLink("a@x.com", "http://localhost:3000/reset/abc", time.Hour)
	assert.Contains(t, r.HTML, `href="http://localhost:3000/reset/abc"`)
	assert.Equal(t, "Password Reset", r.Subject)

	assert.Equal(t, "Sign up succeeded!", SignupConfirmation("a@x.com").Subject)
	assert.Equal(t, "Password changed!", PasswordChanged("a@x.com").Subject)
}

func TestBuildMIME_StripsHeaderInjection(t *testing.T) {
	m := ModerationAlert("o@x.com", "Fair\r\nBcc: victim@x.com", 6)
	raw := string(buildMIME("events@app.com", m))
	headers := raw[:strings.Index(raw, "\r\n\r\n")]
	for _, line := range strings.Split(headers, "\r\n") {
		assert.False(t, strings.HasPrefix(line, "Bcc:"), "injected header: %q", line)
	}
}

func TestDispatcher_DeliversAndLogs(t *testing.T) {
	s := &fakeSender{}
	log := &memLog{}
	d := NewDispatcher(s, log, DispatcherConfig{QueueSize: 8, Workers: 2}, nil)

	d.Notify(SignupConfirmation("a@x.com"))
	d.Notify(PasswordChanged("a@x.com"))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 2, s.count())
	recs, _ := log.ListByRecipient(context.Background(), "a@x.com", 10)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, StatusSent, r.Status)
	}
}

func TestDispatcher_SendFailureIsRecordedNotReturned(t *testing.T) {
	s := &fakeSender{err: errors.New("smtp down")}
	log := &memLog{}
	d := NewDispatcher(s, log, DispatcherConfig{QueueSize: 1, Workers: 1}, nil)

	d.Notify(SignupConfirmation("a@x.com"))
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, log.recs, 1)
	assert.Equal(t, StatusFailed, log.recs[0].Status)
	assert.Equal(t, "smtp down", log.recs[0].Error)
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	s := &fakeSender{gate: make(chan struct{})}
	d := NewDispatcher(s, nil, DispatcherConfig{QueueSize: 1, Workers: 1}, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(SignupConfirmation("a@x.com"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(s.gate)
	require.NoError(t, d.Close(context.Background()))
	// One in flight plus one queued; the rest were dropped.
	assert.LessOrEqual(t, s.count(), 2)
}

func TestDispatcher_NotifyAfterCloseIsDropped(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, nil, DispatcherConfig{}, nil)
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	d.Notify(SignupConfirmation("a@x.com"))
	assert.Equal(t, 0, s.count())
}

func TestDispatcher_CloseHonorsContext(t *testing.T) {
	s := &fakeSender{gate: make(chan struct{})}
	d := NewDispatcher(s, nil, DispatcherConfig{Workers: 1}, nil)
	d.Notify(SignupConfirmation("a@x.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, d.Close(ctx))
	close(s.gate)
}

func TestMongoDeliveryLog(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		log := NewMongoDeliveryLog(mt.Coll)
		err := log.Record(context.Background(), Delivery{ID: "m-1", Kind: KindSignup, To: "a@x.com", Status: StatusSent})
		assert.NoError(t, err)
	})

	mt.Run("list by recipient", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "m-2"}, {Key: "kind", Value: "reset_link"}, {Key: "to", Value: "a@x.com"}, {Key: "status", Value: "failed"}},
			bson.D{{Key: "_id", Value: "m-1"}, {Key: "kind", Value: "signup"}, {Key: "to", Value: "a@x.com"}, {Key: "status", Value: "sent"}},
		))
		log := NewMongoDeliveryLog(mt.Coll)
		got, err := log.ListByRecipient(context.Background(), "a@x.com", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "m-2", got[0].ID)
		assert.Equal(t, KindResetLink, got[0].Kind)
	})

	mt.Run("insert error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))
		log := NewMongoDeliveryLog(mt.Coll)
		assert.Error(t, log.Record(context.Background(), Delivery{ID: "m-1"}))
	})
}
