package logging

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	eventbus "github.com/hanpama/mongograph/internal/eventbus"
	events "github.com/hanpama/mongograph/internal/events"
	reqid "github.com/hanpama/mongograph/internal/reqid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func attachObserved(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	core, logs := observer.New(level)
	t.Cleanup(Attach(zap.New(core)))
	return logs
}

func TestHTTPFinish(t *testing.T) {
	logs := attachObserved(t, zapcore.InfoLevel)
	ctx, rid := reqid.NewContext(context.Background())

	eventbus.Publish(ctx, events.HTTPFinish{
		Request:  httptest.NewRequest("POST", "/graphql", nil),
		Status:   200,
		Duration: time.Millisecond,
	})

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, rid, fields["requestId"])
	require.Equal(t, "/graphql", fields["path"])
	require.Equal(t, int64(200), fields["status"])
}

func TestCollectionReadLevels(t *testing.T) {
	logs := attachObserved(t, zapcore.DebugLevel)
	ctx := context.Background()

	eventbus.Publish(ctx, events.CollectionReadFinish{Collection: "a", Mode: events.ReadFind, Documents: 3})
	eventbus.Publish(ctx, events.CollectionReadFinish{Collection: "b", Mode: events.ReadFind, Err: errors.New("boom")})

	ok := logs.FilterMessage("collection read").All()
	require.Len(t, ok, 1)
	require.Equal(t, zapcore.DebugLevel, ok[0].Level)
	require.Equal(t, "a", ok[0].ContextMap()["collection"])
	require.NotContains(t, ok[0].ContextMap(), "requestId")

	failed := logs.FilterMessage("collection read failed").All()
	require.Len(t, failed, 1)
	require.Equal(t, zapcore.WarnLevel, failed[0].Level)
	require.Equal(t, "boom", failed[0].ContextMap()["error"])
}

func TestTranslateFailure(t *testing.T) {
	logs := attachObserved(t, zapcore.WarnLevel)

	eventbus.Publish(context.Background(), events.TranslateFinish{Collections: []string{"a"}})
	eventbus.Publish(context.Background(), events.TranslateFinish{Err: errors.New("bad argument")})

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "translate failed", logs.All()[0].Message)
}

func TestDetach(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	core, logs := observer.New(zapcore.DebugLevel)
	Attach(zap.New(core))()

	eventbus.Publish(context.Background(), events.CollectionReadFinish{Collection: "a"})
	require.Zero(t, logs.Len())
}
