package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/glance/internal/bridge"
	"github.com/starford/glance/internal/host"
	"github.com/starford/glance/internal/models"
	"github.com/starford/glance/internal/sse"
	"github.com/starford/glance/internal/testutil"
)

// testEnv sets up a temp store, wired components and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvFull(t, authToken, bridge.Deps{}, nil)
}

func testEnvFull(t *testing.T, authToken string, deps bridge.Deps, sseHandler http.Handler) http.Handler {
	t.Helper()
	deps.Store = testutil.TestStore(t)
	c := bridge.Wire(deps)
	t.Cleanup(c.Close)
	return NewRouter(bridge.NewRuntime(c), bridge.NewCallbacks(c), authToken != "", authToken, sseHandler)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doAuth(t *testing.T, router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestSetPreviewAndRender(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/bridge/previews/notes/3",
		NotePreview{ContentID: "n1", Title: "Groceries", Headline: "milk, eggs"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/host/surfaces/note/3/render", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d Descriptor
	decode(t, w, &d)
	assert.False(t, d.NoOp)
	assert.Equal(t, "Groceries", d.Title)
	assert.Equal(t, "milk, eggs", d.Headline)
	require.NotNil(t, d.Click)
	assert.Equal(t, "glance://open_note?id=n1", d.Click.URI)
}

func TestRender_UnknownSurfaceIsNoOp(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/host/surfaces/reminders/9/render", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"noop":true`)
}

func TestRender_BadParams(t *testing.T) {
	router := testEnv(t, "")

	for _, path := range []string{"/host/surfaces/clock/1/render", "/host/surfaces/note/abc/render", "/host/surfaces/note/0/render"} {
		w := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestUpdateByContentID(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPut, "/bridge/previews/notes/3", NotePreview{ContentID: "n1", Title: "Groceries"})

	w := do(t, router, http.MethodPut, "/bridge/previews/content/n1", NotePreview{ContentID: "n1", Title: "Groceries v2", Headline: "milk"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp AffectedResponse
	decode(t, w, &resp)
	assert.Equal(t, []int{3}, resp.Affected)

	w = do(t, router, http.MethodGet, "/host/surfaces/note/3/render", nil)
	assert.Contains(t, w.Body.String(), "Groceries v2")
}

func TestUpdateByContentID_EncodedSlash(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPut, "/bridge/previews/notes/1", NotePreview{ContentID: "a/b"})

	w := do(t, router, http.MethodGet, "/bridge/previews/content/a%2Fb", nil)
	var resp HasPreviewResponse
	decode(t, w, &resp)
	assert.True(t, resp.HasPreview)
	assert.Equal(t, "a/b", resp.ContentID)
}

func TestListAndClearPreviews(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPut, "/bridge/previews/notes/1", NotePreview{ContentID: "a"})
	do(t, router, http.MethodPut, "/bridge/previews/notes/2", NotePreview{ContentID: "b"})

	w := do(t, router, http.MethodPost, "/bridge/previews/notes/clear", SurfaceIDsRequest{SurfaceIDs: []int{1}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/bridge/previews/content", nil)
	var resp ContentIDsResponse
	decode(t, w, &resp)
	assert.Equal(t, []string{"b"}, resp.ContentIDs)
}

func TestInvalidPreview(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/bridge/previews/notes/1", NotePreview{Title: "no id"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing content id")

	req := httptest.NewRequest(http.MethodPut, "/bridge/previews/notes/1", strings.NewReader("{"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "bad json")
}

func TestReminders(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodGet, "/host/surfaces/reminders/4/render", nil)

	w := do(t, router, http.MethodPut, "/bridge/previews/reminders", ReminderListRequest{Entries: []ReminderEntry{}})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/host/surfaces/reminders/4/render", nil)
	var d Descriptor
	decode(t, w, &d)
	assert.False(t, d.NoOp)
	assert.Zero(t, d.ItemCount)
	assert.True(t, d.EmptyState)
	require.NotNil(t, d.Add)
	assert.Equal(t, models.NewReminder, d.Add.Tag)
}

func TestLaunchAndPull(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/bridge/deeplink/pending", nil)
	require.Equal(t, http.StatusNoContent, w.Code, "empty pull")

	launch := LaunchRequest{Instance: "i-1", URI: "glance://new_reminder"}
	do(t, router, http.MethodPost, "/host/launch", launch)
	w = do(t, router, http.MethodPost, "/host/launch", launch)
	var acc AcceptedResponse
	decode(t, w, &acc)
	assert.False(t, acc.Accepted, "repeated instance should not be accepted")

	w = do(t, router, http.MethodGet, "/bridge/deeplink/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msg models.DeepLinkMessage
	decode(t, w, &msg)
	assert.Equal(t, models.NewReminderMessage(), msg)

	w = do(t, router, http.MethodGet, "/bridge/deeplink/pending", nil)
	assert.Equal(t, http.StatusNoContent, w.Code, "second pull")
}

func TestLaunch_DistinctInstancesSamePayload(t *testing.T) {
	router := testEnv(t, "")

	for i := 0; i < 2; i++ {
		do(t, router, http.MethodPost, "/host/launch", LaunchRequest{URI: "glance://open_note?id=n1"})
		w := do(t, router, http.MethodGet, "/bridge/deeplink/pending", nil)
		require.Equal(t, http.StatusOK, w.Code, "pull %d", i)
	}
}

func TestStateFlag(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/bridge/state", StateRequest{Value: "background"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/bridge/state", nil)
	var st StateResponse
	decode(t, w, &st)
	assert.Equal(t, StateResponse{Set: true, Value: "background"}, st)

	do(t, router, http.MethodPost, "/host/lifecycle/task-removed", nil)
	w = do(t, router, http.MethodGet, "/bridge/state", nil)
	st = StateResponse{}
	decode(t, w, &st)
	assert.False(t, st.Set, "state after task removal")
}

func TestConfiguringSurface(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/bridge/surface/configuring", nil)
	assert.Contains(t, w.Body.String(), `"surface_id":0`)

	w = do(t, router, http.MethodPost, "/host/surfaces/12/configure", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/bridge/surface/configuring", nil)
	assert.Contains(t, w.Body.String(), `"surface_id":12`)

	do(t, router, http.MethodPost, "/host/surfaces/teardown", SurfaceIDsRequest{SurfaceIDs: []int{12}})
	w = do(t, router, http.MethodGet, "/bridge/surface/configuring", nil)
	assert.Contains(t, w.Body.String(), `"surface_id":0`)
}

func TestPinSurface_Rejections(t *testing.T) {
	router := testEnvFull(t, "", bridge.Deps{Capabilities: host.Capabilities{PlatformVersion: 24}}, nil)

	w := do(t, router, http.MethodPost, "/bridge/surfaces/pin", PinRequest{Kind: models.SurfaceNote})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, "pin on old platform")
	var e errResponse
	decode(t, w, &e)
	assert.Equal(t, "unsupported_platform", e.Code)

	router = testEnvFull(t, "", bridge.Deps{Capabilities: host.Capabilities{PlatformVersion: 30, PinSupported: true}}, nil)
	w = do(t, router, http.MethodPost, "/bridge/surfaces/pin", PinRequest{Kind: models.SurfaceNote})
	assert.Equal(t, http.StatusAccepted, w.Code)
}

type blockingRuntime struct{ release chan struct{} }

func (b blockingRuntime) RunTask(ctx context.Context, _, _ string) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestBootSync(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/bridge/boot-sync", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "disabled boot sync")

	router = testEnvFull(t, "", bridge.Deps{
		Runtime:     blockingRuntime{release: make(chan struct{})},
		BootTimeout: 30 * time.Millisecond,
	}, nil)
	w = do(t, router, http.MethodPost, "/bridge/boot-sync", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code, "timed out boot sync")

	release := make(chan struct{})
	close(release)
	router = testEnvFull(t, "", bridge.Deps{Runtime: blockingRuntime{release: release}}, nil)
	w = do(t, router, http.MethodPost, "/bridge/boot-sync", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp BootSyncResponse
	decode(t, w, &resp)
	assert.Len(t, resp.RunID, 26)
}

func TestLifecycleCallbacks(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/host/lifecycle/foreground", ForegroundRequest{Foreground: true})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodPost, "/host/lifecycle/boot-completed", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"accepted":false`, "boot without runtime should not start")
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := doAuth(t, router, http.MethodGet, "/bridge/previews/content", "secret123")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/bridge/previews/content", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := doAuth(t, router, http.MethodGet, "/host/surfaces/note/1/render", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/bridge/previews/content?access_token=secret123", nil)
	assert.Equal(t, http.StatusOK, w.Code, "query token")

	w = do(t, router, http.MethodGet, "/bridge/previews/content?access_token=nope", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "wrong query token")
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
}

func TestAuthMiddleware_HeaderWinsOverQuery(t *testing.T) {
	router := testEnv(t, "secret123")

	w := doAuth(t, router, http.MethodGet, "/bridge/previews/content?access_token=secret123", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "bad header with good query")
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/bridge/previews/content", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, token string) http.Handler {
	t.Helper()
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	return testEnvFull(t, token, bridge.Deps{Events: broker}, broker)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, "secret")

	w := do(t, router, http.MethodGet, "/host/events", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/host/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusUnauthorized, w.Code)
}
