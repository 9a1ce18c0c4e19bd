package handler

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/assessment-backend/internal/bank"
	"github.com/pathlight/assessment-backend/internal/engine"
	"github.com/pathlight/assessment-backend/internal/middleware"
	"github.com/pathlight/assessment-backend/internal/service"
	"github.com/pathlight/assessment-backend/internal/store"
	ws "github.com/pathlight/assessment-backend/internal/websocket"
)

const timedQuizJSON = `{
  "id": "timed-quiz",
  "title": "Timed Quiz",
  "scoring_mode": "PERCENT_CORRECT",
  "duration_seconds": 120,
  "pages": [
    {
      "index": 1,
      "questions": [
        {
          "id": "q1",
          "prompt": "Pick one",
          "kind": "MULTIPLE_CHOICE",
          "options": [
            {"id": "a", "text": "first", "correct": true},
            {"id": "b", "text": "second"}
          ]
        }
      ]
    }
  ]
}`

// newCountdownServer starts a countdown endpoint backed by a memory store,
// with the given owner's claims injected in place of the JWT middleware.
func newCountdownServer(t *testing.T, owner uuid.UUID) (*httptest.Server, *engine.Engine) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timed-quiz.json"), []byte(timedQuizJSON), 0o644))
	b, err := bank.Load(dir, zerolog.Nop())
	require.NoError(t, err)

	eng := engine.NewEngine(b, store.NewMemoryStore(),
		engine.NewScorer(engine.Thresholds{Advanced: 80, Intermediate: 50}),
		nil, nil, zerolog.Nop())

	h := NewWSHandler(eng, zerolog.Nop(), nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/sessions/:session_id/countdown", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{OwnerID: owner})
		h.CountdownStream(c)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, eng
}

func TestCountdownStream_SurvivesPingFlood(t *testing.T) {
	owner := uuid.New()
	srv, eng := newCountdownServer(t, owner)

	started, err := eng.Start(context.Background(), "timed-quiz", owner)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/sessions/" + started.SessionID.String() + "/countdown"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Hammer the stream with pings so pong writes land across the
	// per-second tick writes. The stream must answer them all without
	// dropping the connection.
	flooded := make(chan struct{})
	go func() {
		defer close(flooded)
		for i := 0; i < 200; i++ {
			if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	var pongs, ticks int
	deadline := time.Now().Add(5 * time.Second)
	for (pongs < 10 || ticks < 1) && time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var frame struct {
			Event ws.Event `json:"event"`
		}
		require.NoError(t, conn.ReadJSON(&frame), "stream died under ping load")
		switch frame.Event {
		case ws.EventPong:
			pongs++
		case ws.EventTick:
			ticks++
		case ws.EventError:
			t.Fatalf("unexpected error frame after %d pongs, %d ticks", pongs, ticks)
		}
	}
	<-flooded

	assert.GreaterOrEqual(t, pongs, 10)
	assert.GreaterOrEqual(t, ticks, 1)
}
