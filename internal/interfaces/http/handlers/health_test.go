package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelgate/channelgate/internal/interfaces/http/handlers/testutil"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

func TestHealthHandler_Check(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("refused") })

	t.Run("all up", func(t *testing.T) {
		h := NewHealthHandler(map[string]Pinger{"database": up, "redis": up}, logger.NewNop())
		c, w := testutil.NewTestContext(http.MethodGet, "/healthz", nil)
		h.Check(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "up", resp.Checks["redis"])
	})

	t.Run("one down", func(t *testing.T) {
		h := NewHealthHandler(map[string]Pinger{"database": up, "redis": down}, logger.NewNop())
		c, w := testutil.NewTestContext(http.MethodGet, "/healthz", nil)
		h.Check(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "up", resp.Checks["database"])
		assert.Equal(t, "down", resp.Checks["redis"])
	})
}
