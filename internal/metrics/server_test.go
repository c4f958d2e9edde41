package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerServesMetrics(t *testing.T) {
	s := NewServer("127.0.0.1:0", "")
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	FramesTotal.WithLabelValues("server_test", LinkIPv4).Inc()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tundecode_frames_total{link="ipv4",source="server_test"} 1`)
}

func TestServerStopBeforeStart(t *testing.T) {
	s := NewServer(":0", "/m")
	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, ":0", s.Addr())
}

func TestServerListenError(t *testing.T) {
	s := NewServer("256.0.0.1:1", "")
	assert.Error(t, s.Start(context.Background()))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(ChecksumTotal.WithLabelValues("counters_test", ChecksumInvalid))
	ChecksumTotal.WithLabelValues("counters_test", ChecksumInvalid).Inc()
	after := testutil.ToFloat64(ChecksumTotal.WithLabelValues("counters_test", ChecksumInvalid))
	assert.Equal(t, before+1, after)
}
