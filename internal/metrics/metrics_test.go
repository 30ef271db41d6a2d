package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUtterance(t *testing.T) {
	before := testutil.ToFloat64(utterances.WithLabelValues(OutcomeInterrupted))
	RecordUtterance(OutcomeInterrupted)
	assert.Equal(t, before+1, testutil.ToFloat64(utterances.WithLabelValues(OutcomeInterrupted)))
}

func TestObserveVoiceResolutionStatus(t *testing.T) {
	okBefore := testutil.ToFloat64(voiceResolutions.WithLabelValues("success"))
	errBefore := testutil.ToFloat64(voiceResolutions.WithLabelValues("error"))

	ObserveVoiceResolution(10*time.Millisecond, nil)
	ObserveVoiceResolution(10*time.Millisecond, errors.New("no voice"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(voiceResolutions.WithLabelValues("success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(voiceResolutions.WithLabelValues("error")))
}

func TestQueueLengthGauge(t *testing.T) {
	SetQueueLength(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(queueLength))
	SetQueueLength(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(queueLength))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordCacheLookup(true)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ottospeak_audio_cache_lookups_total")
}
